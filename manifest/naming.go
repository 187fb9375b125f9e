package manifest

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/chazu/tessera/compiler"
)

// Extension is the file extension of Tessera modules.
const Extension = ".tess"

// ToIdentifier converts a dependency or project name to a valid import
// segment: "my-lib" -> "my_lib", "Layouts" -> "layouts".
func ToIdentifier(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '-' || r == '.' || r == ' ':
			b.WriteByte('_')
		case unicode.IsLetter(r) || r == '_':
			if i == 0 {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidSegment reports whether s can appear between the dots of an import
// path: an identifier that does not start with an upper case letter and
// is not a keyword.
func ValidSegment(s string) bool {
	if s == "" || IsReserved(s) {
		return false
	}
	for i, r := range s {
		switch {
		case i == 0 && unicode.IsUpper(r):
			return false
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// ValidModuleName reports whether name is a dotted import path.
func ValidModuleName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if !ValidSegment(seg) {
			return false
		}
	}
	return true
}

// IsReserved reports whether name is a language keyword.
func IsReserved(name string) bool {
	return compiler.IsKeyword(name)
}

// ModulePath maps a dotted module name to a path relative to a module
// root: "layouts.grid" -> "layouts/grid.tess".
func ModulePath(name string) string {
	return filepath.Join(strings.Split(name, ".")...) + Extension
}

// ModuleName maps a path relative to a module root back to a dotted name.
// It reports false for files that are not modules or whose path segments
// are not valid identifiers.
func ModuleName(rel string) (string, bool) {
	if filepath.Ext(rel) != Extension {
		return "", false
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), Extension)
	name := strings.ReplaceAll(rel, "/", ".")
	if !ValidModuleName(name) {
		return "", false
	}
	return name, true
}
