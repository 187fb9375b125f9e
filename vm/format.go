package vm

import (
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/tessera/compiler"
)

// Format renders v the way print and string concatenation show it: strings
// appear without quotes at the top level and quoted inside containers.
func Format(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return Inspect(v)
}

// Inspect renders v as a literal-like string, quoting strings. Containers
// that contain themselves print as "...".
func Inspect(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v, make(map[Value]bool))
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value, active map[Value]bool) {
	switch x := v.(type) {
	case nil, nullValue:
		sb.WriteString("null")
	case Number:
		sb.WriteString(compiler.FormatNumber(float64(x)))
	case String:
		sb.WriteString(strconv.Quote(string(x)))
	case Boolean:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case *Array:
		if active[x] {
			sb.WriteString("[...]")
			return
		}
		active[x] = true
		sb.WriteByte('[')
		for i, e := range x.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e, active)
		}
		sb.WriteByte(']')
		delete(active, x)
	case *Object:
		if active[x] {
			sb.WriteString("#{...}")
			return
		}
		active[x] = true
		sb.WriteByte('#')
		writeFieldValues(sb, x.Fields, active)
		delete(active, x)
	case *Instance:
		if active[x] {
			sb.WriteString(x.Class.Name + "{...}")
			return
		}
		active[x] = true
		sb.WriteString(x.Class.Name)
		writeFieldValues(sb, x.Fields, active)
		delete(active, x)
	case *Closure:
		if x.Name == "" {
			sb.WriteString("<fn>")
		} else {
			sb.WriteString("<fn " + x.Name + ">")
		}
	case *NativeFunction:
		sb.WriteString("<native " + x.Name + ">")
	case *Class:
		sb.WriteString("<class " + x.Name + ">")
	default:
		sb.WriteString("<?>")
	}
}

func writeFieldValues(sb *strings.Builder, fields map[string]Value, active map[Value]bool) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k + ": ")
		writeValue(sb, fields[k], active)
	}
	sb.WriteByte('}')
}
