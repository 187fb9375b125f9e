package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/tessera/compiler"
	"github.com/chazu/tessera/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tessera-lsp"

var lspLog = commonlog.GetLogger("tessera.lsp")

// ModuleLocator maps a dotted module name to its source file.
// *manifest.Loader implements it.
type ModuleLocator interface {
	Locate(name string) (string, error)
}

// document is an open editor buffer. When the text stops parsing, the
// symbols of the last good parse are kept for completion.
type document struct {
	text  string
	stmts []compiler.Stmt
	syms  []Symbol
	diag  *SyntaxDiagnostic
}

// LspServer provides editor features for tess source files. Analysis is
// static: documents are parsed, never run. The worker's interpreter only
// supplies the host function names.
type LspServer struct {
	worker  *Worker
	locator ModuleLocator

	mu   sync.Mutex
	docs map[string]*document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server. locator may be nil, in which case
// imports are neither checked nor followed.
func NewLSP(locator ModuleLocator) *LspServer {
	in := vm.NewInterpreter()
	vm.RegisterHostFuncs(in, io.Discard)

	s := &LspServer{
		worker:  NewWorker(in),
		locator: locator,
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("tessera LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", ":"},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := s.update(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With full sync the last change event carries the whole text.
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			doc := s.update(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, doc)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update reparses a document and stores the result.
func (s *LspServer) update(uri protocol.DocumentUri, text string) *document {
	stmts, diag := CheckSource(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &document{text: text, stmts: stmts, diag: diag}
	if diag == nil {
		doc.syms = Symbols(stmts)
	} else if prev, ok := s.docs[string(uri)]; ok {
		doc.stmts = prev.stmts
		doc.syms = prev.syms
	}
	s.docs[string(uri)] = doc
	return doc
}

func (s *LspServer) document(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.complete(doc, params.Position)
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(doc, word)
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.definition(uri, doc, word), nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(uri, doc.text, word), nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return documentSymbols(doc.syms), nil
}

// --- Completion ---

func (s *LspServer) complete(doc *document, pos protocol.Position) ([]protocol.CompletionItem, error) {
	prefix, receiver, sep := completionContext(doc.text, pos)

	items := newCompletionSet(prefix)
	switch sep {
	case "::":
		if cls, ok := s.findClass(doc, receiver); ok {
			for _, m := range cls.Children {
				if m.Kind == SymbolStatic {
					items.add(m.Name, protocol.CompletionItemKindMethod, m.Detail)
				}
			}
		}
		return items.list(), nil

	case ".":
		if mod, ok := s.importedByBinding(doc, receiver); ok {
			for _, name := range mod.exports {
				items.add(name, protocol.CompletionItemKindVariable, mod.name+"."+name)
			}
			return items.list(), nil
		}
		for _, sym := range doc.syms {
			for _, m := range sym.Children {
				if m.Kind == SymbolField || m.Kind == SymbolMethod {
					items.add(m.Name, memberCompletionKind(m.Kind), sym.Name+"."+m.Name)
				}
			}
		}
		for _, kind := range []vm.Kind{vm.KindArray, vm.KindString, vm.KindObject} {
			for _, name := range vm.BuiltinMethods(kind) {
				items.add(name, protocol.CompletionItemKindMethod, kind.String()+" method")
			}
		}
		return items.list(), nil
	}

	if prefix == "" {
		return nil, nil
	}
	for _, kw := range compiler.Keywords() {
		items.add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	for _, sym := range doc.syms {
		items.add(sym.Name, symbolCompletionKind(sym.Kind), sym.Detail)
	}
	for _, imp := range Imports(doc.stmts) {
		items.add(lastSegment(imp.Path), protocol.CompletionItemKindModule, "import "+imp.Path)
		if mod, ok := s.importedModule(imp.Path); ok {
			for _, name := range mod.exports {
				items.add(name, protocol.CompletionItemKindVariable, imp.Path+"."+name)
			}
		}
	}
	natives, err := s.hostNames()
	if err != nil {
		return nil, err
	}
	for _, name := range natives {
		items.add(name, protocol.CompletionItemKindFunction, "native function")
	}
	return items.list(), nil
}

// hostNames returns the names the interpreter predefines.
func (s *LspServer) hostNames() ([]string, error) {
	res, err := s.worker.Do(func(in *vm.Interpreter) interface{} {
		return in.Globals().LocalNames()
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// completionSet collects items matching a prefix, first label wins.
type completionSet struct {
	prefix string
	seen   map[string]bool
	items  []protocol.CompletionItem
}

func newCompletionSet(prefix string) *completionSet {
	return &completionSet{prefix: prefix, seen: make(map[string]bool)}
}

func (c *completionSet) add(label string, kind protocol.CompletionItemKind, detail string) {
	if c.seen[label] || !strings.HasPrefix(label, c.prefix) {
		return
	}
	c.seen[label] = true
	item := protocol.CompletionItem{Label: label, Kind: &kind}
	if detail != "" {
		d := detail
		item.Detail = &d
	}
	c.items = append(c.items, item)
}

func (c *completionSet) list() []protocol.CompletionItem {
	return c.items
}

func symbolCompletionKind(k SymbolKind) protocol.CompletionItemKind {
	switch k {
	case SymbolClass:
		return protocol.CompletionItemKindClass
	case SymbolVariable:
		return protocol.CompletionItemKindVariable
	case SymbolOperator:
		return protocol.CompletionItemKindOperator
	}
	return protocol.CompletionItemKindFunction
}

func memberCompletionKind(k SymbolKind) protocol.CompletionItemKind {
	if k == SymbolField {
		return protocol.CompletionItemKindField
	}
	return protocol.CompletionItemKindMethod
}

// --- Hover ---

func (s *LspServer) hover(doc *document, word string) (*protocol.Hover, error) {
	if sym, ok := FindSymbol(doc.syms, word); ok {
		return markdownHover(describeSymbol(sym)), nil
	}
	for _, imp := range Imports(doc.stmts) {
		if lastSegment(imp.Path) == word {
			return markdownHover(codeBlock("import " + imp.Path)), nil
		}
		if mod, ok := s.importedModule(imp.Path); ok {
			if sym, ok := FindSymbol(mod.syms, word); ok && sym.Exported {
				return markdownHover(describeSymbol(sym) + "\n\nfrom `" + imp.Path + "`"), nil
			}
		}
	}
	if compiler.IsKeyword(word) {
		return markdownHover("keyword `" + word + "`"), nil
	}

	natives, err := s.hostNames()
	if err != nil {
		return nil, err
	}
	for _, name := range natives {
		if name == word {
			return markdownHover("native function `" + word + "`"), nil
		}
	}
	return nil, nil
}

func describeSymbol(sym Symbol) string {
	var sb strings.Builder
	detail := sym.Detail
	if sym.Exported {
		detail = "export " + detail
	}
	sb.WriteString(codeBlock(detail))
	if len(sym.Children) > 0 {
		sb.WriteString("\n")
		for _, m := range sym.Children {
			fmt.Fprintf(&sb, "\n- `%s`", m.Detail)
		}
	}
	return sb.String()
}

func codeBlock(s string) string {
	return "```tessera\n" + s + "\n```"
}

func markdownHover(text string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

// --- Definition and references ---

func (s *LspServer) definition(uri protocol.DocumentUri, doc *document, word string) []protocol.Location {
	if sym, ok := FindSymbol(doc.syms, word); ok {
		return []protocol.Location{{URI: uri, Range: spanRange(sym.Span)}}
	}
	for _, imp := range Imports(doc.stmts) {
		mod, ok := s.importedModule(imp.Path)
		if !ok {
			continue
		}
		if lastSegment(imp.Path) == word {
			return []protocol.Location{{URI: pathURI(mod.file)}}
		}
		if sym, ok := FindSymbol(mod.syms, word); ok && sym.Exported {
			return []protocol.Location{{URI: pathURI(mod.file), Range: spanRange(sym.Span)}}
		}
	}
	return nil
}

// references finds every identifier token spelled word. Tokens before a
// lex error are still searched.
func references(uri protocol.DocumentUri, text, word string) []protocol.Location {
	toks, _ := compiler.Tokenize(text)
	var locations []protocol.Location
	for _, tok := range toks {
		if tok.Type != compiler.TokenIdentifier && tok.Type != compiler.TokenClassIdentifier {
			continue
		}
		if tok.Literal != word {
			continue
		}
		start := lspPosition(tok.Pos)
		end := start
		end.Character += protocol.UInteger(len(tok.Literal))
		locations = append(locations, protocol.Location{
			URI:   uri,
			Range: protocol.Range{Start: start, End: end},
		})
	}
	return locations
}

func documentSymbols(syms []Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		detail := sym.Detail
		r := spanRange(sym.Span)
		ds := protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         &detail,
			Kind:           lspSymbolKind(sym.Kind),
			Range:          r,
			SelectionRange: r,
		}
		if len(sym.Children) > 0 {
			ds.Children = documentSymbols(sym.Children)
		}
		out = append(out, ds)
	}
	return out
}

func lspSymbolKind(k SymbolKind) protocol.SymbolKind {
	switch k {
	case SymbolClass:
		return protocol.SymbolKindClass
	case SymbolVariable:
		return protocol.SymbolKindVariable
	case SymbolOperator:
		return protocol.SymbolKindOperator
	case SymbolField:
		return protocol.SymbolKindField
	case SymbolMethod, SymbolStatic:
		return protocol.SymbolKindMethod
	}
	return protocol.SymbolKindFunction
}

// --- Imported modules ---

type importedModule struct {
	name    string
	file    string
	syms    []Symbol
	exports []string
}

// importedModule locates and parses an imported module. It is reparsed on
// every request so edits to other files are picked up.
func (s *LspServer) importedModule(name string) (*importedModule, bool) {
	if s.locator == nil {
		return nil, false
	}
	file, err := s.locator.Locate(name)
	if err != nil {
		return nil, false
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}
	stmts, diag := CheckSource(string(src))
	if diag != nil {
		lspLog.Debugf("imported module %s does not parse: %s", name, diag.Message)
		return nil, false
	}
	return &importedModule{
		name:    name,
		file:    file,
		syms:    Symbols(stmts),
		exports: ExportedNames(stmts),
	}, true
}

// importedByBinding returns the module whose namespace is bound to name.
func (s *LspServer) importedByBinding(doc *document, name string) (*importedModule, bool) {
	for _, imp := range Imports(doc.stmts) {
		if lastSegment(imp.Path) == name {
			return s.importedModule(imp.Path)
		}
	}
	return nil, false
}

// findClass finds a class defined in the document or exported by an
// import.
func (s *LspServer) findClass(doc *document, name string) (Symbol, bool) {
	if sym, ok := FindSymbol(doc.syms, name); ok && sym.Kind == SymbolClass {
		return sym, true
	}
	for _, imp := range Imports(doc.stmts) {
		if mod, ok := s.importedModule(imp.Path); ok {
			if sym, ok := FindSymbol(mod.syms, name); ok && sym.Kind == SymbolClass && sym.Exported {
				return sym, true
			}
		}
	}
	return Symbol{}, false
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	diagnostics := s.diagnostics(doc)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnostics reports the syntax error of a document, or, when it parses,
// each import that cannot be located.
func (s *LspServer) diagnostics(doc *document) []protocol.Diagnostic {
	source := lspName
	diagnostics := []protocol.Diagnostic{}

	if doc.diag != nil {
		severity := protocol.DiagnosticSeverityError
		start := lspPosition(compiler.Position{Line: doc.diag.Line, Column: doc.diag.Column})
		end := start
		end.Character++
		return append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Source:   &source,
			Message:  doc.diag.Message,
		})
	}

	if s.locator == nil {
		return diagnostics
	}
	for _, imp := range Imports(doc.stmts) {
		if _, err := s.locator.Locate(imp.Path); err != nil {
			severity := protocol.DiagnosticSeverityWarning
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    spanRange(imp.Span()),
				Severity: &severity,
				Source:   &source,
				Message:  err.Error(),
			})
		}
	}
	return diagnostics
}

// --- Position helpers ---

// lspPosition converts a 1-based source position to a 0-based LSP one.
func lspPosition(p compiler.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func spanRange(sp compiler.Span) protocol.Range {
	start := lspPosition(sp.Start)
	end := start
	if sp.End.Line > 0 {
		end = lspPosition(sp.End)
	}
	return protocol.Range{Start: start, End: end}
}

func pathURI(path string) protocol.DocumentUri {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return protocol.DocumentUri("file://" + filepath.ToSlash(path))
}

// --- Text extraction helpers ---

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// lineAt returns the line at pos and the cursor column clamped to it.
func lineAt(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	prefix, _, _ := completionContext(text, pos)
	return prefix
}

// completionContext returns the identifier fragment before the cursor and,
// when the fragment follows "." or "::", the separator and the identifier
// before it.
func completionContext(text string, pos protocol.Position) (prefix, receiver, sep string) {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return "", "", ""
	}
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	prefix = line[start:col]

	switch {
	case start > 1 && line[start-2:start] == "::":
		sep = "::"
	case start > 0 && line[start-1] == '.':
		sep = "."
	default:
		return prefix, "", ""
	}
	end := start - len(sep)
	rs := end
	for rs > 0 && isIdentByte(line[rs-1]) {
		rs--
	}
	return prefix, line[rs:end], sep
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
