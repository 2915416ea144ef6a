// Package lsp serves tokenizer results to editors over the Language Server
// Protocol.
package lsp

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/token"
)

const lsName = "tmlex"

var log = commonlog.GetLogger("tmlex.lsp")

type Server struct {
	workspace *Workspace
	watcher   *LibraryWatcher
	handler   protocol.Handler
	server    *server.Server
	version   string
	cfg       *config.Config
	notify    glsp.NotifyFunc
}

// NewServer creates a server. cfg is used as-is when set; otherwise the
// configuration is discovered from the client's root directory.
func NewServer(version string, cfg *config.Config) *Server {
	s := &Server{
		version: version,
		cfg:     cfg,
	}

	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDidSave:        s.textDocumentDidSave,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentCompletion:     s.textDocumentCompletion,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	cfg := s.cfg
	if cfg == nil {
		discovered, err := config.Discover(rootDir)
		if err != nil {
			log.Warningf("config: %v", err)
			discovered = config.Default()
		}
		cfg = discovered
	}
	s.workspace = NewWorkspace(cfg)
	log.Infof("library path %s", cfg.Library)

	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"<", ","},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.notify = ctx.Notify
	s.watcher = NewLibraryWatcher(s.workspace.Config().Library, func() {
		for _, f := range s.workspace.Refresh() {
			s.publish(s.notify, f)
		}
	})
	s.watcher.Start()
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.publish(ctx.Notify, s.workspace.Update(path, params.TextDocument.Text))
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.publish(ctx.Notify, s.workspace.Update(path, textChange.Text))
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.workspace.Remove(path)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil || params.Text == nil {
		return nil
	}
	s.publish(ctx.Notify, s.workspace.Update(path, *params.Text))
	return nil
}

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	f := s.file(params.TextDocument.URI)
	if f == nil {
		return nil, nil
	}
	return toDocumentSymbols(f, f.Symbols()), nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	f := s.file(params.TextDocument.URI)
	if f == nil {
		return nil, nil
	}
	offset := f.lines.Offset(fromProtocolPosition(params.Position))
	text, span, ok := f.Hover(offset)
	if !ok {
		return nil, nil
	}
	r := toRange(f, span)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
		Range: &r,
	}, nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	f := s.file(params.TextDocument.URI)
	if f == nil {
		return nil, nil
	}
	completions := f.Completions(f.lines.Offset(fromProtocolPosition(params.Position)))
	if len(completions) == 0 {
		return nil, nil
	}

	var items []protocol.CompletionItem
	for _, c := range completions {
		kind := protocol.CompletionItemKindFunction
		if c.Kind == CompletionInstrument {
			kind = protocol.CompletionItemKindClass
		}
		detail := c.Detail
		items = append(items, protocol.CompletionItem{
			Label:  c.Label,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return items, nil
}

func (s *Server) file(uri protocol.DocumentUri) *File {
	path, err := uriToPath(uri)
	if err != nil || s.workspace == nil {
		return nil
	}
	return s.workspace.File(path)
}

func (s *Server) publish(notify glsp.NotifyFunc, f *File) {
	if notify == nil {
		return
	}
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         pathToURI(f.Path),
		Diagnostics: toDiagnostics(f),
	})
}

func toDiagnostics(f *File) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	add := func(list diag.List, severity protocol.DiagnosticSeverity) {
		for _, d := range list {
			var span token.Span
			if d.HasPos() {
				span = token.Span{Start: d.Start, End: d.End}
			} else {
				start := f.lines.Offset(Position{Line: d.Line})
				span = token.Span{Start: start, End: start + len(f.lines.line(d.Line))}
			}
			sev := severity
			source := lsName
			out = append(out, protocol.Diagnostic{
				Range:    toRange(f, span),
				Severity: &sev,
				Code:     &protocol.IntegerOrString{Value: string(d.Code)},
				Source:   &source,
				Message:  diagnosticMessage(d),
			})
		}
	}
	add(f.Doc.Errors, protocol.DiagnosticSeverityError)
	add(f.Doc.Warnings, protocol.DiagnosticSeverityWarning)
	return out
}

func diagnosticMessage(d diag.Diagnostic) string {
	if d.Message != "" {
		return d.Message
	}
	return string(d.Code)
}

func toDocumentSymbols(f *File, symbols []Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		r := toRange(f, sym.Span)
		ds := protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           toSymbolKind(sym.Kind),
			Range:          r,
			SelectionRange: r,
			Children:       toDocumentSymbols(f, sym.Children),
		}
		if sym.Detail != "" {
			detail := sym.Detail
			ds.Detail = &detail
		}
		out = append(out, ds)
	}
	return out
}

func toSymbolKind(kind SymbolKind) protocol.SymbolKind {
	switch kind {
	case SymbolSection:
		return protocol.SymbolKindNamespace
	case SymbolTrack:
		return protocol.SymbolKindEvent
	default:
		return protocol.SymbolKindClass
	}
}

func toRange(f *File, span token.Span) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(f.lines.Position(span.Start)),
		End:   toProtocolPosition(f.lines.Position(span.End)),
	}
}

func toProtocolPosition(p Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(p.Line),
		Character: protocol.UInteger(p.Character),
	}
}

func fromProtocolPosition(p protocol.Position) Position {
	return Position{Line: int(p.Line), Character: int(p.Character)}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
