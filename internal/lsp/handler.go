package lsp

import (
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/mathisgroup/pylambda/internal/errs"
	"github.com/mathisgroup/pylambda/internal/session"
)

// Handler implements the LSP server handlers for pylambda source files.
// Grounded on the teacher's KansoHandler: one Session per open document,
// reparsed/reduced on every didOpen/didChange and published as
// diagnostics. No completion or semantic tokens are attempted — not in
// the original C program's interface and no natural analogue for a
// token-level language with no type system, so left as a Non-goal.
type Handler struct {
	mu       sync.RWMutex
	content  map[string]string
	sessions map[string]*session.Session
	params   session.Params
}

// New constructs a Handler; params configures every per-document
// Session it creates (heap_size, cycle_limit, and so on).
func New(params session.Params) *Handler {
	return &Handler{
		content:  make(map[string]string),
		sessions: make(map[string]*session.Session),
		params:   params,
	}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error { return nil }

func (h *Handler) Shutdown(ctx *glsp.Context) error { return nil }

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error { return nil }

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	h.setContent(uri, params.TextDocument.Text)
	h.publish(ctx, uri)
	return nil
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	for _, change := range params.ContentChanges {
		if full, ok := change.(protocol.TextDocumentContentChangeEvent); ok {
			h.setContent(uri, full.Text)
		}
	}
	h.publish(ctx, uri)
	return nil
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, uri)
	delete(h.sessions, uri)
	return nil
}

func (h *Handler) setContent(uri, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.content[uri] = text
	if _, ok := h.sessions[uri]; !ok {
		h.sessions[uri] = session.New(h.params)
	}
}

// publish re-reduces the document and turns any resulting
// *errs.LambdaError into a single diagnostic; a clean reduction clears
// prior diagnostics for the document.
func (h *Handler) publish(ctx *glsp.Context, uri string) {
	h.mu.RLock()
	text := h.content[uri]
	sess := h.sessions[uri]
	h.mu.RUnlock()
	if sess == nil {
		return
	}

	sess.Reset()
	var diagnostics []protocol.Diagnostic
	if _, err := sess.ReduceLambda(text); err != nil {
		if lerr, ok := err.(*errs.LambdaError); ok {
			diagnostics = append(diagnostics, ConvertError(lerr))
		}
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}
