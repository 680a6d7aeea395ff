// Command pylambda-lsp is a minimal Language Server Protocol front end
// turning parse/reduction errors into textDocument/publishDiagnostics
// notifications. Grounded on the teacher's cmd/kanso-lsp/main.go: same
// commonlog configuration, same protocol.Handler wiring, same
// server.NewServer(...).RunStdio() entry point.
package main

import (
	"io"
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/mathisgroup/pylambda/internal/lsp"
	"github.com/mathisgroup/pylambda/internal/session"
)

const lsName = "pylambda"

var (
	version = "0.0.1"
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	// stdout carries the JSON-RPC stream, so show/more output is discarded.
	params := session.DefaultParams()
	params.Output = io.Discard
	h := lsp.New(params)

	handler = protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		SetTrace:              h.SetTrace,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidChange: h.TextDocumentDidChange,
		TextDocumentDidClose:  h.TextDocumentDidClose,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting pylambda LSP server...", version)

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting pylambda LSP server:", err)
		os.Exit(1)
	}
}
