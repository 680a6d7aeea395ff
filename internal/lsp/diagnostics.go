// Package lsp turns the reduction engine's diagnostics into Language
// Server Protocol notifications, grounded on the teacher's
// internal/lsp/diagnostics.go + handler.go: the same URI bookkeeping,
// the same ptrBool/ptrSeverity helper shapes, and the same
// didOpen/didChange -> reparse -> publishDiagnostics flow, re-pointed at
// *errs.LambdaError positions instead of the teacher's parser.ParseError.
package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/mathisgroup/pylambda/internal/errs"
)

// ConvertError turns a single *errs.LambdaError into an LSP diagnostic.
// A nil position (a diagnostic with no located source, such as a
// resource-exhaustion abort) degrades to line 0, column 0.
func ConvertError(err *errs.LambdaError) protocol.Diagnostic {
	line, col := 0, 0
	if err.Pos != nil {
		line, col = err.Pos.Line-1, err.Pos.Column-1
	}
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}

	d := protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: uint32(col)},
			End:   protocol.Position{Line: uint32(line), Character: uint32(col + 1)},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("pylambda"),
		Message:  err.Message,
	}
	if err.Help != "" {
		d.Message = err.Message + " (" + err.Help + ")"
	}
	return d
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
