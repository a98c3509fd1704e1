// Package diag defines the diagnostic model shared by the import, link and
// lowering phases.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short human oriented text.
//   - Primary – the Location inside the IR module the finding refers to.
//   - Notes – optional secondary locations with extra context.
//
// IR has no line/column positions that survive lowering, so a Location names
// the file, function, block and instruction index instead.
//
// # Emitting diagnostics
//
// Phases receive a Reporter and either call Report directly or build a record
// with ReportError/ReportWarning/ReportInfo, chain WithNote and call Emit.
// BagReporter collects into a Bag, which supports limits, sorting and
// deduplication. DedupReporter drops repeats before they reach the next
// reporter.
//
// Package diag does no IO. Rendering for the terminal lives in the CLI; the
// single-line format in format.go is used for logs and tests.
package diag
