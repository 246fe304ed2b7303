package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/tnpcore/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A feature failed, digests diverged, a scenario failed, or validation failed
	ExitCommandError = 2 // Command error (invalid paths, unreadable script, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: out, ErrWriter: errOut, Verbose: opts.Verbose}
}

// JSON writes an indented response with the given status and payload.
func (f *OutputFormatter) JSON(status string, data any, cliErr *CLIError) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: status, Data: data, Error: cliErr})
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.JSON("ok", data, nil)
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.JSON("error", nil, &CLIError{Code: code, Message: message, Details: details})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// It writes to ErrWriter so JSON output stays intact.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// FeatureReport is the per-feature line of rebuild output.
type FeatureReport struct {
	ID       string           `json:"id"`
	Op       ir.OperationKind `json:"operation_kind"`
	Envelope ir.Envelope      `json:"status"`
}

func featureReports(doc *ir.Document) []FeatureReport {
	out := make([]FeatureReport, len(doc.Features))
	for i, f := range doc.Features {
		out[i] = FeatureReport{ID: f.ID, Op: f.Op, Envelope: f.Status}
	}
	return out
}

// writeFeatureTable prints one line per feature, with the TNP failure or
// error message indented below it.
func writeFeatureTable(w io.Writer, features []FeatureReport) {
	width := len("FEATURE")
	for _, f := range features {
		width = max(width, len(f.ID))
	}
	fmt.Fprintf(w, "%-*s  %-8s  %-8s  %s\n", width, "FEATURE", "OP", "STATUS", "CODE")
	for _, f := range features {
		env := f.Envelope
		fmt.Fprintf(w, "%-*s  %-8s  %-8s  %s\n", width, f.ID, f.Op, env.Status, env.Code)
		if tf := env.TNPFailure; tf != nil {
			fmt.Fprintf(w, "%*s  %s %s slot=%s via=%s reason=%s\n",
				width, "", tf.Category, tf.Kind, tf.Slot, tf.ResolvedVia, tf.Reason)
		}
		if env.Message != "" {
			fmt.Fprintf(w, "%*s  %s\n", width, "", env.Message)
		}
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}
