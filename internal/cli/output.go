package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/argosync/internal/argo"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command completed
	ExitFailure      = 1 // Operation failed (storage error, bad fixture data)
	ExitCommandError = 2 // Command error (bad flags, config, unreadable files)
)

// Error codes reported in JSON output.
const (
	ErrCodeConfig  = "E_CONFIG"
	ErrCodeTypes   = "E_TYPES"
	ErrCodeStore   = "E_STORE"
	ErrCodeFixture = "E_FIXTURE"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Errors that are not ExitErrors exit with ExitFailure.
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

// OutputFormatter writes command results as text or a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; keeps JSON on Writer parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command in JSON output.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ArgoCode is the sync core's error code when the failure came from it.
	ArgoCode string `json:"argoCode,omitempty"`
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	WriteText(w io.Writer)
}

// Success writes data in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if r, ok := data.(textRenderer); ok {
		r.WriteText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes a failure in the configured format and returns it as an
// ExitError with the given exit code.
func (f *OutputFormatter) Error(exitCode int, code, message string, err error) error {
	if f.Format == "json" {
		cliErr := &CLIError{Code: code, Message: message}
		if err != nil {
			cliErr.Message = fmt.Sprintf("%s: %v", message, err)
			cliErr.ArgoCode = string(argo.CodeOf(err))
		}
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: cliErr}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
		if f.Verbose && err != nil {
			fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", err)
		}
	}
	return WrapExitError(exitCode, message, err)
}

// VerboseLog writes a diagnostic line when verbose mode is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter, or Writer when unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
