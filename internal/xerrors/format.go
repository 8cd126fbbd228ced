package xerrors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a stack-trace-free, user-facing error message.
// debug is currently unused beyond documenting intent — kept so callers
// don't need to change their call sites when debug detail is added.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	fe, ok := err.(*FinderError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(fe.Message)
	sb.WriteString("\n")

	if fe.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(fe.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", fe.Code))
	return sb.String()
}

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	fe, ok := err.(*FinderError)
	if !ok {
		fe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", fe.Message))
	if fe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(" Hint: %s\n", fe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf(" Code: %s\n", fe.Code))
	return sb.String()
}

// jsonError is the wire representation of a FinderError.
type jsonError struct {
	Code string `json:"code"`
	Message string `json:"message"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Details map[string]string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause string `json:"cause,omitempty"`
	Retryable bool `json:"retryable"`
}

// FormatJSON renders err for machine consumption (the index-status CLI
// surface and logs/indexing_errors.log entries).
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	fe, ok := err.(*FinderError)
	if !ok {
		fe = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code: fe.Code,
		Message: fe.Message,
		Category: string(fe.Category),
		Severity: string(fe.Severity),
		Details: fe.Details,
		Suggestion: fe.Suggestion,
		Retryable: fe.Retryable,
	}
	if fe.Cause != nil {
		je.Cause = fe.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns slog-friendly key/value attributes for err. Never
// includes file contents — only paths, counts and codes flow through this.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	fe, ok := err.(*FinderError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": fe.Code,
		"message": fe.Message,
		"category": string(fe.Category),
		"severity": string(fe.Severity),
		"retryable": fe.Retryable,
	}
	if fe.Cause != nil {
		result["cause"] = fe.Cause.Error()
	}
	if fe.Suggestion != "" {
		result["suggestion"] = fe.Suggestion
	}
	for k, v := range fe.Details {
		result["detail_"+k] = v
	}
	return result
}
