package esserr

import (
	"fmt"
	"regexp"
	"strings"
)

// secretPatterns matches the shapes of values that must never reach a
// log line, error body, or CLI output: *_PASSWORD/*_TOKEN/*_SECRET
// style env values, and bearer-ish tokens embedded in free text.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(VERACITY_[A-Z_]*(?:PASSWORD|TOKEN|SECRET)[A-Z_]*\s*=\s*)\S+`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._-]+`),
}

// Redact strips secret-shaped substrings from s, replacing them with
// "[REDACTED]". It is the single formatter every log sink and error
// body passes through before leaving the process.
func Redact(s string) string {
	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}

// FormatForCLI renders err as a terminal-friendly message, redacted,
// with the error code appended for support reference.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return Redact(err.Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("error: %s", Redact(e.Message)))
	for k, v := range e.Details {
		sb.WriteString(fmt.Sprintf("\n  %s: %s", k, Redact(v)))
	}
	sb.WriteString(fmt.Sprintf("\n[%s]", e.Code))
	return sb.String()
}

// Code extracts the error code from err for metrics labeling,
// defaulting to "unknown" for errors outside the ess taxonomy.
func Code(err error) string {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return "unknown"
	}
	return e.Code
}

// ExitCode maps an error to the CLI exit codes fixed by spec §6:
// 0 success, 2 invalid arguments, 3 project not registered,
// 4 backend unavailable, 5 validation failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := As(err)
	if !ok {
		return 1
	}
	switch e.Category {
	case CategoryValidation:
		return 5
	case CategoryBackend, CategoryTimeout:
		return 4
	case CategoryConfig:
		return 2
	default:
		return 1
	}
}
