package polytlai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyText is returned when the source text is blank.
	ErrEmptyText = errors.New("source text is empty")
	// ErrNoProviders is returned when no provider is selected.
	ErrNoProviders = errors.New("no providers selected")
	// ErrUnknownProvider is returned for identifiers outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
)

// MissingCredentialsError blocks a run before any network call when one or
// more selected providers have no API key.
type MissingCredentialsError struct {
	Providers []ProviderID
}

func (e *MissingCredentialsError) Error() string {
	names := make([]string, len(e.Providers))
	for i, id := range e.Providers {
		names[i] = string(id)
	}
	return fmt.Sprintf("missing API keys for: %s", strings.Join(names, ", "))
}

// ProviderError is a classified failure of a single provider or judge call.
type ProviderError struct {
	Provider   ProviderID
	Kind       FailureKind
	StatusCode int           // HTTP status for auth/rate_limit/server/http kinds
	Timeout    time.Duration // Configured deadline for the timeout kind
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error (%s, %s): %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error (%s, %s): %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a later attempt could plausibly succeed.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case FailureRateLimit, FailureServer, FailureNetwork:
		return true
	default:
		return false
	}
}

// NoAnalysisCredentialError means none of the prioritized providers has a
// credential for the judge call. It only ever fails the analysis entry.
type NoAnalysisCredentialError struct {
	Priority []ProviderID
}

func (e *NoAnalysisCredentialError) Error() string {
	names := make([]string, len(e.Priority))
	for i, id := range e.Priority {
		names[i] = string(id)
	}
	return fmt.Sprintf("no analysis credential configured (tried %s)", strings.Join(names, ", "))
}

// failureEntry turns a classified error into a sink entry.
func failureEntry(key, name string, analysis bool, err error) ResultEntry {
	entry := ResultEntry{
		Key:       key,
		Name:      name,
		Status:    StatusFailure,
		Analysis:  analysis,
		UpdatedAt: time.Now(),
	}

	var perr *ProviderError
	var nerr *NoAnalysisCredentialError
	switch {
	case errors.As(err, &perr):
		entry.Failure = perr.Kind
		entry.Message = perr.Message
		entry.StatusCode = perr.StatusCode
		entry.Timeout = perr.Timeout
	case errors.As(err, &nerr):
		entry.Failure = FailureNoAnalysisCredential
		entry.Message = nerr.Error()
	default:
		entry.Failure = FailureNetwork
		entry.Message = Truncate(err.Error(), MaxMessageLen)
	}
	return entry
}
