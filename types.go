package polytlai

import (
	"fmt"
	"strings"
	"time"
)

// ProviderID identifies one supported translation provider.
type ProviderID string

const (
	// ProviderOpenAI is OpenAI's chat completions API (GPT-4o-mini).
	ProviderOpenAI ProviderID = "openai"
	// ProviderGemini is Google's Gemini generateContent API.
	ProviderGemini ProviderID = "gemini"
	// ProviderDeepSeek is DeepSeek's OpenAI-compatible chat API.
	ProviderDeepSeek ProviderID = "deepseek"
	// ProviderClaude is Anthropic's messages API.
	ProviderClaude ProviderID = "claude"
	// ProviderQwen is Alibaba DashScope's text-generation API.
	ProviderQwen ProviderID = "qwen"
)

// AnalysisKey is the reserved sink key of the judge result. It never
// collides with a ProviderID.
const AnalysisKey = "analysis"

// AnalysisName is the display name of the judge entry.
const AnalysisName = "AI Analysis"

// AllProviders returns every supported provider in display order.
func AllProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderGemini, ProviderDeepSeek, ProviderClaude, ProviderQwen}
}

// DefaultAnalysisPriority is the order in which credentials are tried for
// the judge call.
func DefaultAnalysisPriority() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderDeepSeek, ProviderClaude, ProviderGemini, ProviderQwen}
}

// DefaultSelection is the provider set used when nothing has been saved.
func DefaultSelection() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderDeepSeek, ProviderGemini}
}

// String returns the string form of the identifier.
func (p ProviderID) String() string {
	return string(p)
}

// IsValid reports whether p is one of the supported providers.
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderGemini, ProviderDeepSeek, ProviderClaude, ProviderQwen:
		return true
	default:
		return false
	}
}

// ParseProviderID normalizes s and checks it against the supported set.
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if !id.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return id, nil
}

// ParseProviderList parses a comma separated provider list, dropping
// duplicates while keeping first-occurrence order.
func ParseProviderList(s string) ([]ProviderID, error) {
	var out []ProviderID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseProviderID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return dedupeProviders(out), nil
}

// Credentials maps a provider to its API key. A missing or blank value means
// the provider is not configured.
type Credentials map[ProviderID]string

// Get returns the trimmed credential for id.
func (c Credentials) Get(id ProviderID) (string, bool) {
	key := strings.TrimSpace(c[id])
	return key, key != ""
}

// Clone returns a copy holding only configured credentials.
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for id, key := range c {
		if key = strings.TrimSpace(key); key != "" {
			out[id] = key
		}
	}
	return out
}

// TranslationRequest is one user-initiated run.
type TranslationRequest struct {
	Text       string       // Source text (must not be blank)
	Providers  []ProviderID // Selected providers (must not be empty)
	SourceLang string       // Source language code (default: "en")
	TargetLang string       // Target language code (default: "zh_CN")
}

// EntryStatus is the lifecycle stage of a ResultEntry.
type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusSuccess EntryStatus = "success"
	StatusFailure EntryStatus = "failure"
)

// FailureKind classifies why a call failed.
type FailureKind string

const (
	FailureTimeout              FailureKind = "timeout"
	FailureAuth                 FailureKind = "auth"
	FailureRateLimit            FailureKind = "rate_limit"
	FailureServer               FailureKind = "server"
	FailureHTTP                 FailureKind = "http"
	FailureNetwork              FailureKind = "network"
	FailureMalformedResponse    FailureKind = "malformed_response"
	FailureNoAnalysisCredential FailureKind = "no_analysis_credential"
	FailureCanceled             FailureKind = "canceled"
)

// ResultEntry is one provider's (or the judge's) outcome in the sink.
type ResultEntry struct {
	Key        string        `json:"key"`
	Name       string        `json:"name"`
	Status     EntryStatus   `json:"status"`
	Analysis   bool          `json:"analysis,omitempty"`
	Text       string        `json:"text,omitempty"`
	Quality    int           `json:"quality,omitempty"`
	Failure    FailureKind   `json:"failure,omitempty"`
	Message    string        `json:"message,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
	Judge      ProviderID    `json:"judge,omitempty"` // Provider whose credential served the analysis
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsSuccess reports whether the entry holds a translation.
func (e ResultEntry) IsSuccess() bool { return e.Status == StatusSuccess }

// IsFailure reports whether the entry is a classified failure.
func (e ResultEntry) IsFailure() bool { return e.Status == StatusFailure }

// Provider returns the ProviderID the entry belongs to. It is empty for the
// analysis entry.
func (e ResultEntry) Provider() ProviderID {
	if e.Analysis {
		return ""
	}
	return ProviderID(e.Key)
}

// State is the stage of a run.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateRunning     State = "running"
	StateAggregating State = "aggregating"
	StateSettled     State = "settled"
)

func dedupeProviders(ids []ProviderID) []ProviderID {
	seen := make(map[ProviderID]bool, len(ids))
	out := make([]ProviderID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
