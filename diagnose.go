package polytlai

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZaguanLabs/polytlai/logger"
)

const (
	// DiagnosticPrompt is the text sent by connectivity probes.
	DiagnosticPrompt = "Hello, this is a test."
	// DiagnosticTimeout bounds each probe.
	DiagnosticTimeout = 10 * time.Second
)

// DiagnosticResult is the outcome of probing one provider.
type DiagnosticResult struct {
	Provider     ProviderID    `json:"provider"`
	Name         string        `json:"name"`
	OK           bool          `json:"ok"`
	Failure      FailureKind   `json:"failure,omitempty"`
	Message      string        `json:"message"`
	ResponseTime time.Duration `json:"response_time"`
}

// Diagnose probes each provider in ids concurrently with a short test
// translation. Providers without a credential are reported without a call.
// Results are returned in the order of ids.
func (o *Orchestrator) Diagnose(ctx context.Context, creds Credentials, ids []ProviderID) []DiagnosticResult {
	ids = dedupeProviders(ids)
	results := make([]DiagnosticResult, len(ids))

	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = o.probe(ctx, creds, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) probe(ctx context.Context, creds Credentials, id ProviderID) DiagnosticResult {
	res := DiagnosticResult{Provider: id, Name: o.registry.Name(id)}

	adapter, err := o.registry.Lookup(id)
	if err != nil {
		res.Failure = FailureHTTP
		res.Message = err.Error()
		return res
	}
	key, ok := creds.Get(id)
	if !ok {
		res.Failure = FailureAuth
		res.Message = "API key not configured"
		return res
	}

	_, elapsed, err := o.call(ctx, callSpec{
		adapter:    adapter,
		credential: key,
		prompt:     TranslationPrompt(DiagnosticPrompt, o.sourceLang, o.targetLang),
		timeout:    DiagnosticTimeout,
		purpose:    "diagnose",
	})
	res.ResponseTime = elapsed
	if err == nil {
		res.OK = true
		res.Message = "connection OK"
		return res
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		res.Failure = FailureNetwork
		res.Message = Truncate(err.Error(), 50)
		return res
	}
	res.Failure = perr.Kind
	switch perr.Kind {
	case FailureTimeout:
		res.Message = "connection timed out (>10s)"
	case FailureAuth:
		res.Message = "invalid API key"
	case FailureRateLimit:
		res.Message = "rate limited"
	case FailureServer:
		res.Message = "server error"
	default:
		res.Message = Truncate(perr.Message, 50)
	}
	logger.Debugf("[%s] diagnose: %s", id, res.Message)
	return res
}
