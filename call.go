package polytlai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/polytlai/logger"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 4 << 20

// callSpec describes a single outbound request.
type callSpec struct {
	adapter    Adapter
	credential string
	prompt     string
	timeout    time.Duration
	purpose    string // translate, analysis or diagnose
	emptyMsg   string // message for a blank parse
}

// call performs one provider request bounded by spec.timeout and classifies
// any failure into a *ProviderError. parent is the run context: when it is
// done the failure is reported as canceled rather than timed out.
func (o *Orchestrator) call(parent context.Context, spec callSpec) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(parent, spec.timeout)
	defer cancel()

	start := time.Now()
	attempt := func() (string, error) {
		if err := o.throttle.Wait(ctx, spec.adapter.ID); err != nil {
			return "", classifyTransport(parent, ctx, spec, err)
		}
		return o.send(parent, ctx, spec)
	}

	var (
		text string
		err  error
	)
	if o.retry != nil {
		text, err = Retry(ctx, *o.retry, attempt)
	} else {
		text, err = attempt()
	}
	elapsed := time.Since(start)

	if err != nil {
		var perr *ProviderError
		switch {
		case ctx.Err() != nil:
			// The deadline or the run ended between attempts; the last
			// attempt's error does not describe the call.
			err = classifyTransport(parent, ctx, spec, ctx.Err())
		case !errors.As(err, &perr):
			err = classifyTransport(parent, ctx, spec, err)
		}
		return "", elapsed, err
	}
	return text, elapsed, nil
}

func (o *Orchestrator) send(parent, ctx context.Context, spec callSpec) (string, error) {
	a := spec.adapter

	body, err := json.Marshal(a.BuildBody(a.Model, spec.prompt))
	if err != nil {
		return "", &ProviderError{Provider: a.ID, Kind: FailureNetwork, Message: "encode request body", Cause: err}
	}

	req := o.rest.R().
		SetContext(ctx).
		SetHeaderMultiValues(a.BuildHeaders(spec.credential)).
		SetHeader("User-Agent", UserAgent()).
		SetBody(body).
		SetDoNotParseResponse(true)
	if req.Header.Get("Content-Type") == "" {
		req.SetHeader("Content-Type", "application/json")
	}

	// Endpoint, not the full URL: Gemini carries the key in the query.
	logger.Debugf("[%s] %s POST %s model=%s key=%s timeout=%s",
		a.ID, spec.purpose, a.Endpoint, a.Model, logger.MaskSecret(spec.credential), spec.timeout)
	logger.LogLLMRequest(string(a.ID), spec.purpose, a.Endpoint, spec.prompt)

	resp, err := req.Post(a.URL(spec.credential))
	if err != nil {
		return "", classifyTransport(parent, ctx, spec, err)
	}
	rawBody := resp.RawBody()
	defer rawBody.Close()

	raw, err := io.ReadAll(io.LimitReader(rawBody, maxResponseBytes))
	if err != nil {
		return "", classifyTransport(parent, ctx, spec, err)
	}
	status := resp.StatusCode()
	logger.LogLLMResponse(string(a.ID), spec.purpose, status, string(raw))

	if status < 200 || status > 299 {
		return "", statusError(a.ID, status, raw)
	}

	text, ok := a.ParseResponse(raw)
	if !ok || strings.TrimSpace(text) == "" {
		msg := spec.emptyMsg
		if msg == "" {
			msg = "response contained no text"
		}
		return "", &ProviderError{Provider: a.ID, Kind: FailureMalformedResponse, Message: msg}
	}
	return strings.TrimSpace(text), nil
}

// statusError classifies a non-2xx response.
func statusError(id ProviderID, code int, raw []byte) *ProviderError {
	kind := FailureHTTP
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = FailureAuth
	case code == http.StatusTooManyRequests:
		kind = FailureRateLimit
	case code >= 500:
		kind = FailureServer
	}

	msg := fmt.Sprintf("HTTP %d", code)
	if excerpt := strings.TrimSpace(string(raw)); excerpt != "" {
		msg += ": " + Truncate(excerpt, MaxMessageLen)
	}
	return &ProviderError{Provider: id, Kind: kind, StatusCode: code, Message: msg}
}

// classifyTransport maps an error that produced no HTTP status.
func classifyTransport(parent, ctx context.Context, spec callSpec, err error) *ProviderError {
	id := spec.adapter.ID
	switch {
	case parent.Err() != nil:
		return &ProviderError{Provider: id, Kind: FailureCanceled, Message: "run canceled", Cause: parent.Err()}
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{
			Provider: id,
			Kind:     FailureTimeout,
			Timeout:  spec.timeout,
			Message:  fmt.Sprintf("request timed out after %s", spec.timeout),
		}
	default:
		return &ProviderError{Provider: id, Kind: FailureNetwork, Message: Truncate(err.Error(), MaxMessageLen)}
	}
}
