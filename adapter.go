package polytlai

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout applies to adapters that do not set their own timeout.
const DefaultTimeout = 30 * time.Second

// Adapter shapes requests for one provider and extracts the text from its
// responses. Adapters are pure and are never mutated after registration.
type Adapter struct {
	ID       ProviderID
	Name     string        // Human-readable name shown next to results
	Endpoint string        // Static request URL
	Model    string        // Model identifier passed to BuildBody
	Timeout  time.Duration // Per-call deadline (0 = DefaultTimeout)

	// BuildURL derives the request URL from the endpoint and credential.
	// Optional; Endpoint is used as-is when nil.
	BuildURL func(endpoint, credential string) string

	// BuildHeaders returns the auth and content headers for a credential.
	BuildHeaders func(credential string) http.Header

	// BuildBody returns a JSON-serialisable request body for a prompt.
	BuildBody func(model, prompt string) any

	// ParseResponse extracts the generated text from a raw JSON response.
	// Returning false means the payload had no usable text.
	ParseResponse func(raw []byte) (string, bool)
}

// URL returns the request URL for a credential.
func (a Adapter) URL(credential string) string {
	if a.BuildURL != nil {
		return a.BuildURL(a.Endpoint, credential)
	}
	return a.Endpoint
}

// EffectiveTimeout returns the adapter timeout, or fallback when unset.
func (a Adapter) EffectiveTimeout(fallback time.Duration) time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeout
}

func (a Adapter) validate() error {
	if !a.ID.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, a.ID)
	}
	if a.Endpoint == "" {
		return fmt.Errorf("adapter %s: endpoint must not be empty", a.ID)
	}
	if a.BuildHeaders == nil || a.BuildBody == nil || a.ParseResponse == nil {
		return fmt.Errorf("adapter %s: headers, body and response rules are required", a.ID)
	}
	return nil
}

// Registry is the fixed ProviderID to Adapter table.
type Registry struct {
	adapters map[ProviderID]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[ProviderID]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.adapters[a.ID]; exists {
			return nil, fmt.Errorf("adapter %s registered twice", a.ID)
		}
		r.adapters[a.ID] = a
	}
	return r, nil
}

// Lookup returns the adapter for id.
func (r *Registry) Lookup(id ProviderID) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return Adapter{}, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return a, nil
}

// Name returns the display name for id, falling back to the identifier.
func (r *Registry) Name(id ProviderID) string {
	if a, ok := r.adapters[id]; ok && a.Name != "" {
		return a.Name
	}
	return string(id)
}

// Providers returns the registered identifiers in display order.
func (r *Registry) Providers() []ProviderID {
	var out []ProviderID
	for _, id := range AllProviders() {
		if _, ok := r.adapters[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// WithAdapter returns a copy of the registry with a replaced adapter.
func (r *Registry) WithAdapter(a Adapter) (*Registry, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	cp := &Registry{adapters: make(map[ProviderID]Adapter, len(r.adapters)+1)}
	for id, existing := range r.adapters {
		cp.adapters[id] = existing
	}
	cp.adapters[a.ID] = a
	return cp, nil
}
