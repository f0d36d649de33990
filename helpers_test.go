package polytlai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeBody is the request shape of the test adapter.
type fakeBody struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// fakeProvider is an httptest server speaking the test adapter's protocol.
type fakeProvider struct {
	*httptest.Server
	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
	keys    []string
}

func (f *fakeProvider) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeProvider) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// newFakeProvider records each request and delegates the reply to handle.
func newFakeProvider(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body fakeBody)) *fakeProvider {
	t.Helper()
	f := &fakeProvider{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var body fakeBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.prompts = append(f.prompts, body.Prompt)
		f.keys = append(f.keys, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		f.mu.Unlock()
		handle(w, r, body)
	}))
	t.Cleanup(f.Close)
	return f
}

// replyText answers translations with translation and judge prompts with
// analysis.
func replyText(translation, analysis string) func(http.ResponseWriter, *http.Request, fakeBody) {
	return func(w http.ResponseWriter, _ *http.Request, body fakeBody) {
		text := translation
		if isAnalysisPrompt(body.Prompt) {
			text = analysis
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}
}

func replyStatus(code int, body string) func(http.ResponseWriter, *http.Request, fakeBody) {
	return func(w http.ResponseWriter, _ *http.Request, _ fakeBody) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

func isAnalysisPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "You are a professional translation reviewer")
}

func testAdapter(id ProviderID, endpoint string) Adapter {
	return Adapter{
		ID:       id,
		Name:     "Fake " + string(id),
		Endpoint: endpoint,
		Model:    "fake-model",
		BuildHeaders: func(key string) http.Header {
			h := http.Header{}
			h.Set("Authorization", "Bearer "+key)
			return h
		},
		BuildBody: func(model, prompt string) any {
			return fakeBody{Model: model, Prompt: prompt}
		},
		ParseResponse: func(raw []byte) (string, bool) {
			var resp struct {
				Text *string `json:"text"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil || resp.Text == nil {
				return "", false
			}
			return *resp.Text, true
		},
	}
}

func testRegistry(t *testing.T, servers map[ProviderID]*fakeProvider) *Registry {
	t.Helper()
	var adapters []Adapter
	for _, id := range AllProviders() {
		if f, ok := servers[id]; ok {
			adapters = append(adapters, testAdapter(id, f.URL))
		}
	}
	r, err := NewRegistry(adapters...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func fixedQuality(ProviderID, string) int { return 95 }

func credsFor(ids ...ProviderID) Credentials {
	c := Credentials{}
	for _, id := range ids {
		c[id] = "sk-" + string(id) + "-key"
	}
	return c
}
