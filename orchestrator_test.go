package polytlai

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translateReq(text string, ids ...ProviderID) TranslationRequest {
	return TranslationRequest{Text: text, Providers: ids}
}

func TestStart_EmptyText(t *testing.T) {
	f := newFakeProvider(t, replyText("你好", "分析"))
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f}))

	_, err := o.Start(context.Background(), translateReq("   \n\t", ProviderOpenAI), credsFor(ProviderOpenAI))
	require.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, f.calls.Load(), "expected no HTTP calls")
	assert.Nil(t, o.Current(), "rejected request must not create a run")
}

func TestStart_NoProviders(t *testing.T) {
	o := NewOrchestrator(testRegistry(t, nil))

	_, err := o.Start(context.Background(), translateReq("Hello"), Credentials{})
	require.ErrorIs(t, err, ErrNoProviders)
}

func TestStart_UnregisteredProvider(t *testing.T) {
	f := newFakeProvider(t, replyText("你好", ""))
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f}))

	_, err := o.Start(context.Background(), translateReq("Hello", ProviderClaude), credsFor(ProviderClaude))
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestStart_MissingCredentialsBlocksEveryCall(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI:   newFakeProvider(t, replyText("你好", "")),
		ProviderGemini:   newFakeProvider(t, replyText("你好", "")),
		ProviderDeepSeek: newFakeProvider(t, replyText("你好", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	creds := Credentials{ProviderOpenAI: "sk-openai", ProviderGemini: "   "}
	_, err := o.Start(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini, ProviderDeepSeek), creds)

	var missing *MissingCredentialsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []ProviderID{ProviderGemini, ProviderDeepSeek}, missing.Providers)
	assert.Equal(t, "missing API keys for: gemini, deepseek", err.Error())

	for id, f := range servers {
		assert.Zero(t, f.calls.Load(), "provider %s was called", id)
	}
}

func TestTranslate_AllSucceedRunsAnalysis(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI:   newFakeProvider(t, replyText("你好，世界", "OpenAI is best")),
		ProviderGemini:   newFakeProvider(t, replyText("世界你好", "")),
		ProviderDeepSeek: newFakeProvider(t, replyText("你好世界", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers), WithQualityFunc(fixedQuality))

	out, err := o.Translate(context.Background(),
		translateReq("Hello, world", ProviderOpenAI, ProviderDeepSeek, ProviderGemini),
		credsFor(ProviderOpenAI, ProviderGemini, ProviderDeepSeek))
	require.NoError(t, err)

	require.Len(t, out.Entries, 4)
	assert.Equal(t, "openai", out.Entries[0].Key)
	assert.Equal(t, "deepseek", out.Entries[1].Key)
	assert.Equal(t, "gemini", out.Entries[2].Key)
	assert.Equal(t, AnalysisKey, out.Entries[3].Key)
	assert.Equal(t, 3, out.Succeeded())
	assert.Zero(t, out.Failed())
	assert.False(t, out.Canceled)

	for _, e := range out.Successes {
		assert.Equal(t, 95, e.Quality)
		assert.NotEqual(t, StatusPending, e.Status)
	}

	require.NotNil(t, out.Analysis)
	assert.Equal(t, StatusSuccess, out.Analysis.Status)
	assert.Equal(t, "OpenAI is best", out.Analysis.Text)
	assert.Equal(t, AnalysisQuality, out.Analysis.Quality)
	assert.Equal(t, AnalysisName, out.Analysis.Name)
	assert.Equal(t, ProviderOpenAI, out.Analysis.Judge)

	// Two calls to OpenAI: one translation, one judge.
	prompts := servers[ProviderOpenAI].Prompts()
	require.Len(t, prompts, 2)
	var judgePrompt string
	for _, p := range prompts {
		if isAnalysisPrompt(p) {
			judgePrompt = p
		} else {
			assert.Equal(t, "Translate the following English text to Chinese:\n\nHello, world", p)
		}
	}
	require.NotEmpty(t, judgePrompt)
	assert.Contains(t, judgePrompt, "你好，世界")
	assert.Contains(t, judgePrompt, "世界你好")
	assert.Contains(t, judgePrompt, "你好世界")
	assert.Less(t, strings.Index(judgePrompt, "Fake openai"), strings.Index(judgePrompt, "Fake deepseek"))
}

func TestTranslate_SingleSuccessSkipsAnalysis(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI:   newFakeProvider(t, replyText("你好", "should not be used")),
		ProviderGemini:   newFakeProvider(t, replyStatus(http.StatusInternalServerError, `{"error":"boom"}`)),
		ProviderDeepSeek: newFakeProvider(t, replyStatus(http.StatusUnauthorized, "bad key")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini, ProviderDeepSeek),
		credsFor(ProviderOpenAI, ProviderGemini, ProviderDeepSeek))
	require.NoError(t, err)

	assert.Nil(t, out.Analysis)
	_, ok := o.Current().Sink().Analysis()
	assert.False(t, ok, "analysis entry must not exist with one success")
	assert.Equal(t, int32(1), servers[ProviderOpenAI].calls.Load())

	gemini, _ := o.Current().Sink().Get("gemini")
	assert.Equal(t, FailureServer, gemini.Failure)
	assert.Equal(t, 500, gemini.StatusCode)
	assert.Equal(t, `HTTP 500: {"error":"boom"}`, gemini.Message)

	deepseek, _ := o.Current().Sink().Get("deepseek")
	assert.Equal(t, FailureAuth, deepseek.Failure)
	assert.Equal(t, "HTTP 401: bad key", deepseek.Message)
	assert.Equal(t, 2, out.Failed())
}

func TestTranslate_ZeroSuccesses(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, replyStatus(http.StatusTooManyRequests, "slow down")),
		ProviderGemini: newFakeProvider(t, replyStatus(http.StatusBadRequest, "")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini), credsFor(ProviderOpenAI, ProviderGemini))
	require.NoError(t, err)

	assert.Nil(t, out.Analysis)
	assert.Equal(t, FailureRateLimit, out.Entries[0].Failure)
	assert.Equal(t, FailureHTTP, out.Entries[1].Failure)
	assert.Equal(t, "HTTP 400", out.Entries[1].Message)
}

func TestTranslate_TimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	slow := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request, _ fakeBody) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	fast := newFakeProvider(t, replyText("你好", ""))

	registry := testRegistry(t, map[ProviderID]*fakeProvider{ProviderGemini: fast})
	slowAdapter := testAdapter(ProviderClaude, slow.URL)
	slowAdapter.Timeout = 50 * time.Millisecond
	registry, err := registry.WithAdapter(slowAdapter)
	require.NoError(t, err)

	o := NewOrchestrator(registry)
	start := time.Now()
	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderClaude, ProviderGemini), credsFor(ProviderClaude, ProviderGemini))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	claude := out.Entries[0]
	assert.Equal(t, StatusFailure, claude.Status)
	assert.Equal(t, FailureTimeout, claude.Failure)
	assert.Equal(t, 50*time.Millisecond, claude.Timeout)
	assert.Equal(t, "request timed out after 50ms", claude.Message)
	assert.True(t, out.Entries[1].IsSuccess())
}

func TestTranslate_OneTimeoutTwoSuccessesStillAnalyzed(t *testing.T) {
	release := make(chan struct{})
	slow := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request, _ fakeBody) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, replyText("你好", "OpenAI reads more naturally")),
		ProviderGemini: newFakeProvider(t, replyText("您好", "")),
	}

	slowAdapter := testAdapter(ProviderClaude, slow.URL)
	slowAdapter.Timeout = 80 * time.Millisecond
	registry, err := testRegistry(t, servers).WithAdapter(slowAdapter)
	require.NoError(t, err)

	o := NewOrchestrator(registry, WithQualityFunc(fixedQuality))
	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini, ProviderClaude),
		credsFor(ProviderOpenAI, ProviderGemini, ProviderClaude))
	require.NoError(t, err)

	require.Len(t, out.Entries, 4)
	assert.True(t, out.Entries[0].IsSuccess())
	assert.True(t, out.Entries[1].IsSuccess())

	claude := out.Entries[2]
	assert.Equal(t, FailureTimeout, claude.Failure)
	assert.Equal(t, 80*time.Millisecond, claude.Timeout)
	assert.Equal(t, "request timed out after 80ms", claude.Message)

	require.NotNil(t, out.Analysis)
	assert.True(t, out.Analysis.IsSuccess())
	assert.Equal(t, "OpenAI reads more naturally", out.Analysis.Text)
	assert.Equal(t, 2, out.Succeeded())
	assert.Equal(t, 1, out.Failed())
}

func TestTranslate_MalformedResponse(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, replyStatus(http.StatusOK, "not json at all")),
		ProviderQwen:   newFakeProvider(t, replyStatus(http.StatusOK, `{"other":"field"}`)),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderQwen), credsFor(ProviderOpenAI, ProviderQwen))
	require.NoError(t, err)

	for _, e := range out.Entries {
		assert.Equal(t, FailureMalformedResponse, e.Failure, e.Key)
	}
}

func TestTranslate_AnalysisUsesFirstCredentialInPriority(t *testing.T) {
	// Judge credential comes from DeepSeek even though it is not selected.
	judge := newFakeProvider(t, replyText("unused", "DeepSeek judged"))
	servers := map[ProviderID]*fakeProvider{
		ProviderGemini:   newFakeProvider(t, replyText("你好", "")),
		ProviderQwen:     newFakeProvider(t, replyText("您好", "")),
		ProviderDeepSeek: judge,
	}
	o := NewOrchestrator(testRegistry(t, servers))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderGemini, ProviderQwen),
		credsFor(ProviderGemini, ProviderQwen, ProviderDeepSeek))
	require.NoError(t, err)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, ProviderDeepSeek, out.Analysis.Judge)
	assert.Equal(t, "DeepSeek judged", out.Analysis.Text)
	assert.Equal(t, []string{"sk-deepseek-key"}, judge.Keys())
	assert.Equal(t, int32(1), judge.calls.Load())
}

func TestTranslate_NoAnalysisCredential(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderGemini: newFakeProvider(t, replyText("你好", "")),
		ProviderQwen:   newFakeProvider(t, replyText("您好", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers),
		WithAnalysisPriority([]ProviderID{ProviderClaude, ProviderOpenAI}))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderGemini, ProviderQwen), credsFor(ProviderGemini, ProviderQwen))
	require.NoError(t, err)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, FailureNoAnalysisCredential, out.Analysis.Failure)
	assert.Equal(t, 2, out.Succeeded(), "provider entries are unaffected")
}

func TestTranslate_EmptyAnalysis(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, replyText("你好", "   ")),
		ProviderGemini: newFakeProvider(t, replyText("您好", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini), credsFor(ProviderOpenAI, ProviderGemini))
	require.NoError(t, err)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, FailureMalformedResponse, out.Analysis.Failure)
	assert.Equal(t, "analysis result empty", out.Analysis.Message)
	assert.Equal(t, 2, out.Succeeded())
}

func TestTranslate_AnalysisTimeout(t *testing.T) {
	release := make(chan struct{})
	judge := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request, body fakeBody) {
		if isAnalysisPrompt(body.Prompt) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		replyText("你好", "")(w, r, body)
	})
	t.Cleanup(func() { close(release) })
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: judge,
		ProviderGemini: newFakeProvider(t, replyText("您好", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers), WithAnalysisTimeout(50*time.Millisecond))

	out, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini), credsFor(ProviderOpenAI, ProviderGemini))
	require.NoError(t, err)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, FailureTimeout, out.Analysis.Failure)
	assert.Equal(t, 50*time.Millisecond, out.Analysis.Timeout)
}

func TestRun_UpdatesStream(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI:   newFakeProvider(t, replyText("你好", "analysis")),
		ProviderDeepSeek: newFakeProvider(t, replyText("您好", "")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	run, err := o.Start(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderDeepSeek), credsFor(ProviderOpenAI, ProviderDeepSeek))
	require.NoError(t, err)

	var updates []ResultEntry
	for e := range run.Updates() {
		updates = append(updates, e)
	}

	// pending x2, final x2, analysis pending, analysis final
	require.Len(t, updates, 6)
	assert.Equal(t, StatusPending, updates[0].Status)
	assert.Equal(t, StatusPending, updates[1].Status)
	assert.Equal(t, AnalysisKey, updates[4].Key)
	assert.Equal(t, StatusPending, updates[4].Status)
	assert.Equal(t, StatusSuccess, updates[5].Status)
	assert.Equal(t, StateSettled, run.State())

	select {
	case <-run.Done():
	default:
		require.Fail(t, "Done must be closed after Updates")
	}
}

func TestRun_SinkHoldsOneEntryPerKey(t *testing.T) {
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, replyText("你好", "analysis")),
		ProviderGemini: newFakeProvider(t, replyText("您好", "")),
		ProviderQwen:   newFakeProvider(t, replyStatus(http.StatusBadGateway, "")),
	}
	o := NewOrchestrator(testRegistry(t, servers))

	_, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini, ProviderQwen, ProviderOpenAI),
		credsFor(ProviderOpenAI, ProviderGemini, ProviderQwen))
	require.NoError(t, err)

	entries := o.Current().Sink().Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.NotEqual(t, StatusPending, e.Status, e.Key)
	}
	assert.Equal(t, int32(2), servers[ProviderOpenAI].calls.Load(), "duplicate selection is called once plus the judge")
}

func TestStart_SupersedesPreviousRun(t *testing.T) {
	release := make(chan struct{})
	var blocked atomic.Int32
	slow := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request, body fakeBody) {
		if strings.Contains(body.Prompt, "first") {
			blocked.Add(1)
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		replyText("第二", "")(w, r, body)
	})
	t.Cleanup(func() { close(release) })
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: slow}))
	creds := credsFor(ProviderOpenAI)

	first, err := o.Start(context.Background(), translateReq("first", ProviderOpenAI), creds)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return blocked.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	second, err := o.Start(context.Background(), translateReq("second", ProviderOpenAI), creds)
	require.NoError(t, err)
	assert.Same(t, second, o.Current())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	firstOut, err := first.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, firstOut.Canceled)
	assert.Equal(t, FailureCanceled, firstOut.Entries[0].Failure)

	secondOut, err := second.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, secondOut.Canceled)
	assert.Equal(t, "第二", secondOut.Entries[0].Text)
}

func TestTranslate_CacheHitSkipsHTTP(t *testing.T) {
	f := newFakeProvider(t, replyText("你好", ""))
	registry := testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f})
	cache := newMapCache()
	o := NewOrchestrator(registry, WithCache(cache))
	creds := credsFor(ProviderOpenAI)

	out, err := o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), creds)
	require.NoError(t, err)
	assert.False(t, out.Entries[0].Cached)

	out, err = o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), creds)
	require.NoError(t, err)
	assert.True(t, out.Entries[0].Cached)
	assert.Equal(t, "你好", out.Entries[0].Text)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestTranslate_RetryRecoversServerError(t *testing.T) {
	var attempts atomic.Int32
	f := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request, body fakeBody) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		replyText("你好", "")(w, r, body)
	})
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f}),
		WithRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}))

	out, err := o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), credsFor(ProviderOpenAI))
	require.NoError(t, err)
	assert.True(t, out.Entries[0].IsSuccess())
	assert.Equal(t, int32(2), attempts.Load())
}

func TestTranslate_NoRetryByDefault(t *testing.T) {
	f := newFakeProvider(t, replyStatus(http.StatusServiceUnavailable, ""))
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f}))

	out, err := o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), credsFor(ProviderOpenAI))
	require.NoError(t, err)
	assert.Equal(t, FailureServer, out.Entries[0].Failure)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestTranslate_RetryBackoffPastDeadlineIsTimeout(t *testing.T) {
	f := newFakeProvider(t, replyStatus(http.StatusInternalServerError, "boom"))
	adapter := testAdapter(ProviderOpenAI, f.URL)
	adapter.Timeout = 150 * time.Millisecond
	registry, err := NewRegistry(adapter)
	require.NoError(t, err)

	o := NewOrchestrator(registry,
		WithRetry(RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}))
	start := time.Now()
	out, err := o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), credsFor(ProviderOpenAI))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	e := out.Entries[0]
	assert.Equal(t, FailureTimeout, e.Failure)
	assert.Equal(t, 150*time.Millisecond, e.Timeout)
	assert.Equal(t, "request timed out after 150ms", e.Message)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestTranslate_MaxConcurrent(t *testing.T) {
	var inflight, peak atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request, body fakeBody) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		replyText("ok", "ok")(w, r, body)
	}
	servers := map[ProviderID]*fakeProvider{
		ProviderOpenAI: newFakeProvider(t, handler),
		ProviderGemini: newFakeProvider(t, handler),
		ProviderQwen:   newFakeProvider(t, handler),
	}
	o := NewOrchestrator(testRegistry(t, servers), WithMaxConcurrent(1))

	_, err := o.Translate(context.Background(),
		translateReq("Hello", ProviderOpenAI, ProviderGemini, ProviderQwen),
		credsFor(ProviderOpenAI, ProviderGemini, ProviderQwen))
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestTranslate_CustomLanguages(t *testing.T) {
	f := newFakeProvider(t, replyText("Hola", ""))
	o := NewOrchestrator(testRegistry(t, map[ProviderID]*fakeProvider{ProviderOpenAI: f}),
		WithLanguages("en", "es-ES"))

	_, err := o.Translate(context.Background(), translateReq("Hello", ProviderOpenAI), credsFor(ProviderOpenAI))
	require.NoError(t, err)
	assert.Equal(t, []string{"Translate the following English text to Spanish:\n\nHello"}, f.Prompts())
}

// mapCache is a minimal TranslationCache.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}
