package logger

import (
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
)

var (
	llmMu  sync.Mutex
	llmLog *log.Logger
)

// SetLLMWriter enables the prompt/response log. A nil writer disables it.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider, purpose string, sections []llmSection) {
	llmMu.Lock()
	l := llmLog
	llmMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, provider, purpose} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogLLMRequest records the prompt sent to a provider.
func LogLLMRequest(provider, purpose, url, prompt string) {
	logLLM("request", provider, purpose, []llmSection{
		{Title: "URL", Body: url},
		{Title: "PROMPT", Body: prompt},
	})
}

// LogLLMResponse records the raw body a provider returned.
func LogLLMResponse(provider, purpose string, status int, raw string) {
	logLLM("response", provider, purpose, []llmSection{
		{Title: "STATUS", Body: httpStatusLine(status)},
		{Title: "RAW", Body: raw},
	})
}

func httpStatusLine(status int) string {
	if status == 0 {
		return "no response"
	}
	return "HTTP " + strconv.Itoa(status)
}
