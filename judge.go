package polytlai

import (
	"context"
	"time"

	"github.com/ZaguanLabs/polytlai/logger"
)

// SelectAnalysisProvider returns the first provider in priority order that
// has both a credential and a registered adapter. The judge provider need
// not be one of the selected translators.
func SelectAnalysisProvider(registry *Registry, priority []ProviderID, creds Credentials) (Adapter, string, error) {
	for _, id := range priority {
		key, ok := creds.Get(id)
		if !ok {
			continue
		}
		adapter, err := registry.Lookup(id)
		if err != nil {
			continue
		}
		return adapter, key, nil
	}
	return Adapter{}, "", &NoAnalysisCredentialError{Priority: priority}
}

// analyze issues the single judge call over the successful translations.
// Failures only ever affect the analysis entry.
func (o *Orchestrator) analyze(ctx context.Context, req TranslationRequest, creds Credentials, successes []ResultEntry) ResultEntry {
	adapter, key, err := SelectAnalysisProvider(o.registry, o.priority, creds)
	if err != nil {
		logger.Warnf("analysis skipped: %v", err)
		return failureEntry(AnalysisKey, AnalysisName, true, err)
	}

	logger.Infof("analysis of %d translations via %s", len(successes), adapter.ID)
	text, elapsed, err := o.call(ctx, callSpec{
		adapter:    adapter,
		credential: key,
		prompt:     AnalysisPrompt(req.Text, req.SourceLang, req.TargetLang, successes),
		timeout:    o.analysisTimeout,
		purpose:    "analysis",
		emptyMsg:   "analysis result empty",
	})
	if err != nil {
		logger.Warnf("analysis failed: %v", err)
		entry := failureEntry(AnalysisKey, AnalysisName, true, err)
		entry.Judge = adapter.ID
		entry.Elapsed = elapsed
		return entry
	}

	return ResultEntry{
		Key:       AnalysisKey,
		Name:      AnalysisName,
		Status:    StatusSuccess,
		Analysis:  true,
		Text:      text,
		Quality:   AnalysisQuality,
		Judge:     adapter.ID,
		Elapsed:   elapsed,
		UpdatedAt: time.Now(),
	}
}
