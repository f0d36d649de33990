package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/config"
	"github.com/ZaguanLabs/polytlai/logger"
	"github.com/ZaguanLabs/polytlai/processor"
	"github.com/ZaguanLabs/polytlai/store"
)

// errAllFailed is returned when a run produced no translation at all.
var errAllFailed = errors.New("all providers failed")

type translateOptions struct {
	providers   string
	source      string
	target      string
	text        string
	jsonOut     bool
	layout      string
	quiet       bool
	interactive bool
	keys        keyFlag
}

func (a *app) translate(ctx context.Context, args []string) error {
	opts := translateOptions{keys: keyFlag{}}
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&opts.providers, "providers", "", "Comma separated providers (default: saved selection)")
	fs.StringVar(&opts.source, "source", "", "Source language (default: config source_lang)")
	fs.StringVar(&opts.target, "target", "", "Target language (default: config target_lang)")
	fs.StringVar(&opts.text, "text", "", "Text to translate")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the settled run as JSON")
	fs.StringVar(&opts.layout, "layout", "", "vertical or horizontal (default: saved preference)")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not stream progress to stderr")
	fs.BoolVar(&opts.interactive, "i", false, "Translate stdin line by line")
	fs.BoolVar(&opts.interactive, "interactive", false, "Translate stdin line by line")
	fs.Var(opts.keys, "key", "API key as provider=KEY (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prefs, err := a.store.LoadPreferences(ctx)
	if err != nil {
		return err
	}
	if opts.layout != "" {
		if opts.layout != "vertical" && opts.layout != "horizontal" {
			return fmt.Errorf("invalid layout %q (vertical or horizontal)", opts.layout)
		}
		prefs.VerticalLayout = opts.layout == "vertical"
	}

	selection, err := a.selection(ctx, opts.providers)
	if err != nil {
		return err
	}
	creds, supplied, err := a.credentials(ctx, opts.keys)
	if err != nil {
		return err
	}

	if opts.interactive {
		return a.interactive(ctx, selection, creds, supplied, prefs, opts)
	}

	text, err := a.readInput(opts.text, fs.Args())
	if err != nil {
		return err
	}

	orch, release, err := newOrchestrator(a.cfg)
	if err != nil {
		return err
	}
	defer release()

	req := polytlai.TranslationRequest{
		Text:       text,
		Providers:  selection,
		SourceLang: opts.source,
		TargetLang: opts.target,
	}
	outcome, err := a.translateOnce(ctx, orch, req, creds, prefs, opts)
	if err != nil {
		return err
	}
	a.autoSave(ctx, prefs, creds, supplied)
	return a.check(ctx, outcome)
}

// selection resolves the provider list from the flag or the saved selection.
func (a *app) selection(ctx context.Context, flagValue string) ([]polytlai.ProviderID, error) {
	if strings.TrimSpace(flagValue) != "" {
		return polytlai.ParseProviderList(flagValue)
	}
	return a.store.LoadSelectedProviders(ctx)
}

// readInput takes --text, a file argument or stdin, in that order.
func (a *app) readInput(text string, args []string) (string, error) {
	if text != "" {
		return text, nil
	}
	if len(args) > 0 {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return processor.ForPath(path).Extract(string(data))
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// translateOnce starts a run, streams progress and renders the settled
// outcome.
func (a *app) translateOnce(ctx context.Context, orch *polytlai.Orchestrator, req polytlai.TranslationRequest, creds polytlai.Credentials, prefs store.Preferences, opts translateOptions) (*polytlai.Outcome, error) {
	run, err := orch.Start(ctx, req, creds)
	if err != nil {
		return nil, err
	}

	if !opts.quiet {
		fmt.Fprintf(a.stderr, "Translating %s → %s with %d provider(s)\n",
			polytlai.GetLanguageName(run.Request.SourceLang),
			polytlai.GetLanguageName(run.Request.TargetLang),
			len(run.Request.Providers))
	}
	for e := range run.Updates() {
		if opts.quiet || e.Status == polytlai.StatusPending {
			continue
		}
		fmt.Fprintln(a.stderr, progressLine(e))
	}

	outcome, err := run.Wait(context.Background())
	if err != nil {
		return nil, err
	}

	if opts.jsonOut {
		if err := writeJSON(a.stdout, run.Request, outcome); err != nil {
			return nil, err
		}
	} else if prefs.VerticalLayout {
		renderVertical(a.stdout, outcome)
	} else {
		renderHorizontal(a.stdout, outcome)
	}

	if prefs.ShowPerformanceTips && !opts.quiet {
		renderTips(a.stderr, len(run.Request.Providers))
	}
	return outcome, nil
}

func (a *app) check(ctx context.Context, outcome *polytlai.Outcome) error {
	if outcome.Canceled && ctx.Err() != nil {
		return ctx.Err()
	}
	if outcome.Succeeded() == 0 {
		return errAllFailed
	}
	return nil
}

// autoSave stores keys given through flags or the environment when the user
// has auto-save enabled.
func (a *app) autoSave(ctx context.Context, prefs store.Preferences, creds, supplied polytlai.Credentials) {
	if !prefs.AutoSaveEnabled || len(supplied) == 0 {
		return
	}
	if err := a.store.SaveCredentials(ctx, creds); err != nil {
		logger.Warnf("auto-save API keys failed: %v", err)
		return
	}
	logger.Debugf("auto-saved %d API key(s)", len(creds))
}

// interactive translates each stdin line. When a config file is in use it is
// watched and the orchestrator is rebuilt after every valid edit.
func (a *app) interactive(ctx context.Context, selection []polytlai.ProviderID, creds, supplied polytlai.Credentials, prefs store.Preferences, opts translateOptions) error {
	cfg := a.cfg
	var reload atomic.Bool
	var watcher *config.Watcher
	if a.configPath != "" {
		w, err := config.Watch(a.configPath)
		if err != nil {
			return err
		}
		watcher = w
		watcher.OnChange(func(*config.Config) { reload.Store(true) })
	}

	orch, release, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer func() { release() }()

	if !opts.quiet {
		fmt.Fprintln(a.stderr, "Enter text to translate, one line per run. Type :q to quit.")
	}
	saved := false
	scanner := bufio.NewScanner(a.stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":q" || line == ":quit" {
			break
		}

		if reload.Swap(false) {
			next, nextRelease, err := newOrchestrator(a.apply(watcher.Current()))
			if err != nil {
				logger.Errorf("keeping previous settings: %v", err)
			} else {
				release()
				orch, release = next, nextRelease
				logger.Infof("settings reloaded")
			}
		}

		req := polytlai.TranslationRequest{
			Text:       line,
			Providers:  selection,
			SourceLang: opts.source,
			TargetLang: opts.target,
		}
		outcome, err := a.translateOnce(ctx, orch, req, creds, prefs, opts)
		if err != nil {
			var missing *polytlai.MissingCredentialsError
			if errors.As(err, &missing) {
				return err
			}
			fmt.Fprintf(a.stderr, "error: %v\n", err)
			continue
		}
		if outcome.Succeeded() > 0 && !saved {
			a.autoSave(ctx, prefs, creds, supplied)
			saved = true
		}
	}
	return scanner.Err()
}

// jsonRun is the --json output document.
type jsonRun struct {
	RunID      string                 `json:"run_id"`
	SourceLang string                 `json:"source_lang"`
	TargetLang string                 `json:"target_lang"`
	Canceled   bool                   `json:"canceled,omitempty"`
	ElapsedMS  int64                  `json:"elapsed_ms"`
	Entries    []polytlai.ResultEntry `json:"entries"`
}

func writeJSON(w io.Writer, req polytlai.TranslationRequest, outcome *polytlai.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonRun{
		RunID:      outcome.RunID,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Canceled:   outcome.Canceled,
		ElapsedMS:  outcome.Elapsed.Milliseconds(),
		Entries:    outcome.Entries,
	})
}
