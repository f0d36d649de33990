// Command polytlai sends one text to several AI translation providers at
// once and asks a judge model to compare the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/cache"
	"github.com/ZaguanLabs/polytlai/config"
	"github.com/ZaguanLabs/polytlai/logger"
	"github.com/ZaguanLabs/polytlai/store"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = polytlai.Version
	commit    = polytlai.GitCommit
	buildDate = polytlai.BuildDate
)

const usage = `polytlai translates text with several AI providers in parallel.

Usage:
  polytlai [global flags] <command> [flags] [args]

Commands:
  translate   Translate text, a file, or stdin (-i for line-by-line mode)
  diagnose    Probe provider connectivity with a short test request
  providers   List providers, models and whether a key is configured
  keys        Manage saved API keys (set, list, status, clear)
  select      Show or save the default provider selection
  prefs       Show or change preferences (tips, autosave, layout)
  config      Write a starting config file (init) or print its path (path)

Global flags:
  -config string     Config file (default: $POLYTLAI_CONFIG or the user config dir)
  -store string      Settings database (overrides store.path)
  -log-level string  debug, info, warn or error
  -version           Show version`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	logLevel   string // -log-level override, reapplied on reload
	cfg        *config.Config
	store      *store.ConfigStore
	closers    []io.Closer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("polytlai", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage) }

	configPath := fs.String("config", "", "Config file")
	storePath := fs.String("store", "", "Settings database")
	logLevel := fs.String("log-level", "", "Log level")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", polytlai.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stdout, usage)
		return nil
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	case "config":
		return runConfig(resolveConfigPath(*configPath), rest, stdout)
	}

	a, err := newApp(*configPath, *storePath, *logLevel, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "translate":
		return a.translate(ctx, rest)
	case "diagnose":
		return a.diagnose(ctx, rest)
	case "providers":
		return a.providers(ctx)
	case "keys":
		return a.keys(ctx, rest)
	case "select":
		return a.selectProviders(ctx, rest)
	case "prefs":
		return a.prefs(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

// resolveConfigPath returns the flag value, then $POLYTLAI_CONFIG, then the
// default path.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("POLYTLAI_CONFIG"); env != "" {
		return env
	}
	return config.DefaultPath()
}

func newApp(configPath, storePath, logLevel string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger.SetOutput(stderr)

	path := resolveConfigPath(configPath)
	loadPath := path
	if configPath == "" {
		// The implicit default file is optional.
		if _, err := os.Stat(path); err != nil {
			loadPath = ""
		}
	}
	cfg, err := config.Load(loadPath)
	if err != nil {
		return nil, err
	}
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, configPath: loadPath, logLevel: logLevel}
	a.apply(cfg)

	if cfg.LLMLog != "" {
		f, err := os.OpenFile(cfg.LLMLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open llm log: %w", err)
		}
		logger.SetLLMWriter(f)
		a.closers = append(a.closers, f)
	}

	if storePath == "" {
		storePath = cfg.Store.Path
	}
	kv, err := store.OpenGormKV(storePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store.NewConfigStore(kv)
	a.closers = append(a.closers, a.store)
	return a, nil
}

// apply installs cfg with the command-line overrides on top.
func (a *app) apply(cfg *config.Config) *config.Config {
	next := *cfg
	if a.logLevel != "" {
		next.LogLevel = a.logLevel
	}
	logger.SetLevel(next.LogLevel)
	a.cfg = &next
	return a.cfg
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
	a.closers = nil
	logger.SetLLMWriter(nil)
}

// newOrchestrator builds an orchestrator from cfg. The returned func releases
// the cache connection.
func newOrchestrator(cfg *config.Config) (*polytlai.Orchestrator, func(), error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, nil, err
	}

	release := func() {}
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: %w", err)
		}
		opts = append(opts, polytlai.WithCache(c))
		release = func() { _ = c.Close() }
	}
	return polytlai.NewOrchestrator(registry, opts...), release, nil
}

// envKeys names the conventional environment variable of each provider.
var envKeys = map[polytlai.ProviderID]string{
	polytlai.ProviderOpenAI:   "OPENAI_API_KEY",
	polytlai.ProviderGemini:   "GEMINI_API_KEY",
	polytlai.ProviderDeepSeek: "DEEPSEEK_API_KEY",
	polytlai.ProviderClaude:   "ANTHROPIC_API_KEY",
	polytlai.ProviderQwen:     "DASHSCOPE_API_KEY",
}

// keyFlag collects repeated -key provider=KEY flags.
type keyFlag polytlai.Credentials

func (k keyFlag) String() string {
	return fmt.Sprintf("%d key(s)", len(k))
}

func (k keyFlag) Set(v string) error {
	name, key, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected provider=KEY, got %q", v)
	}
	id, err := polytlai.ParseProviderID(name)
	if err != nil {
		return err
	}
	k[id] = strings.TrimSpace(key)
	return nil
}

// credentials merges saved keys, then the environment, then explicit flags.
// The second result holds only the keys that did not come from the store.
func (a *app) credentials(ctx context.Context, flags keyFlag) (polytlai.Credentials, polytlai.Credentials, error) {
	creds, err := a.store.LoadCredentials(ctx)
	if err != nil {
		return nil, nil, err
	}
	supplied := polytlai.Credentials{}
	for id, name := range envKeys {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			supplied[id] = v
		}
	}
	for id, v := range flags {
		supplied[id] = v
	}
	for id, v := range supplied.Clone() {
		creds[id] = v
	}
	return creds, supplied.Clone(), nil
}
