package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/config"
	"github.com/ZaguanLabs/polytlai/logger"
	"github.com/ZaguanLabs/polytlai/store"
)

func (a *app) diagnose(ctx context.Context, args []string) error {
	keys := keyFlag{}
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	providers := fs.String("providers", "", "Comma separated providers (default: all)")
	fs.Var(keys, "key", "API key as provider=KEY (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids := polytlai.AllProviders()
	if *providers != "" {
		parsed, err := polytlai.ParseProviderList(*providers)
		if err != nil {
			return err
		}
		ids = parsed
	}
	creds, _, err := a.credentials(ctx, keys)
	if err != nil {
		return err
	}
	orch, release, err := newOrchestrator(a.cfg)
	if err != nil {
		return err
	}
	defer release()

	results := orch.Diagnose(ctx, creds, ids)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tRESULT\tTIME\tMESSAGE")
	for _, r := range results {
		status := "FAIL"
		if r.OK {
			status = "OK"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, status, formatElapsed(r.ResponseTime), r.Message)
	}
	return tw.Flush()
}

func (a *app) providers(ctx context.Context) error {
	registry, err := a.cfg.Registry()
	if err != nil {
		return err
	}
	creds, _, err := a.credentials(ctx, keyFlag{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tTIMEOUT\tKEY\tENDPOINT")
	for _, id := range registry.Providers() {
		ad, err := registry.Lookup(id)
		if err != nil {
			return err
		}
		key := "missing"
		if _, ok := creds.Get(id); ok {
			key = "configured"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", id, ad.Name, ad.Model,
			ad.EffectiveTimeout(a.cfg.DefaultTimeout), key, ad.Endpoint)
	}
	return tw.Flush()
}

const keysUsage = `Usage: polytlai keys <set|list|status|clear>
  keys set provider=KEY [provider=KEY ...]   Save keys (merged with saved ones)
  keys list                                  Show saved keys, masked
  keys status                                Show how many keys are saved and when
  keys clear                                 Delete saved keys, selection and preferences`

func (a *app) keys(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stdout, keysUsage)
		return nil
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("keys set needs at least one provider=KEY")
		}
		saved, err := a.store.LoadCredentials(ctx)
		if err != nil {
			return err
		}
		parsed := keyFlag{}
		for _, arg := range args[1:] {
			if err := parsed.Set(arg); err != nil {
				return err
			}
		}
		for id, key := range parsed {
			saved[id] = key
		}
		if err := a.store.SaveCredentials(ctx, saved); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "saved %d API key(s)\n", len(saved.Clone()))
		return nil
	case "list":
		saved, err := a.store.LoadCredentials(ctx)
		if err != nil {
			return err
		}
		for _, id := range polytlai.AllProviders() {
			if key, ok := saved.Get(id); ok {
				fmt.Fprintf(a.stdout, "%-10s %s\n", id, logger.MaskSecret(key))
			}
		}
		return nil
	case "status":
		return a.keyStatus(ctx)
	case "clear":
		if err := a.store.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "cleared saved settings")
		return nil
	default:
		return fmt.Errorf("unknown keys command %q\n\n%s", args[0], keysUsage)
	}
}

func (a *app) keyStatus(ctx context.Context) error {
	has, err := a.store.HasSavedData(ctx)
	if err != nil {
		return err
	}
	if !has {
		fmt.Fprintln(a.stdout, "no saved API keys")
		return nil
	}
	n, err := a.store.SavedCredentialCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d API key(s) saved\n", n)
	at, ok, err := a.store.LastSaveTime(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(a.stdout, "last saved %s\n", at.Local().Format(time.DateTime))
	}
	return nil
}

func (a *app) selectProviders(ctx context.Context, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "list") {
		ids, err := a.store.LoadSelectedProviders(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, joinIDs(ids))
		return nil
	}
	ids, err := polytlai.ParseProviderList(strings.Join(args, ","))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return polytlai.ErrNoProviders
	}
	if err := a.store.SaveSelectedProviders(ctx, ids); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "selected %s\n", joinIDs(ids))
	return nil
}

func joinIDs(ids []polytlai.ProviderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func (a *app) prefs(ctx context.Context, args []string) error {
	p, err := a.store.LoadPreferences(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		printPrefs(a.stdout, p)
		return nil
	}
	if args[0] != "set" || len(args) < 2 {
		return fmt.Errorf("usage: polytlai prefs [set tips=on|off autosave=on|off layout=vertical|horizontal]")
	}
	for _, arg := range args[1:] {
		if err := applyPref(&p, arg); err != nil {
			return err
		}
	}
	if err := a.store.SavePreferences(ctx, p); err != nil {
		return err
	}
	printPrefs(a.stdout, p)
	return nil
}

func applyPref(p *store.Preferences, arg string) error {
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", arg)
	}
	switch strings.ToLower(name) {
	case "tips":
		on, err := parseSwitch(value)
		if err != nil {
			return err
		}
		p.ShowPerformanceTips = on
	case "autosave":
		on, err := parseSwitch(value)
		if err != nil {
			return err
		}
		p.AutoSaveEnabled = on
	case "layout":
		switch value {
		case "vertical":
			p.VerticalLayout = true
		case "horizontal":
			p.VerticalLayout = false
		default:
			return fmt.Errorf("invalid layout %q (vertical or horizontal)", value)
		}
	default:
		return fmt.Errorf("unknown preference %q", name)
	}
	return nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}

func printPrefs(w io.Writer, p store.Preferences) {
	layout := "horizontal"
	if p.VerticalLayout {
		layout = "vertical"
	}
	fmt.Fprintf(w, "tips=%s autosave=%s layout=%s\n", onOff(p.ShowPerformanceTips), onOff(p.AutoSaveEnabled), layout)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// runConfig handles the config subcommand, which needs no settings store.
func runConfig(path string, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: polytlai config <init [--force] [path] | path>")
	}
	switch args[0] {
	case "path":
		fmt.Fprintln(stdout, path)
		return nil
	case "init":
		fs := flag.NewFlagSet("config init", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		if err := config.WriteDefault(path, *force); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
}
