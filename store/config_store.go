package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/logger"
)

const (
	keyCredentials = "api_keys"
	keySelection   = "selected_providers"
	keyPreferences = "user_preferences"
	keySaveTime    = "api_keys_save_time"
)

// Preferences are the user's display and persistence settings.
type Preferences struct {
	ShowPerformanceTips bool `json:"show_performance_tips"`
	AutoSaveEnabled     bool `json:"auto_save_enabled"`
	VerticalLayout      bool `json:"vertical_layout"`
}

// DefaultPreferences applies when nothing has been saved.
func DefaultPreferences() Preferences {
	return Preferences{
		ShowPerformanceTips: false,
		AutoSaveEnabled:     true,
		VerticalLayout:      true,
	}
}

// ConfigStore is the typed view over a KV backend.
type ConfigStore struct {
	kv  KV
	now func() time.Time
}

// NewConfigStore wraps kv.
func NewConfigStore(kv KV) *ConfigStore {
	return &ConfigStore{kv: kv, now: time.Now}
}

// Close releases the backend.
func (s *ConfigStore) Close() error {
	return s.kv.Close()
}

// SaveCredentials stores the configured keys and stamps the save time.
// Blank values are dropped.
func (s *ConfigStore) SaveCredentials(ctx context.Context, creds polytlai.Credentials) error {
	out := make(map[string]string)
	for id, key := range creds.Clone() {
		out[string(id)] = key
	}
	if err := s.setJSON(ctx, keyCredentials, out); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	if err := s.kv.Set(ctx, keySaveTime, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// LoadCredentials returns the saved keys, or an empty set.
func (s *ConfigStore) LoadCredentials(ctx context.Context) (polytlai.Credentials, error) {
	var raw map[string]string
	if _, err := s.getJSON(ctx, keyCredentials, &raw); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	creds := polytlai.Credentials{}
	for k, v := range raw {
		id, err := polytlai.ParseProviderID(k)
		if err != nil {
			logger.Warnf("ignoring saved key for %q: %v", k, err)
			continue
		}
		creds[id] = v
	}
	return creds.Clone(), nil
}

// SaveSelectedProviders stores the provider selection.
func (s *ConfigStore) SaveSelectedProviders(ctx context.Context, ids []polytlai.ProviderID) error {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	if err := s.setJSON(ctx, keySelection, names); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// LoadSelectedProviders returns the saved selection, or the default one.
func (s *ConfigStore) LoadSelectedProviders(ctx context.Context) ([]polytlai.ProviderID, error) {
	var names []string
	found, err := s.getJSON(ctx, keySelection, &names)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	if !found {
		return polytlai.DefaultSelection(), nil
	}

	ids := make([]polytlai.ProviderID, 0, len(names))
	for _, name := range names {
		id, err := polytlai.ParseProviderID(name)
		if err != nil {
			logger.Warnf("ignoring saved selection %q: %v", name, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SavePreferences stores p.
func (s *ConfigStore) SavePreferences(ctx context.Context, p Preferences) error {
	if err := s.setJSON(ctx, keyPreferences, p); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// LoadPreferences returns the saved preferences. Fields missing from the
// stored value keep their defaults.
func (s *ConfigStore) LoadPreferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()
	if _, err := s.getJSON(ctx, keyPreferences, &p); err != nil {
		return DefaultPreferences(), fmt.Errorf("load preferences: %w", err)
	}
	return p, nil
}

// ClearAll removes every saved value.
func (s *ConfigStore) ClearAll(ctx context.Context) error {
	return s.kv.Delete(ctx, keyCredentials, keySelection, keyPreferences, keySaveTime)
}

// HasSavedData reports whether credentials have ever been saved.
func (s *ConfigStore) HasSavedData(ctx context.Context) (bool, error) {
	_, ok, err := s.kv.Get(ctx, keyCredentials)
	return ok, err
}

// SavedCredentialCount returns the number of saved keys.
func (s *ConfigStore) SavedCredentialCount(ctx context.Context) (int, error) {
	creds, err := s.LoadCredentials(ctx)
	if err != nil {
		return 0, err
	}
	return len(creds), nil
}

// LastSaveTime returns when credentials were last saved.
func (s *ConfigStore) LastSaveTime(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.kv.Get(ctx, keySaveTime)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse save time %q: %w", v, err)
	}
	return t, true, nil
}

func (s *ConfigStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(raw))
}

func (s *ConfigStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
