package config

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ZaguanLabs/polytlai/logger"
)

// Watcher keeps the latest valid Config for a file and reloads it when the
// file changes. An invalid edit is logged and the previous Config is kept.
type Watcher struct {
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// Watch loads path and starts watching it.
func Watch(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watch requires path")
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	w := &Watcher{current: cfg}
	v.OnConfigChange(func(evt fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.swap(next)
		logger.Infof("config reloaded from %s", evt.Name)
	})
	v.WatchConfig()
	return w, nil
}

// Current returns the latest valid Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

func (w *Watcher) swap(cfg *Config) {
	w.mu.Lock()
	w.current = cfg
	listeners := slices.Clone(w.onChange)
	w.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("config listener panic: %v", r)
				}
			}()
			fn(cfg)
		}()
	}
}
