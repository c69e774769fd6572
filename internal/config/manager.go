package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Dynamic holds the tunables that may change at runtime without a restart.
// Everything else in Config requires a process restart to take effect.
type Dynamic struct {
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
	RateLimitBurst  int `yaml:"rate_limit_burst"`
	LogLevel        string `yaml:"log_level"`
}

// ChangeHandler is called with the freshly parsed dynamic tunables.
type ChangeHandler func(Dynamic)

// Manager watches a dynamic-tunables file and re-applies it on change.
type Manager struct {
	path     string
	watcher  *fsnotify.Watcher
	handlers []ChangeHandler
	current  Dynamic
	logger   *zap.Logger
	stopCh   chan struct{}
	mu       sync.RWMutex
	started  bool
}

// NewManager creates a manager for the given tunables file. The file may not
// exist yet; it is picked up when created.
func NewManager(path string, logger *zap.Logger) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("tunables path cannot be empty")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Manager{
		path:    path,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// OnChange registers a handler invoked on every successful reload, including
// the initial load during Start.
func (m *Manager) OnChange(h ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Current returns the last successfully loaded tunables.
func (m *Manager) Current() Dynamic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Start loads the file once and begins watching for changes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.watcher.Add(dirOf(m.path)); err != nil {
		return fmt.Errorf("watch tunables dir: %w", err)
	}

	if err := m.reload(); err != nil {
		m.logger.Warn("Initial tunables load failed, using zero values",
			zap.String("path", m.path), zap.Error(err))
	}

	go m.watchLoop(ctx)
	m.logger.Info("Config manager started", zap.String("path", m.path))
	return nil
}

// Stop terminates the watch loop.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.watcher.Close()
}

func (m *Manager) watchLoop(ctx context.Context) {
	// Debounce bursts of events from editors that write-then-rename.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Name != m.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(200 * time.Millisecond)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Tunables watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := m.reload(); err != nil {
				m.logger.Error("Tunables reload failed", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var d Dynamic
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("parse tunables: %w", err)
	}

	m.mu.Lock()
	m.current = d
	handlers := make([]ChangeHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, h := range handlers {
		h(d)
	}
	m.logger.Info("Tunables applied", zap.String("path", m.path))
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "."
}
