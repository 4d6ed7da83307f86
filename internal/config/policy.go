package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// CapabilityRule maps an object-path prefix to a capability number. The
// rules are loaded and counted by sdbusd serve; the engine's access check
// does not read them and uses only the capability tags on vtables.
type CapabilityRule struct {
	PathPrefix string `yaml:"path_prefix"`
	Capability uint32 `yaml:"capability"`
}

// CapabilityPolicy is the parsed contents of a policy file.
type CapabilityPolicy struct {
	Rules []CapabilityRule `yaml:"rules"`
}

// LoadCapabilityPolicy reads and parses a policy file from path.
func LoadCapabilityPolicy(path string) (*CapabilityPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability policy %s: %w", path, err)
	}
	var policy CapabilityPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse capability policy %s: %w", path, err)
	}
	return &policy, nil
}

// PolicyWatcher holds the current CapabilityPolicy and reloads it whenever
// its backing file changes, without restarting the daemon.
type PolicyWatcher struct {
	mu     sync.RWMutex
	path   string
	policy *CapabilityPolicy
	logger *slog.Logger
	watcher *fsnotify.Watcher
}

// WatchCapabilityPolicy loads path once, then starts a background watch
// for subsequent changes if enabled. Callers must call Close when done.
func WatchCapabilityPolicy(path string, enabled bool, logger *slog.Logger) (*PolicyWatcher, error) {
	policy, err := LoadCapabilityPolicy(path)
	if err != nil {
		return nil, err
	}
	pw := &PolicyWatcher{path: path, policy: policy, logger: logger}
	if !enabled {
		return pw, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create capability policy watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch capability policy %s: %w", path, err)
	}
	pw.watcher = w
	go pw.run()
	return pw, nil
}

func (pw *PolicyWatcher) run() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			policy, err := LoadCapabilityPolicy(pw.path)
			if err != nil {
				pw.logger.Error("capability policy reload failed, keeping previous policy", "path", pw.path, "error", err)
				continue
			}
			pw.mu.Lock()
			pw.policy = policy
			pw.mu.Unlock()
			pw.logger.Info("capability policy reloaded", "path", pw.path, "rules", len(policy.Rules))
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Error("capability policy watcher error", "error", err)
		}
	}
}

// Current returns the most recently loaded policy.
func (pw *PolicyWatcher) Current() *CapabilityPolicy {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.policy
}

// Close stops the background watch, if any.
func (pw *PolicyWatcher) Close() error {
	if pw.watcher == nil {
		return nil
	}
	return pw.watcher.Close()
}
