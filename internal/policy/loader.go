package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/mcpguard/mcpguard/internal/safefile"
	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of a rule file: a bare list under a
// top-level `rules:` key.
type ruleFile struct {
	Rules []ProxyRule `yaml:"rules"`
}

// LoadRules reads and parses a YAML rule file at path.
func LoadRules(path string) ([]ProxyRule, error) {
	data, err := safefile.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: reading rule file: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("policy: parsing rule file: %w", err)
	}
	return f.Rules, nil
}

// WatchFile loads path into engine immediately, then watches it for writes
// and reloads on every change until ctx is canceled. A reload that fails
// to parse or compile is logged and ignored — the engine keeps running on
// its last-known-good rule set rather than going rule-less.
func WatchFile(ctx context.Context, path string, engine *RuleEngine, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := LoadRules(path)
	if err != nil {
		return err
	}
	if err := engine.Replace(rules); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy: starting rule file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("policy: watching rule file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := LoadRules(path)
				if err != nil {
					logger.Warn("reloading rule file failed, keeping previous rules", "path", path, "error", err)
					continue
				}
				if err := engine.Replace(reloaded); err != nil {
					logger.Warn("applying reloaded rules failed, keeping previous rules", "path", path, "error", err)
					continue
				}
				logger.Info("reloaded rule file", "path", path, "rules", len(reloaded))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("rule file watcher error", "error", err)
			}
		}
	}()

	return nil
}
