package mgconfig

import (
	"fmt"
	"os"

	"github.com/mcpguard/mcpguard/internal/detect"
	"github.com/mcpguard/mcpguard/internal/safefile"
	"gopkg.in/yaml.v3"
)

// Config is the top-level mcpguard configuration file.
type Config struct {
	Version   string            `yaml:"version"`
	LogLevel  string            `yaml:"log_level,omitempty"`
	Servers   []rawServerConfig `yaml:"servers,omitempty"`
	RulesPath string            `yaml:"rules_path,omitempty"`
	Snapshot  SnapshotConfig    `yaml:"snapshot,omitempty"`
	Audit     AuditConfig       `yaml:"audit,omitempty"`
	Tracing   TracingConfig     `yaml:"tracing,omitempty"`
	Overrides []OverrideConfig  `yaml:"overrides,omitempty"`
}

// rawServerConfig is the on-disk shape of a ServerConfig entry.
type rawServerConfig struct {
	Name      string            `yaml:"name"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Transport string            `yaml:"transport,omitempty"`
	URL       string            `yaml:"url,omitempty"`
}

// OverrideConfig is the on-disk shape of a per-threat-ID override: silence
// a known-acceptable finding, or re-rate its severity for this deployment.
type OverrideConfig struct {
	ID     string `yaml:"id"`
	Ignore bool   `yaml:"ignore,omitempty"`
	Rerate string `yaml:"rerate,omitempty"` // severity name, e.g. "low"; ignored when Ignore is set
}

// SnapshotConfig configures the description-drift snapshot store.
type SnapshotConfig struct {
	Backend string `yaml:"backend,omitempty"` // "file" (default) or "redis"
	Dir     string `yaml:"dir,omitempty"`     // file backend: directory to store snapshots in
	Addr    string `yaml:"addr,omitempty"`    // redis backend: host:port
}

// AuditConfig configures the proxy's audit sink.
type AuditConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" (default) or "postgres"
	DSN     string `yaml:"dsn,omitempty"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// normalizeTransport maps the on-disk transport string (defaulting to
// stdio when unset) to its Transport constant.
func normalizeTransport(raw string) (Transport, error) {
	switch raw {
	case "", "stdio":
		return TransportStdio, nil
	case "sse":
		return TransportSSE, nil
	case "streamable_http":
		return TransportStreamableHTTP, nil
	default:
		return "", fmt.Errorf("invalid transport %q", raw)
	}
}

// ServerConfigs converts the on-disk server list to ServerConfig values.
func (c *Config) ServerConfigs() ([]ServerConfig, error) {
	out := make([]ServerConfig, 0, len(c.Servers))
	for _, raw := range c.Servers {
		sc := ServerConfig{
			Name:    raw.Name,
			Command: raw.Command,
			Args:    raw.Args,
			Env:     raw.Env,
			URL:     raw.URL,
			Source:  Source{ClientName: "config"},
		}
		if sc.Env == nil {
			sc.Env = make(map[string]string)
		}
		transport, err := normalizeTransport(raw.Transport)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", raw.Name, err)
		}
		sc.Transport = transport
		out = append(out, sc)
	}
	return out, nil
}

// DetectOverrides converts the on-disk override list to detect.Override
// values. Call after Validate, which rejects an unparseable Rerate.
func (c *Config) DetectOverrides() ([]detect.Override, error) {
	out := make([]detect.Override, len(c.Overrides))
	for i, o := range c.Overrides {
		out[i] = detect.Override{ID: o.ID, Ignore: o.Ignore}
		if !o.Ignore && o.Rerate != "" {
			sev, err := detect.ParseSeverity(o.Rerate)
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", o.ID, err)
			}
			out[i].Rerate = sev
		}
	}
	return out, nil
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Version:  "1",
		LogLevel: "info",
		Snapshot: SnapshotConfig{Backend: "file", Dir: "./.mcpguard/snapshots"},
		Audit:    AuditConfig{Backend: "sqlite", DSN: "./.mcpguard/audit.db"},
	}
}

// Load reads and parses a config file at path, applying defaults for any
// zero-valued field left unset by the file.
func Load(path string) (*Config, error) {
	data, err := safefile.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = "file"
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	return cfg, nil
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid snapshot.backend %q (must be file or redis)", c.Snapshot.Backend)
	}
	if c.Snapshot.Backend == "redis" && c.Snapshot.Addr == "" {
		return fmt.Errorf("snapshot.addr is required when snapshot.backend is redis")
	}
	switch c.Audit.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid audit.backend %q (must be sqlite or postgres)", c.Audit.Backend)
	}
	if c.Audit.Backend == "postgres" && c.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit.backend is postgres")
	}
	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("server entry missing name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true
		transport, err := normalizeTransport(s.Transport)
		if err != nil {
			return fmt.Errorf("server %q: %w", s.Name, err)
		}
		switch transport {
		case TransportStdio:
			if s.Command == "" {
				return fmt.Errorf("server %q: command is required for stdio transport", s.Name)
			}
		case TransportSSE, TransportStreamableHTTP:
			if s.URL == "" {
				return fmt.Errorf("server %q: url is required for %s transport", s.Name, transport)
			}
		}
	}
	for _, o := range c.Overrides {
		if o.ID == "" {
			return fmt.Errorf("override entry missing id")
		}
		if !o.Ignore && o.Rerate != "" {
			if _, err := detect.ParseSeverity(o.Rerate); err != nil {
				return fmt.Errorf("override %q: %w", o.ID, err)
			}
		}
	}
	return nil
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
