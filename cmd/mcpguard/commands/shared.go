package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcpguard/mcpguard/internal/mgconfig"
	"github.com/mcpguard/mcpguard/internal/proxyaudit"
	"github.com/mcpguard/mcpguard/internal/snapshot"
	"github.com/redis/go-redis/v9"
)

func loadConfig(path string) (*mgconfig.Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg := mgconfig.Defaults()
		return cfg, nil
	}
	cfg, err := mgconfig.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func buildSnapshotStore(cfg mgconfig.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case "", "file":
		dir := cfg.Dir
		if dir == "" {
			dir = "./.mcpguard/snapshots"
		}
		return snapshot.NewFileStore(dir)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		return snapshot.NewRedisStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

func buildAuditSink(ctx context.Context, cfg mgconfig.AuditConfig, logger *slog.Logger) (proxyaudit.Sink, error) {
	switch cfg.Backend {
	case "", "sqlite":
		path := cfg.DSN
		if path == "" {
			path = "./.mcpguard/audit.db"
		}
		return proxyaudit.NewSQLiteSink(path, logger, 30)
	case "postgres":
		return proxyaudit.NewPostgresSink(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}
