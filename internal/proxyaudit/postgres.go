package proxyaudit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tool_call_log (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	server_name TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	tool_args JSONB,
	result JSONB,
	blocked BOOLEAN NOT NULL,
	block_reason TEXT,
	duration_ms BIGINT
);

CREATE INDEX IF NOT EXISTS idx_tool_call_server ON tool_call_log(server_name);
CREATE INDEX IF NOT EXISTS idx_tool_call_tool ON tool_call_log(tool_name);
CREATE INDEX IF NOT EXISTS idx_tool_call_timestamp ON tool_call_log(timestamp);
`

// PostgresSink persists audit entries to a Postgres table via a connection
// pool, demonstrating that proxyaudit.Sink is swappable storage rather than
// a single hardcoded backend.
type PostgresSink struct {
	pool   *pgxpool.Pool
	writes chan AuditEntry
	done   chan struct{}
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewPostgresSink connects to dsn and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("proxyaudit: connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("proxyaudit: creating schema: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresSink{
		pool:   pool,
		writes: make(chan AuditEntry, 256),
		done:   make(chan struct{}),
		logger: logger,
		cancel: cancel,
	}
	go s.writeLoop(loopCtx)
	return s, nil
}

// Record implements Sink.
func (s *PostgresSink) Record(entry AuditEntry) {
	select {
	case s.writes <- entry:
	default:
		s.logger.Warn("proxyaudit: write buffer full, dropping entry", "tool", entry.ToolName)
	}
}

func (s *PostgresSink) writeLoop(ctx context.Context) {
	defer close(s.done)
	for entry := range s.writes {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO tool_call_log (timestamp, server_name, tool_name, tool_args, result, blocked, block_reason, duration_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entry.Timestamp, entry.ServerName, entry.ToolName, nullableRaw(entry.ToolArgs), nullableRaw(entry.Result),
			entry.Blocked, entry.BlockReason, entry.DurationMs,
		)
		if err != nil {
			s.logger.Error("proxyaudit: write failed", "tool", entry.ToolName, "error", err)
		}
	}
}

// Query returns the most recent matching entries, newest first.
func (s *PostgresSink) Query(ctx context.Context, opts QueryOpts) ([]AuditEntry, error) {
	query := `SELECT id, timestamp, server_name, tool_name, COALESCE(tool_args::text, ''), COALESCE(result::text, ''), blocked, COALESCE(block_reason, ''), duration_ms FROM tool_call_log WHERE TRUE`
	var args []any
	argN := 0
	next := func() string { argN++; return fmt.Sprintf("$%d", argN) }

	if opts.ServerName != "" {
		query += " AND server_name = " + next()
		args = append(args, opts.ServerName)
	}
	if opts.ToolName != "" {
		query += " AND tool_name = " + next()
		args = append(args, opts.ToolName)
	}
	if opts.BlockedOnly {
		query += " AND blocked = TRUE"
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= " + next()
		args = append(args, opts.Since)
	}
	query += " ORDER BY timestamp DESC LIMIT " + next()
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("proxyaudit: querying: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var toolArgs, result string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ServerName, &e.ToolName, &toolArgs, &result, &e.Blocked, &e.BlockReason, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("proxyaudit: scanning row: %w", err)
		}
		if toolArgs != "" {
			e.ToolArgs = []byte(toolArgs)
		}
		if result != "" {
			e.Result = []byte(result)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close stops the write loop and closes the pool.
func (s *PostgresSink) Close() error {
	s.cancel()
	close(s.writes)
	<-s.done
	s.pool.Close()
	return nil
}

func nullableRaw(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
