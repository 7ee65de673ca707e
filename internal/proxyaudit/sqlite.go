package proxyaudit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mcpguard/mcpguard/internal/safefile"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tool_call_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	server_name TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	tool_args TEXT,
	result TEXT,
	blocked INTEGER NOT NULL,
	block_reason TEXT,
	duration_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_tool_call_server ON tool_call_log(server_name);
CREATE INDEX IF NOT EXISTS idx_tool_call_tool ON tool_call_log(tool_name);
CREATE INDEX IF NOT EXISTS idx_tool_call_timestamp ON tool_call_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_tool_call_blocked ON tool_call_log(blocked);
`

// SQLiteSink persists audit entries to a local SQLite database, writing
// asynchronously through a buffered channel so a slow disk never stalls the
// proxy's hot path.
type SQLiteSink struct {
	db            *sql.DB
	writes        chan AuditEntry
	done          chan struct{}
	logger        *slog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	retentionDays int
}

// NewSQLiteSink opens (or creates) the SQLite audit database at dbPath.
// retentionDays, if positive, enables a background purge of entries older
// than that many days. The parent directory and the database file itself
// are rejected if either is a symlink.
func NewSQLiteSink(dbPath string, logger *slog.Logger, retentionDays int) (*SQLiteSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		parentDir := filepath.Dir(dbPath)
		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("proxyaudit: db parent directory is a symlink: %s", parentDir)
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := safefile.RejectSymlink(dbPath); err != nil {
				return nil, fmt.Errorf("proxyaudit: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("proxyaudit: opening db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("proxyaudit: setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("proxyaudit: setting busy_timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("proxyaudit: creating schema: %w", err)
	}
	if _, err := db.Exec("ANALYZE"); err != nil {
		logger.Warn("proxyaudit: ANALYZE failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SQLiteSink{
		db:            db,
		writes:        make(chan AuditEntry, 256),
		done:          make(chan struct{}),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		retentionDays: retentionDays,
	}

	go s.writeLoop()
	go s.expiryLoop()
	return s, nil
}

// Record implements Sink by enqueuing entry for async writing. If the
// write buffer is full the entry is dropped and logged — a backed-up audit
// log must never apply backpressure to tool calls.
func (s *SQLiteSink) Record(entry AuditEntry) {
	select {
	case s.writes <- entry:
	default:
		s.logger.Warn("proxyaudit: write buffer full, dropping entry", "tool", entry.ToolName)
	}
}

func (s *SQLiteSink) writeLoop() {
	defer close(s.done)
	for entry := range s.writes {
		_, err := s.db.Exec(
			`INSERT INTO tool_call_log (timestamp, server_name, tool_name, tool_args, result, blocked, block_reason, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.Timestamp.Format(time.RFC3339), entry.ServerName, entry.ToolName,
			nullableJSON(entry.ToolArgs), nullableJSON(entry.Result), entry.Blocked, entry.BlockReason, entry.DurationMs,
		)
		if err != nil {
			s.logger.Error("proxyaudit: write failed", "tool", entry.ToolName, "error", err)
		}
	}
}

func (s *SQLiteSink) expiryLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.retentionDays <= 0 {
				continue
			}
			if n, err := s.purgeOlderThan(s.retentionDays); err != nil {
				s.logger.Error("proxyaudit: purge failed", "error", err)
			} else if n > 0 {
				s.logger.Info("proxyaudit: purged old entries", "count", n)
			}
		}
	}
}

func (s *SQLiteSink) purgeOlderThan(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM tool_call_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("proxyaudit: purging: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Query returns the most recent matching entries, newest first.
func (s *SQLiteSink) Query(opts QueryOpts) ([]AuditEntry, error) {
	query := "SELECT id, timestamp, server_name, tool_name, COALESCE(tool_args,''), COALESCE(result,''), blocked, COALESCE(block_reason,''), duration_ms FROM tool_call_log WHERE 1=1"
	var args []any

	if opts.ServerName != "" {
		query += " AND server_name = ?"
		args = append(args, opts.ServerName)
	}
	if opts.ToolName != "" {
		query += " AND tool_name = ?"
		args = append(args, opts.ToolName)
	}
	if opts.BlockedOnly {
		query += " AND blocked = 1"
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY timestamp DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("proxyaudit: querying: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts, toolArgs, result string
		if err := rows.Scan(&e.ID, &ts, &e.ServerName, &e.ToolName, &toolArgs, &result, &e.Blocked, &e.BlockReason, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("proxyaudit: scanning row: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
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

// Close stops the write and expiry loops and closes the database.
func (s *SQLiteSink) Close() error {
	s.cancel()
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
