// Package proxyaudit records every tool call the proxy interceptor sees —
// allowed, blocked, or rate-limited — to a pluggable backing store.
package proxyaudit

import (
	"encoding/json"
	"time"
)

// AuditEntry is one recorded tool call.
type AuditEntry struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	ServerName  string          `json:"server_name"`
	ToolName    string          `json:"tool_name"`
	ToolArgs    json.RawMessage `json:"tool_args,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Blocked     bool            `json:"blocked"`
	BlockReason string          `json:"block_reason,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Sink persists audit entries. Implementations must be safe for concurrent
// use and must not block the caller on a slow or unavailable backend —
// Record should buffer and report failures through logging, not a blocked
// proxy.
type Sink interface {
	Record(entry AuditEntry)
	Close() error
}

// RecordCall is the convenience constructor the proxy interceptor calls
// after every intercepted tools/call message, mirroring the shape the
// original interceptor builds before handing it to its audit log.
func RecordCall(sink Sink, serverName, toolName string, toolArgs, result json.RawMessage, blocked bool, blockReason string, duration time.Duration) {
	if sink == nil {
		return
	}
	sink.Record(AuditEntry{
		Timestamp:   time.Now().UTC(),
		ServerName:  serverName,
		ToolName:    toolName,
		ToolArgs:    toolArgs,
		Result:      result,
		Blocked:     blocked,
		BlockReason: blockReason,
		DurationMs:  duration.Milliseconds(),
	})
}

// QueryOpts filters a Query call against a Sink that supports it (both
// SQLiteSink and PostgresSink do, via their own Query method — there's no
// single query shape general enough to put on the Sink interface itself,
// since the two backends' Query methods differ: PostgresSink's takes a
// context, SQLiteSink's does not).
type QueryOpts struct {
	ServerName  string
	ToolName    string
	BlockedOnly bool
	Since       time.Time
	Limit       int
}
