package proxyaudit

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteSinkRecordAndQuery(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSQLiteSink(filepath.Join(dir, "audit.db"), nil, 0)
	if err != nil {
		t.Fatal(err)
	}

	RecordCall(sink, "my-server", "read_file", []byte(`{"path":"/tmp/x"}`), nil, false, "", 12*time.Millisecond)
	RecordCall(sink, "my-server", "dangerous_tool", nil, nil, true, "Blocked by policy", 1*time.Millisecond)

	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	sink2, err := NewSQLiteSink(filepath.Join(dir, "audit.db"), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer sink2.Close()

	deadline := time.Now().Add(2 * time.Second)
	var entries []AuditEntry
	for time.Now().Before(deadline) {
		entries, err = sink2.Query(QueryOpts{ServerName: "my-server"})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	blocked, err := sink2.Query(QueryOpts{ServerName: "my-server", BlockedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(blocked) != 1 || !blocked[0].Blocked || blocked[0].ToolName != "dangerous_tool" {
		t.Fatalf("unexpected blocked entries: %+v", blocked)
	}
}

func TestSQLiteSinkDropsEntriesWhenBufferFull(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSQLiteSink(filepath.Join(dir, "audit.db"), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	// Recording far more than the buffer size must never block or panic.
	for i := 0; i < 1000; i++ {
		RecordCall(sink, "s", "t", nil, nil, false, "", 0)
	}
}

func TestRecordCallNilSinkIsNoOp(t *testing.T) {
	RecordCall(nil, "s", "t", nil, nil, false, "", 0)
}
