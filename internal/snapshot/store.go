package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcpguard/mcpguard/internal/safefile"
)

// Store persists one Snapshot per server name and compares a freshly
// scanned tool set against whatever was last saved.
type Store interface {
	Load(ctx context.Context, serverName string) (*Snapshot, error) // nil, nil if none saved yet
	Save(ctx context.Context, serverName string, s Snapshot) error
	Compare(ctx context.Context, serverName string, currentTools []ToolInfo) (*Diff, error) // nil, nil if no prior snapshot
}

// FileStore persists snapshots as one JSON file per server under a
// directory, reading through internal/safefile to reject symlinked state
// files.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(serverName string) string {
	return filepath.Join(f.dir, SanitizeServerName(serverName)+".json")
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, serverName string) (*Snapshot, error) {
	path := f.path(serverName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := safefile.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &s, nil
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, serverName string, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(f.path(serverName), data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Compare implements Store.
func (f *FileStore) Compare(ctx context.Context, serverName string, currentTools []ToolInfo) (*Diff, error) {
	return compare(ctx, f, serverName, currentTools)
}

func compare(ctx context.Context, s Store, serverName string, currentTools []ToolInfo) (*Diff, error) {
	prev, err := s.Load(ctx, serverName)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	current := FromTools(currentTools)
	d := prev.Diff(current)
	return &d, nil
}
