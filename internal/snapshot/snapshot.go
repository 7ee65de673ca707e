// Package snapshot records the tool descriptions a server advertised on a
// previous scan so the orchestrator can detect drift: a tool added, removed,
// or quietly given a new description.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ToolInfo is the minimal shape the snapshot package needs from a
// discovered MCP tool.
type ToolInfo struct {
	Name        string
	Description string // "" if the server advertised no description
}

// ToolSnapshot is the recorded state of a single tool.
type ToolSnapshot struct {
	Description     string `json:"description"`
	DescriptionHash string `json:"description_hash"`
}

// CurrentSchemaVersion is the Snapshot format version FromTools stamps onto
// every snapshot it builds. Bump it when a change to Snapshot or
// ToolSnapshot would make an older persisted file ambiguous to read.
const CurrentSchemaVersion = 1

// Snapshot is the full recorded state of a server's tool set at a point in
// time.
type Snapshot struct {
	SchemaVersion int                     `json:"schema_version"`
	Tools         map[string]ToolSnapshot `json:"tools"`
	CreatedAt     time.Time               `json:"created_at"`
}

// DescriptionChange records a tool whose description changed between two
// snapshots.
type DescriptionChange struct {
	ToolName       string
	OldDescription string
	NewDescription string
	OldHash        string
	NewHash        string
}

// Diff is the result of comparing two snapshots.
type Diff struct {
	AddedTools          []string
	RemovedTools        []string
	ChangedDescriptions []DescriptionChange
}

// HashDescription returns the hex-encoded SHA-256 of description. An empty
// description hashes to the hash of the empty string, not a sentinel.
func HashDescription(description string) string {
	sum := sha256.Sum256([]byte(description))
	return hex.EncodeToString(sum[:])
}

// FromTools builds a Snapshot from the current tool list.
func FromTools(tools []ToolInfo) Snapshot {
	m := make(map[string]ToolSnapshot, len(tools))
	for _, t := range tools {
		m[t.Name] = ToolSnapshot{
			Description:     t.Description,
			DescriptionHash: HashDescription(t.Description),
		}
	}
	return Snapshot{SchemaVersion: CurrentSchemaVersion, Tools: m, CreatedAt: nowUTC()}
}

// nowUTC is a seam so callers that need deterministic timestamps (tests, or
// a caller replaying a fixed clock) can be extended without this package
// reaching for time.Now() in more than one place.
var nowUTC = func() time.Time { return time.Now().UTC() }

// Diff compares the receiver (the previous snapshot) against current and
// reports what changed.
func (s Snapshot) Diff(current Snapshot) Diff {
	var d Diff

	for name, cur := range current.Tools {
		old, ok := s.Tools[name]
		if !ok {
			d.AddedTools = append(d.AddedTools, name)
			continue
		}
		if old.DescriptionHash != cur.DescriptionHash {
			d.ChangedDescriptions = append(d.ChangedDescriptions, DescriptionChange{
				ToolName:       name,
				OldDescription: old.Description,
				NewDescription: cur.Description,
				OldHash:        old.DescriptionHash,
				NewHash:        cur.DescriptionHash,
			})
		}
	}

	for name := range s.Tools {
		if _, ok := current.Tools[name]; !ok {
			d.RemovedTools = append(d.RemovedTools, name)
		}
	}

	return d
}

// SanitizeServerName maps a server name to a filesystem/key-safe form by
// replacing path separators and drive-letter colons with underscores.
func SanitizeServerName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}
