package snapshot

import "testing"

func makeTool(name, description string) ToolInfo {
	return ToolInfo{Name: name, Description: description}
}

func TestFromTools(t *testing.T) {
	s := FromTools([]ToolInfo{
		makeTool("read_file", "Read a file"),
		makeTool("write_file", "Write a file"),
	})
	if len(s.Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(s.Tools))
	}
	if _, ok := s.Tools["read_file"]; !ok {
		t.Error("missing read_file")
	}
	if s.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", s.SchemaVersion, CurrentSchemaVersion)
	}
}

func TestDiffDetectsAddedTool(t *testing.T) {
	old := FromTools([]ToolInfo{makeTool("tool1", "desc1")})
	cur := FromTools([]ToolInfo{makeTool("tool1", "desc1"), makeTool("tool2", "desc2")})

	d := old.Diff(cur)
	if len(d.AddedTools) != 1 || d.AddedTools[0] != "tool2" {
		t.Errorf("added = %v, want [tool2]", d.AddedTools)
	}
	if len(d.RemovedTools) != 0 {
		t.Errorf("removed = %v, want none", d.RemovedTools)
	}
	if len(d.ChangedDescriptions) != 0 {
		t.Errorf("changed = %v, want none", d.ChangedDescriptions)
	}
}

func TestDiffDetectsRemovedTool(t *testing.T) {
	old := FromTools([]ToolInfo{makeTool("tool1", "desc1"), makeTool("tool2", "desc2")})
	cur := FromTools([]ToolInfo{makeTool("tool1", "desc1")})

	d := old.Diff(cur)
	if len(d.AddedTools) != 0 {
		t.Errorf("added = %v, want none", d.AddedTools)
	}
	if len(d.RemovedTools) != 1 || d.RemovedTools[0] != "tool2" {
		t.Errorf("removed = %v, want [tool2]", d.RemovedTools)
	}
}

func TestDiffDetectsChangedDescription(t *testing.T) {
	old := FromTools([]ToolInfo{makeTool("tool1", "old description")})
	cur := FromTools([]ToolInfo{makeTool("tool1", "new description with injection")})

	d := old.Diff(cur)
	if len(d.AddedTools) != 0 || len(d.RemovedTools) != 0 {
		t.Fatalf("expected only a change, got added=%v removed=%v", d.AddedTools, d.RemovedTools)
	}
	if len(d.ChangedDescriptions) != 1 {
		t.Fatalf("changed = %d, want 1", len(d.ChangedDescriptions))
	}
	if d.ChangedDescriptions[0].ToolName != "tool1" {
		t.Errorf("tool name = %q, want tool1", d.ChangedDescriptions[0].ToolName)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	h1 := HashDescription("test description")
	h2 := HashDescription("test description")
	if h1 != h2 {
		t.Error("hash of identical input must match")
	}
	h3 := HashDescription("different description")
	if h1 == h3 {
		t.Error("hash of different input must not match")
	}
}

func TestHashEmptyDescriptionIsNotSentinel(t *testing.T) {
	// An absent description hashes the empty string, same as any other
	// description value — it is not special-cased.
	got := HashDescription("")
	want := HashDescription("")
	if got != want {
		t.Error("empty description hash must be stable")
	}
	if got == HashDescription("x") {
		t.Error("empty description must not collide with non-empty input")
	}
}

func TestSanitizeServerName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"simple", "simple"},
		{"a/b", "a_b"},
		{`a\b`, "a_b"},
		{"C:\\tools", "C__tools"},
	}
	for _, tt := range tests {
		if got := SanitizeServerName(tt.in); got != tt.want {
			t.Errorf("SanitizeServerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
