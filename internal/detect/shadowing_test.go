package detect

import "testing"

func makeServerTools(name string, toolNames ...string) ServerTools {
	tools := make([]Tool, len(toolNames))
	for i, n := range toolNames {
		tools[i] = Tool{Name: n}
	}
	return ServerTools{ServerName: name, Tools: tools}
}

func TestDetectsExactCollision(t *testing.T) {
	servers := []ServerTools{
		makeServerTools("server1", "read_file", "write_file"),
		makeServerTools("server2", "read_file", "delete_file"),
	}
	findings := CheckToolShadowing(servers)
	found := false
	for _, f := range findings {
		if f.Threat.Title == "Tool name collision" {
			found = true
		}
	}
	if !found {
		t.Error("expected a tool name collision finding")
	}
}

func TestDetectsSimilarNames(t *testing.T) {
	servers := []ServerTools{
		makeServerTools("trusted", "read_file"),
		makeServerTools("suspicious", "read_fi1e"),
	}
	findings := CheckToolShadowing(servers)
	found := false
	for _, f := range findings {
		if f.Threat.Title == "Similar tool names detected" {
			found = true
		}
	}
	if !found {
		t.Error("expected a similar-names finding")
	}
}

func TestNoFalsePositiveForDifferentNames(t *testing.T) {
	servers := []ServerTools{
		makeServerTools("server1", "read_file"),
		makeServerTools("server2", "write_database"),
	}
	findings := CheckToolShadowing(servers)
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestSameServerSimilarNamesNotFlagged(t *testing.T) {
	servers := []ServerTools{
		makeServerTools("server1", "read_file", "read_files"),
	}
	findings := CheckToolShadowing(servers)
	if len(findings) != 0 {
		t.Errorf("expected no findings for similar names on the same server, got %d", len(findings))
	}
}

func TestCollisionAttributedToFirstServer(t *testing.T) {
	servers := []ServerTools{
		makeServerTools("first", "shared_tool"),
		makeServerTools("second", "shared_tool"),
	}
	findings := CheckToolShadowing(servers)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].ServerName != "first" {
		t.Errorf("attributed to %q, want %q", findings[0].ServerName, "first")
	}
}
