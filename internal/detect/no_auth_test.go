package detect

import (
	"testing"

	"github.com/mcpguard/mcpguard/internal/mgconfig"
)

func TestLocalServerNoAuthIsInfo(t *testing.T) {
	server := mgconfig.NewServerConfig("test", "npx")
	threats := CheckNoAuth(server)
	if len(threats) == 0 {
		t.Fatal("expected a finding")
	}
	if threats[0].Severity != SeverityInfo {
		t.Errorf("severity = %v, want Info", threats[0].Severity)
	}
}

func TestLocalServerWithTokenNoWarning(t *testing.T) {
	server := mgconfig.NewServerConfig("test", "npx")
	server.Env["GITHUB_TOKEN"] = "xxx"
	threats := CheckNoAuth(server)
	if len(threats) != 0 {
		t.Errorf("expected no findings, got %d", len(threats))
	}
}

func TestRemoteServerNoAuthIsCritical(t *testing.T) {
	server := mgconfig.ServerConfig{Name: "test", Transport: mgconfig.TransportSSE, URL: "https://example.com/mcp", Env: map[string]string{}}
	threats := CheckNoAuth(server)
	if len(threats) == 0 {
		t.Fatal("expected a finding")
	}
	if threats[0].Severity != SeverityCritical {
		t.Errorf("severity = %v, want Critical", threats[0].Severity)
	}
}

func TestRemoteServerWithAuthNoWarning(t *testing.T) {
	server := mgconfig.ServerConfig{
		Name: "test", Transport: mgconfig.TransportSSE, URL: "https://example.com/mcp",
		Env: map[string]string{"AUTH_TOKEN": "xxx"},
	}
	threats := CheckNoAuth(server)
	if len(threats) != 0 {
		t.Errorf("expected no findings, got %d", len(threats))
	}
}

func TestRemoteServerWithSecretOnlyStillWarns(t *testing.T) {
	// "secret" is a local-only marker; the remote check doesn't recognize it.
	server := mgconfig.ServerConfig{
		Name: "test", Transport: mgconfig.TransportStreamableHTTP, URL: "https://example.com/mcp",
		Env: map[string]string{"CLIENT_SECRET": "xxx"},
	}
	threats := CheckNoAuth(server)
	if len(threats) == 0 {
		t.Error("expected a finding since 'secret' is not a recognized remote auth marker")
	}
}
