package detect

import (
	"fmt"
	"strings"

	"github.com/mcpguard/mcpguard/internal/mgconfig"
)

var localAuthMarkers = []string{"token", "key", "secret", "auth", "password"}

var remoteAuthMarkers = []string{"token", "key", "auth", "bearer"}

func hasAuthEnv(env map[string]string, markers []string) bool {
	for k := range env {
		lower := strings.ToLower(k)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}

// CheckNoAuth flags servers with no authentication-looking environment
// variable. Local stdio servers only rate an informational note since an
// unauthenticated local process is often fine; remote servers rate a
// critical finding, since exposing an MCP endpoint over the network with
// no credentials at all is a real compromise path.
//
// The marker set differs by transport: local checks also treat "secret"
// and "password" as auth signals, remote checks also treat "bearer" as
// one. Carried over unchanged rather than collapsed into one shared list.
func CheckNoAuth(server mgconfig.ServerConfig) []Threat {
	if server.Transport == mgconfig.TransportStdio || server.Transport == "" {
		if hasAuthEnv(server.Env, localAuthMarkers) {
			return nil
		}
		return []Threat{
			newThreat("NO-AUTH-LOCAL", SeverityInfo, CategoryNoAuth, "No authentication configured").
				withMessage(fmt.Sprintf("Server '%s' has no authentication environment variables configured", server.Name)).
				withEvidence("No TOKEN, KEY, SECRET, AUTH, or PASSWORD env vars found").
				withRemediation("Consider adding authentication if this server accesses sensitive resources"),
		}
	}

	if hasAuthEnv(server.Env, remoteAuthMarkers) {
		return nil
	}
	return []Threat{
		newThreat("NO-AUTH-REMOTE", SeverityCritical, CategoryNoAuth, "Remote server without authentication").
			withMessage(fmt.Sprintf("Remote server '%s' at %s has no authentication configured", server.Name, server.URL)).
			withEvidence(fmt.Sprintf("URL: %s, no auth headers/tokens found", server.URL)).
			withRemediation("Add authentication tokens or API keys for remote MCP servers. Never expose remote servers without auth."),
	}
}
