package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const shadowingSimilarityThreshold = 3

// ServerTools pairs a server name with the tools it advertised, the input
// CheckToolShadowing needs to compare across servers.
type ServerTools struct {
	ServerName string
	Tools      []Tool
}

// ShadowingFinding attributes a cross-server Threat to the server whose
// scan result it should be attached to: the first server, in scan order,
// that registered the colliding or similarly-named tool.
type ShadowingFinding struct {
	ServerName string
	Threat     Threat
}

// CheckToolShadowing flags tool names registered by more than one server,
// and pairs of distinct tool names across different servers that are close
// enough (Levenshtein distance 1-3) to be mistaken for one another -
// possible typosquatting. Two tools with a similar name on the SAME server
// are not flagged; only cross-server collisions matter here.
func CheckToolShadowing(servers []ServerTools) []ShadowingFinding {
	registry := map[string][]string{}
	var toolNames []string
	for _, s := range servers {
		for _, t := range s.Tools {
			if _, seen := registry[t.Name]; !seen {
				toolNames = append(toolNames, t.Name)
			}
			registry[t.Name] = append(registry[t.Name], s.ServerName)
		}
	}
	sort.Strings(toolNames)

	var findings []ShadowingFinding

	for _, name := range toolNames {
		servers := registry[name]
		if len(servers) <= 1 {
			continue
		}
		t := newThreat(
			fmt.Sprintf("SHADOW-%s", name), SeverityHigh, CategoryToolShadowing, "Tool name collision",
		).
			withMessage(fmt.Sprintf("Tool '%s' is registered by multiple servers: %s", name, strings.Join(servers, ", "))).
			withEvidence(fmt.Sprintf("Servers: %s", strings.Join(servers, ", "))).
			withRemediation("Rename one of the tools to avoid conflicts. The tool loaded last may shadow earlier ones.").
			withTool(name)
		findings = append(findings, ShadowingFinding{ServerName: servers[0], Threat: t})
	}

	for i, name1 := range toolNames {
		for _, name2 := range toolNames[i+1:] {
			distance := levenshtein.ComputeDistance(name1, name2)
			if distance == 0 || distance > shadowingSimilarityThreshold {
				continue
			}
			servers1, servers2 := registry[name1], registry[name2]
			if sharesServer(servers1, servers2) {
				continue
			}
			t := newThreat(
				fmt.Sprintf("SHADOW-SIM-%s-%s", name1, name2), SeverityMedium, CategoryToolShadowing, "Similar tool names detected",
			).
				withMessage(fmt.Sprintf("Tools '%s' and '%s' have similar names (distance: %d)", name1, name2, distance)).
				withEvidence(fmt.Sprintf("'%s' from %s, '%s' from %s", name1, strings.Join(servers1, ", "), name2, strings.Join(servers2, ", "))).
				withRemediation("Verify these are intentionally different tools. Similar names could indicate typosquatting.")
			findings = append(findings, ShadowingFinding{ServerName: servers1[0], Threat: t})
		}
	}

	return findings
}

// sharesServer reports whether a and b name at least one common server.
func sharesServer(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
