package detect

import (
	"fmt"

	"github.com/mcpguard/mcpguard/internal/snapshot"
)

// CheckDescriptionDrift turns a snapshot diff into threats: a tool whose
// description changed since the last scan is rated High (the likeliest
// sign of a bait-and-switch server), an added tool is Medium, a removed
// tool is Low since losing capability is rarely a security concern.
func CheckDescriptionDrift(diff *snapshot.Diff) []Threat {
	if diff == nil {
		return nil
	}

	var threats []Threat

	for _, c := range diff.ChangedDescriptions {
		threats = append(threats, newThreat(
			fmt.Sprintf("DRIFT-CHG-%s", c.ToolName), SeverityHigh, CategoryDescriptionDrift, "Tool description changed",
		).
			withMessage(fmt.Sprintf("Tool '%s' description changed since the last scan", c.ToolName)).
			withEvidence(fmt.Sprintf("Old: %s... → New: %s...", truncate(c.OldDescription, 50), truncate(c.NewDescription, 50))).
			withRemediation("Review the new description for injected instructions before trusting this tool again").
			withTool(c.ToolName))
	}

	for _, name := range diff.AddedTools {
		threats = append(threats, newThreat(
			fmt.Sprintf("DRIFT-ADD-%s", name), SeverityMedium, CategoryDescriptionDrift, "New tool advertised",
		).
			withMessage(fmt.Sprintf("Server now advertises a tool not seen in the last scan: '%s'", name)).
			withEvidence(fmt.Sprintf("Added: %s", name)).
			withRemediation("Confirm this tool was an intentional addition").
			withTool(name))
	}

	for _, name := range diff.RemovedTools {
		threats = append(threats, newThreat(
			fmt.Sprintf("DRIFT-REM-%s", name), SeverityLow, CategoryDescriptionDrift, "Tool no longer advertised",
		).
			withMessage(fmt.Sprintf("Server no longer advertises a previously seen tool: '%s'", name)).
			withEvidence(fmt.Sprintf("Removed: %s", name)).
			withRemediation("Confirm this tool's removal was intentional").
			withTool(name))
	}

	return threats
}
