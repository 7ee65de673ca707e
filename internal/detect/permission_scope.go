package detect

import (
	"fmt"
	"regexp"
	"strings"
)

type dangerPattern struct {
	re          *regexp.Regexp
	title       string
	severity    Severity
	remediation string
}

var dangerousPatterns = []dangerPattern{
	{
		regexp.MustCompile(`(?i)\b(exec|eval|execute|run|shell|command|spawn|system)\b`),
		"Potential code execution capability", SeverityHigh,
		"Code execution tools can run arbitrary commands. Ensure proper input validation and sandboxing.",
	},
	{
		regexp.MustCompile(`(?i)"path"\s*:\s*\{\s*"type"\s*:\s*"string"`),
		"Accepts arbitrary file paths", SeverityMedium,
		"Tools that accept arbitrary paths should validate against allowed directories.",
	},
	{
		regexp.MustCompile(`(?i)\b(url|uri|endpoint|host|hostname|fetch|request|http|https)\b`),
		"Network access capability", SeverityMedium,
		"Network-accessing tools can exfiltrate data. Consider restricting allowed domains.",
	},
	{
		regexp.MustCompile(`(?i)\b(query|sql|database|db|select|insert|update|delete)\b`),
		"Database access capability", SeverityMedium,
		"Database tools should use parameterized queries and limited permissions.",
	},
	{
		regexp.MustCompile(`(?i)\b(password|secret|token|key|credential|auth|api.?key)\b`),
		"Handles sensitive credentials", SeverityHigh,
		"Tools handling credentials should use secure storage and avoid logging values.",
	},
}

var rootPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`["']/["']`),
	regexp.MustCompile(`["']~["']`),
	regexp.MustCompile(`["'][A-Z]:\\["']`),
	regexp.MustCompile(`["']/home["']`),
	regexp.MustCompile(`["']/Users["']`),
	regexp.MustCompile(`["']/etc["']`),
	regexp.MustCompile(`["']/var["']`),
}

// CheckPermissionScope flags tools whose name, description, or input schema
// suggest code execution, network access, database access, credential
// handling, or unrestricted filesystem access.
func CheckPermissionScope(tools []Tool) []Threat {
	var threats []Threat
	for _, tool := range tools {
		threats = append(threats, checkToolPermissionScope(tool)...)
	}
	return threats
}

func checkToolPermissionScope(tool Tool) []Threat {
	var threats []Threat

	combined := tool.Name + " " + tool.Description + " " + string(tool.InputSchema)
	for _, p := range dangerousPatterns {
		if !p.re.MatchString(combined) {
			continue
		}
		threats = append(threats, newThreat(
			fmt.Sprintf("PERM-%d", len(threats)+1), p.severity, CategoryPermissionScope, p.title,
		).
			withMessage(fmt.Sprintf("Tool '%s' appears to have %s", tool.Name, strings.ToLower(p.title))).
			withEvidence(tool.Name).
			withRemediation(p.remediation).
			withTool(tool.Name))
	}

	schema := string(tool.InputSchema)
	for _, p := range rootPathPatterns {
		loc := p.FindStringIndex(schema)
		if loc == nil {
			continue
		}
		threats = append(threats, newThreat("PERM-ROOT", SeverityHigh, CategoryPermissionScope, "Root filesystem access").
			withMessage(fmt.Sprintf("Tool '%s' appears to have access to root or system directories", tool.Name)).
			withEvidence(schema[loc[0]:loc[1]]).
			withRemediation("Restrict filesystem access to specific directories needed for the task").
			withTool(tool.Name))
		break
	}

	return threats
}
