package detect

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const maxDescriptionLength = 2000

type injectionPattern struct {
	re       *regexp.Regexp
	title    string
	severity Severity
}

var injectionPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`), "Instruction override attempt", SeverityCritical},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+a?n?\s*`), "Role manipulation attempt", SeverityCritical},
	{regexp.MustCompile(`(?i)system\s*:\s*`), "System prompt injection", SeverityCritical},
	{regexp.MustCompile(`(?i)admin\s+override`), "Admin override attempt", SeverityCritical},
	{regexp.MustCompile(`(?i)do\s+not\s+tell\s+(the\s+)?user`), "Concealment instruction", SeverityHigh},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(safety|security|restrictions?)`), "Safety bypass attempt", SeverityCritical},
	{regexp.MustCompile(`(?i)jailbreak`), "Jailbreak keyword", SeverityHigh},
	{regexp.MustCompile(`(?i)<\s*system\s*>`), "XML system tag injection", SeverityHigh},
	{regexp.MustCompile(`(?i)\[\s*INST\s*\]`), "Instruction tag injection", SeverityHigh},
	{regexp.MustCompile(`(?i)pretend\s+(you\s+)?(are|to\s+be)`), "Pretend instruction", SeverityMedium},
	{regexp.MustCompile(`(?i)act\s+as\s+(if\s+)?(you\s+)?(are|were)`), "Role-play instruction", SeverityMedium},
}

var base64Candidate = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

var hiddenUnicode = map[rune]bool{
	'​': true, // zero-width space
	'‌': true, // zero-width non-joiner
	'‍': true, // zero-width joiner

	0xFEFF: true, // byte order mark; a literal BOM here would not compile
}

func isHiddenUnicode(r rune) bool {
	if hiddenUnicode[r] {
		return true
	}
	if r >= '‪' && r <= '‮' { // directional overrides
		return true
	}
	if r >= '⁦' && r <= '⁩' { // isolate controls
		return true
	}
	return false
}

// CheckDescriptionInjection inspects tool and resource descriptions for
// prompt injection: instruction-override phrasing, hidden Unicode control
// characters, base64-smuggled payloads, and suspiciously long text.
func CheckDescriptionInjection(tools []Tool, resources []Resource) []Threat {
	var threats []Threat
	for _, tool := range tools {
		if tool.Description == "" {
			continue
		}
		threats = append(threats, checkText(tool.Description, tool.Name)...)
	}
	for _, res := range resources {
		if res.Description == "" {
			continue
		}
		threats = append(threats, checkText(res.Description, "")...)
	}
	return threats
}

func checkText(text, toolName string) []Threat {
	var threats []Threat

	for _, p := range injectionPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		evidence := text[loc[0]:loc[1]]
		t := newThreat(fmt.Sprintf("DESC-INJ-%03d", len(threats)+1), p.severity, CategoryDescriptionInjection, p.title).
			withMessage("Detected potential prompt injection pattern in description").
			withEvidence(truncate(evidence, 200)).
			withRemediation("Review the tool description for hidden instructions. Consider using a trusted version of this MCP server.")
		if toolName != "" {
			t = t.withTool(toolName)
		}
		threats = append(threats, t)
	}

	if t, ok := checkHiddenUnicode(text, toolName); ok {
		threats = append(threats, t)
	}
	if t, ok := checkBase64Payload(text, toolName); ok {
		threats = append(threats, t)
	}

	if utf8.RuneCountInString(text) > maxDescriptionLength {
		n := utf8.RuneCountInString(text)
		t := newThreat("DESC-INJ-LEN", SeverityMedium, CategoryDescriptionInjection, "Unusually long description").
			withMessage(fmt.Sprintf("Description is %d characters, which may hide malicious content", n)).
			withEvidence(fmt.Sprintf("Length: %d chars (max: %d)", n, maxDescriptionLength)).
			withRemediation("Review the full description for hidden instructions")
		if toolName != "" {
			t = t.withTool(toolName)
		}
		threats = append(threats, t)
	}

	return threats
}

func checkHiddenUnicode(text, toolName string) (Threat, bool) {
	count := 0
	for _, r := range text {
		if isHiddenUnicode(r) {
			count++
		}
	}
	if count == 0 {
		return Threat{}, false
	}
	t := newThreat("DESC-INJ-UNI", SeverityHigh, CategoryDescriptionInjection, "Hidden Unicode characters").
		withMessage("Description contains invisible Unicode control characters that may hide malicious content").
		withEvidence(fmt.Sprintf("Found %d suspicious Unicode characters", count)).
		withRemediation("Remove hidden Unicode characters and review visible content")
	if toolName != "" {
		t = t.withTool(toolName)
	}
	return t, true
}

func checkBase64Payload(text, toolName string) (Threat, bool) {
	for _, candidate := range base64Candidate.FindAllString(text, -1) {
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		decodedText := string(decoded)
		for _, p := range injectionPatterns {
			if !p.re.MatchString(decodedText) {
				continue
			}
			t := newThreat("DESC-INJ-B64", SeverityCritical, CategoryDescriptionInjection, "Base64-encoded prompt injection").
				withMessage("Description contains base64-encoded content with prompt injection patterns").
				withEvidence(fmt.Sprintf("Encoded: %s... Decoded: %s", truncate(candidate, 50), truncate(decodedText, 100))).
				withRemediation("Remove base64-encoded content from description")
			if toolName != "" {
				t = t.withTool(toolName)
			}
			return t, true
		}
	}
	return Threat{}, false
}

// truncate shortens s to at most maxLen runes, appending "..." if it was
// cut. Rune-based rather than byte-based so a multi-byte character never
// gets split mid-sequence.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
