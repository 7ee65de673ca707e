package commands

import (
	"testing"
	"time"

	"github.com/mcpguard/mcpguard/internal/detect"
	"github.com/mcpguard/mcpguard/internal/mgconfig"
	"github.com/mcpguard/mcpguard/internal/scan"
)

// CLI-layer smoke test: the print helpers must not panic on a result
// carrying a threat and on an empty-threat result.

func TestPrintScanResultNoThreats(t *testing.T) {
	printScanResult(&scan.ScanResult{
		ScanID:       "test",
		Server:       mgconfig.NewServerConfig("fs", "npx"),
		ScanDuration: 10 * time.Millisecond,
	})
}

func TestPrintScanResultWithThreats(t *testing.T) {
	printScanResult(&scan.ScanResult{
		ScanID: "test",
		Server: mgconfig.NewServerConfig("fs", "npx"),
		Threats: []detect.Threat{
			detect.NewProtocolAnomaly("PROTO-RESOURCES-LIST", "resources/list failed"),
		},
	})
}

func TestHasBlockingThreatIgnoresLowSeverities(t *testing.T) {
	results := []*scan.ScanResult{{
		Server: mgconfig.NewServerConfig("fs", "npx"),
		Threats: []detect.Threat{
			{ID: "A", Severity: detect.SeverityInfo},
			{ID: "B", Severity: detect.SeverityLow},
			{ID: "C", Severity: detect.SeverityMedium},
		},
	}}
	if hasBlockingThreat(results) {
		t.Error("Info/Low/Medium findings must not be treated as blocking")
	}
}

func TestHasBlockingThreatOnHighOrCritical(t *testing.T) {
	for _, sev := range []detect.Severity{detect.SeverityCritical, detect.SeverityHigh} {
		results := []*scan.ScanResult{{
			Server:  mgconfig.NewServerConfig("fs", "npx"),
			Threats: []detect.Threat{{ID: "X", Severity: sev}},
		}}
		if !hasBlockingThreat(results) {
			t.Errorf("severity %s must be treated as blocking", sev)
		}
	}
}

func TestHasBlockingThreatNoResults(t *testing.T) {
	if hasBlockingThreat(nil) {
		t.Error("no results means nothing to block on")
	}
}

func TestSeverityColorCoversEverySeverity(t *testing.T) {
	for _, s := range []detect.Severity{
		detect.SeverityCritical,
		detect.SeverityHigh,
		detect.SeverityMedium,
		detect.SeverityLow,
		detect.SeverityInfo,
	} {
		if severityColor(s) == nil {
			t.Errorf("severityColor(%s) returned nil", s)
		}
	}
}
