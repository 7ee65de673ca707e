package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mcpguard/mcpguard/internal/detect"
	"github.com/mcpguard/mcpguard/internal/discover"
	"github.com/mcpguard/mcpguard/internal/scan"
	"github.com/mcpguard/mcpguard/internal/telemetry"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var tracing bool
	var all bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan configured MCP servers for security threats",
		Long:  "Connects to each MCP server named in the config file (and, with --all, each one discovered on this machine), fetches its tool and resource lists, and runs every detector against them.",
		Example: `  mcpguard scan
  mcpguard scan --config ./mcpguard.yaml
  mcpguard scan --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			shutdown, err := telemetry.Setup(tracing, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(context.Background()) }()

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}

			servers, err := cfg.ServerConfigs()
			if err != nil {
				return err
			}
			if all {
				found, err := discover.Scan()
				if err != nil {
					return fmt.Errorf("discovering servers: %w", err)
				}
				servers = append(servers, found.ServerConfigs()...)
			}
			if len(servers) == 0 {
				fmt.Println("No servers configured. Run 'mcpguard discover' to find MCP clients on this machine.")
				return nil
			}

			store, err := buildSnapshotStore(cfg.Snapshot)
			if err != nil {
				return fmt.Errorf("building snapshot store: %w", err)
			}

			overrides, err := cfg.DetectOverrides()
			if err != nil {
				return fmt.Errorf("loading overrides: %w", err)
			}

			scanner := scan.New(store, newLogger()).WithOverrides(overrides)

			ctx, span := telemetry.Tracer("mcpguard/scan").Start(cmd.Context(), "scan")
			results, failures := scanner.ScanAll(ctx, servers)
			span.End()

			for _, f := range failures {
				color.Red("  [!] %s: %v\n", f.ServerName, f.Err)
			}

			var totalThreats int
			for _, r := range results {
				printScanResult(r)
				totalThreats += len(r.Threats)
			}

			fmt.Println(strings.Repeat("-", 60))
			fmt.Printf("Scanned %d server(s), %d threat(s) found, %d failure(s)\n", len(results), totalThreats, len(failures))

			if hasBlockingThreat(results) {
				_ = shutdown(context.Background())
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tracing, "tracing", false, "emit OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&all, "all", false, "also scan every MCP server found in local client configs")
	return cmd
}

// hasBlockingThreat reports whether any result carries a finding severe
// enough to fail the run as a whole: Critical or High. Lower severities
// (Medium/Low/Info, e.g. D3 NoAuth on a routine local stdio server) are
// scanned-but-threatened, not scan failures, and must not flip the exit
// code.
func hasBlockingThreat(results []*scan.ScanResult) bool {
	for _, r := range results {
		for _, t := range r.Threats {
			if t.Severity <= detect.SeverityHigh {
				return true
			}
		}
	}
	return false
}

func printScanResult(r *scan.ScanResult) {
	fmt.Printf("\n%s  (%s, %s)  [%s]\n", r.Server.Name, r.Server.DisplaySource(), r.Server.Transport, r.ScanID)
	if len(r.Threats) == 0 {
		color.Green("  no threats found (%d tool(s), %d resource(s), %s)\n", len(r.Tools), len(r.Resources), r.ScanDuration)
		return
	}
	for _, t := range r.Threats {
		printThreat(t)
	}
}

func printThreat(t detect.Threat) {
	tag := severityColor(t.Severity).Sprintf("[%s] %-8s", t.ID, t.Severity)
	fmt.Printf("  %s %s\n", tag, t.Title)
	if t.ToolName != "" {
		fmt.Printf("           tool: %s\n", t.ToolName)
	}
	if t.Message != "" {
		fmt.Printf("           %s\n", t.Message)
	}
	if t.Remediation != "" {
		fmt.Printf("           fix: %s\n", t.Remediation)
	}
}

func severityColor(s detect.Severity) *color.Color {
	switch s {
	case detect.SeverityCritical, detect.SeverityHigh:
		return color.New(color.FgRed)
	case detect.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
