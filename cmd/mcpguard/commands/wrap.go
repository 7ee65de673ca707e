package commands

import (
	"fmt"

	"github.com/mcpguard/mcpguard/internal/discover"
	"github.com/spf13/cobra"
)

var supportedClients = []string{"claude-desktop", "cursor", "vscode", "cline", "windsurf"}

func newWrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wrap <client>",
		Short: "Route a client's MCP servers through the mcpguard proxy",
		Long:  "Modifies the MCP config of the specified client so each server runs through 'mcpguard proxy'. A backup is saved as .bak.",
		Example: `  mcpguard wrap claude-desktop
  mcpguard wrap cursor`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: supportedClients,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := args[0]

			path := discover.ClientConfigPath(client)
			if path == "" {
				return fmt.Errorf("no config found for %q — is it installed?", client)
			}

			fmt.Printf("Wrapping %s MCP servers...\n\n", clientDisplay(client))

			wrapped, err := discover.WrapClient(client)
			if err != nil {
				return err
			}

			if wrapped == 0 {
				fmt.Println("  All servers already wrapped.")
			} else {
				fmt.Printf("  %d server(s) wrapped.\n", wrapped)
			}

			fmt.Printf("\n  Backup saved: %s.bak\n", path)
			fmt.Printf("\n  Restart %s to activate.\n", clientDisplay(client))
			return nil
		},
	}
}

func newUnwrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap <client>",
		Short: "Restore original MCP config from backup",
		Long:  "Restores the original MCP config file from the .bak backup created by 'mcpguard wrap'.",
		Example: `  mcpguard unwrap claude-desktop
  mcpguard unwrap cursor`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: supportedClients,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := args[0]

			if err := discover.UnwrapClient(client); err != nil {
				return err
			}

			fmt.Printf("Restored original config for %s.\n", clientDisplay(client))
			fmt.Printf("Restart %s to apply.\n", clientDisplay(client))
			return nil
		},
	}
}

func clientDisplay(name string) string {
	switch name {
	case "claude-desktop":
		return "Claude Desktop"
	case "cursor":
		return "Cursor"
	case "vscode":
		return "VS Code"
	case "cline":
		return "Cline"
	case "windsurf":
		return "Windsurf"
	default:
		return name
	}
}
