package commands

import (
	"fmt"

	"github.com/mcpguard/mcpguard/internal/discover"
	"github.com/spf13/cobra"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Scan for MCP server configurations on this machine",
		Long:  "Discovers MCP configurations for Claude Desktop, Cursor, VS Code, Cline, Windsurf, and several other clients.",
		Example: `  mcpguard discover
  mcpguard scan --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := discover.Scan()
			if err != nil {
				return err
			}

			fmt.Print(discover.FormatTree(result))

			if result.TotalServers() > 0 {
				fmt.Println()
				fmt.Println("Run 'mcpguard scan' against a config listing these servers, or 'mcpguard wrap <client>' to enforce policy inline.")
			}

			return nil
		},
	}
}
