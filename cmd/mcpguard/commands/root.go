package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcpguard",
		Short: "Security scanner and inline policy proxy for MCP servers",
		Long:  "mcp-guard — detects prompt-injection, permission-scope, and description-drift risks in MCP servers, and enforces tool-call policy inline via a stdio proxy. No LLM. Single binary.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "mcpguard.yaml", "config file path")

	root.AddCommand(
		newScanCmd(),
		newProxyCmd(),
		newRulesCmd(),
		newDiscoverCmd(),
		newWrapCmd(),
		newUnwrapCmd(),
		newVersionCmd(),
	)

	return root
}
