package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcpguard/mcpguard/internal/policy"
	"github.com/mcpguard/mcpguard/internal/proxy"
	"github.com/spf13/cobra"
)

func newProxyCmd() *cobra.Command {
	var serverName string
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "proxy --server <name> -- <command> [args...]",
		Short: "Wrap an MCP server with inline policy enforcement",
		Long:  "Starts a child process and intercepts its stdio (JSON-RPC 2.0), evaluating every tools/call request against the rule file before forwarding it to the server, and recording every call to the audit sink.",
		Example: `  mcpguard proxy --server filesystem -- npx @mcp/server-filesystem /data
  mcpguard proxy --server database --rules ./rules.yaml -- node ./db-server.js`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := policy.NewRuleEngine()
			path := rulesPath
			if path == "" {
				path = cfg.RulesPath
			}
			if path != "" {
				if err := policy.WatchFile(ctx, path, engine, logger); err != nil {
					return err
				}
			}

			audit, err := buildAuditSink(ctx, cfg.Audit, logger)
			if err != nil {
				return err
			}
			defer func() { _ = audit.Close() }()

			command := args[0]
			var cmdArgs []string
			if len(args) > 1 {
				cmdArgs = args[1:]
			}

			p := proxy.New(serverName, command, cmdArgs, engine, audit, logger)
			return p.Run(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&serverName, "server", "", "server name recorded in the audit log")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a YAML rule file (overrides the config's rules_path)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}
