package commands

import (
	"fmt"

	"github.com/mcpguard/mcpguard/internal/policy"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate proxy rule files",
	}
	cmd.AddCommand(newRulesValidateCmd())
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Parse a rule file and report whether every rule compiles",
		Example: `  mcpguard rules validate ./rules.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := policy.LoadRules(args[0])
			if err != nil {
				return err
			}

			engine := policy.NewRuleEngine()
			if err := engine.Replace(rules); err != nil {
				return fmt.Errorf("rule file is invalid: %w", err)
			}

			fmt.Printf("%s: %d rule(s) loaded, all patterns compiled\n", args[0], len(rules))
			for _, r := range engine.Rules() {
				fmt.Printf("  %-6s priority=%-4d %-10s %s\n", r.ID, r.Priority, r.Action.Kind, r.ToolPattern)
			}
			return nil
		},
	}
}
