package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [profiles...]",
		Short: "Resolve and print every command without executing anything",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd, args)
			if err != nil {
				return err
			}

			plans, err := c.app.Plan(".", opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, plan := range plans {
				if plan.Profile != "" {
					fmt.Fprintf(out, "profile %s\n", plan.Profile)
				}
				for _, step := range plan.Steps {
					if step.Err != nil {
						fmt.Fprintf(out, "  %s: resolution failed: %s\n", step.Name.String(), step.Err.Error())
						continue
					}
					fmt.Fprintf(out, "  %s: %s\n", step.Name.String(), step.Command)
				}
			}
			return nil
		},
	}

	addResolutionFlags(cmd)
	return cmd
}
