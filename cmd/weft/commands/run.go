package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/ui/output"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [profiles...]",
		Short: "Build the named profiles or groups",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd, args)
			if err != nil {
				return err
			}
			opts.Jobs, _ = cmd.Flags().GetInt("jobs")
			opts.Force, _ = cmd.Flags().GetBool("force")

			report, err := c.app.Run(cmd.Context(), ".", opts)
			if report != nil {
				printReport(cmd, report)
			}
			if err != nil {
				return err
			}
			if report.Failed() {
				return domain.ErrBuildFailed
			}
			return nil
		},
	}

	addResolutionFlags(cmd)
	cmd.Flags().IntP("jobs", "j", 0, "Maximum parallel steps (default: number of CPUs)")
	cmd.Flags().BoolP("force", "f", false, "Rebuild everything, bypassing the staleness check")
	return cmd
}

func printReport(cmd *cobra.Command, report *domain.BuildReport) {
	out := output.New(cmd.OutOrStdout())
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)

	for _, result := range report.Results {
		if result.Profile != "" {
			fmt.Fprintf(w, "profile %s\n", result.Profile)
		}
		for _, step := range result.Steps {
			line := fmt.Sprintf("  %s\t%s", step.Step, output.Status(out, step.Status))
			if step.Reason != "" && step.Status != domain.StatusFailed {
				line += fmt.Sprintf("\t(%s)", step.Reason)
			}
			if step.Err != nil {
				line += fmt.Sprintf("\t%s", step.Err.Error())
			}
			fmt.Fprintln(w, line)
		}
	}
	_ = w.Flush()
}
