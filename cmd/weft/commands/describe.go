package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

func (c *CLI) newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe [profiles...]",
		Short: "Write a markdown report of the resolved plan with a mermaid diagram",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd, args)
			if err != nil {
				return err
			}

			doc, err := c.app.Describe(".", opts)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("output")
			if path == "" {
				fmt.Fprint(cmd.OutOrStdout(), doc)
				return nil
			}
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil { //nolint:gosec // report file
				return zerr.With(zerr.Wrap(err, "failed to write report"), "path", path)
			}
			return nil
		},
	}

	addResolutionFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}
