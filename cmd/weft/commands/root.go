// Package commands implements the CLI commands for the weft pipeline tool.
package commands

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/weft/internal/adapters/config"
	"go.trai.ch/weft/internal/app"
	"go.trai.ch/weft/internal/build"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for weft.
type CLI struct {
	app     *app.App
	loader  ports.ConfigLoader
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App, loader ports.ConfigLoader) *CLI {
	rootCmd := &cobra.Command{
		Use:           "weft",
		Short:         "A dependency-aware shell pipeline orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFilename, "Configuration file to load")

	c := &CLI{
		app:     a,
		loader:  loader,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if fl, ok := c.loader.(*config.Loader); ok {
			filename, _ := cmd.Flags().GetString("config")
			fl.Filename = filename
		}
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newDescribeCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(out io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(out)
}

// parseVars turns repeated KEY=value flags into a variable override map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, zerr.With(zerr.New("expected KEY=value"), "flag", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// parseSet turns repeated rule.key=value flags into the CLI parameter tier.
func parseSet(pairs []string) (map[string]map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]map[string]string)
	for _, pair := range pairs {
		spec, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, zerr.With(zerr.New("expected rule.key=value"), "flag", pair)
		}
		rule, key, ok := strings.Cut(spec, ".")
		if !ok || rule == "" || key == "" {
			return nil, zerr.With(zerr.New("expected rule.key=value"), "flag", pair)
		}
		if params[rule] == nil {
			params[rule] = make(map[string]string)
		}
		params[rule][key] = value
	}
	return params, nil
}

// buildOptions gathers the flags shared by run, plan, and describe.
func buildOptions(cmd *cobra.Command, profiles []string) (app.Options, error) {
	varPairs, _ := cmd.Flags().GetStringArray("vars")
	vars, err := parseVars(varPairs)
	if err != nil {
		return app.Options{}, err
	}

	setPairs, _ := cmd.Flags().GetStringArray("set")
	params, err := parseSet(setPairs)
	if err != nil {
		return app.Options{}, err
	}

	upTo, _ := cmd.Flags().GetString("up-to")

	return app.Options{
		Profiles: profiles,
		Vars:     vars,
		Params:   params,
		UpTo:     upTo,
	}, nil
}

func addResolutionFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("vars", nil, "Override a general variable (KEY=value, repeatable)")
	cmd.Flags().StringArray("set", nil, "Override a rule parameter (rule.key=value, repeatable)")
	cmd.Flags().String("up-to", "", "Restrict to the named step and its transitive requires")
}
