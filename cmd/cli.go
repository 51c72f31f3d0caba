package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/habedi/dcli/client"
	"github.com/habedi/dcli/db"
	"github.com/habedi/dcli/manifest"
	"github.com/habedi/dcli/pkg/config"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Execute runs the root command under ctx and exits with the status of the
// failure kind. Cancelling ctx stops the running command; its cleanup still runs.
func Execute(ctx context.Context) {
	rootCmd := createRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(reportError(rootCmd.ErrOrStderr(), err))
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dcli",
		Short:         "Command-line tools for the Destiny 2 API",
		SilenceErrors: true,
		SilenceUsage:  true,
		// A mistyped subcommand lands here as a positional argument.
		Args: parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (default <data dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	rootCmd.AddCommand(
		searchCmd(),
		manifestCmd(),
		versionCmd(),
	)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(err)
		return dclierr.ParameterParse()
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// reportError prints the rendered failure to w and returns the exit status for it.
func reportError(w io.Writer, err error) int {
	e := dclierr.Wrap(err)
	log.Error().Err(e.Cause()).Str("kind", e.Kind().String()).Msg("Command execution failed.")
	fmt.Fprintln(w, "Error:", e.Error())
	return e.Kind().ExitCode()
}

// parameterArgs reports positional argument problems as ParameterParse after
// printing cobra's explanation.
func parameterArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			cmd.PrintErrln(err)
			return dclierr.ParameterParse()
		}
		return nil
	}
}

// app holds what a command needs once configuration has been loaded.
type app struct {
	cfg     config.Config
	api     *client.Client
	manager *manifest.Manager
}

// openApp loads configuration and builds the API client. With needDB it also
// opens the local database and the manifest manager.
func openApp(cmd *cobra.Command, needDB bool) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, api: client.New(cfg)}
	if !needDB {
		return a, nil
	}

	db.Path = cfg.DatabasePath()
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return nil, err
	}
	a.manager = manifest.NewManager(cfg.ManifestDir(), cfg.Language, a.api, db.NewManifestRepository(db.GetDB()))
	if term.IsTerminal(int(os.Stderr.Fd())) {
		a.manager.Progress = cmd.ErrOrStderr()
	}
	return a, nil
}

func (a *app) close() {
	if a.manager == nil {
		return
	}
	if err := db.CloseDB(); err != nil {
		log.Warn().Err(err).Msg("Failed to close the database.")
	}
}
