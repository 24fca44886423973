// Package cli provides the command-line interface for simblaster.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/a2mainz/simblaster/internal/logging"
	"github.com/a2mainz/simblaster/internal/sim"
)

var (
	// Global flags
	cfgFile string
	logFile string
	verbose bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command. Without a subcommand it submits.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simblaster",
		Short: "Plan and submit A2 simulation jobs to the cluster queue",
		Long: `simblaster ` + Version + ` - Built: ` + BuildTime + `
Runs the simulation chain (MC generator, Ant-addTID, A2 Geant4) on the
cluster. For every requested channel the existing files are counted so
that new files continue the numbering, one test job is run locally and
then one queue job per file is submitted.

Settings are read from a "sim_settings" file in the working directory,
~/.sim_settings or ~/.config/simblaster/sim_settings unless --config
is given. Use "simblaster example-config" to export the defaults.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
			if logFile != "" {
				logger.EnableFile(logging.FileConfig{Path: logFile})
			}
		},
		RunE:          runSubmit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file path")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write the log to this file (overrides log_file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	addRunFlags(rootCmd)

	rootCmd.Version = Version + " (" + BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, no further jobs will be submitted.\n", sig)
				fmt.Fprintf(os.Stderr, "Jobs already in the queue keep running.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	if err != nil {
		reportError(err)
	}
	if closeErr := GetLogger().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", closeErr)
	}
	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newExampleConfigCmd())
	rootCmd.AddCommand(newCompletionCmd(rootCmd))
}

func reportError(err error) {
	log := GetLogger()

	var valErr *sim.ValidationError
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("Interrupted, aborting simulation process")
	case errors.As(err, &valErr):
		log.Error().
			Str("stage", valErr.Stage).
			Int("exit_code", valErr.ExitCode).
			Str("command", valErr.Command).
			Msg("Test job failed, aborting job submission")
		fmt.Fprint(os.Stderr, valErr.Details())
	default:
		log.Error().Err(err).Int("exit_code", sim.ExitCode(err)).Msg("Run failed")
	}
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate a shell completion script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		Long: `Generate a shell completion script for simblaster.

QUICK TEST (temporary, current session only):
  source <(simblaster completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return completionCmd
}
