package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvandinther/assignment-manager/internal/config"
)

// Environment is everything a command reads from the outside world.
type Environment struct {
	Lookup config.LookupFunc
	Stdout io.Writer
	Stderr io.Writer
}

func DefaultEnvironment() Environment {
	return Environment{
		Lookup: os.LookupEnv,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Execute runs the command line with the process arguments and environment.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand(DefaultEnvironment())
	return cmd.ExecuteContext(ctx)
}

func NewRootCommand(env Environment) *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "assignment-manager",
		Short: "Create a branch, README and pull request for every assignment in a repository.",
		Long: `assignment-manager scans the workspace for assignment directories, then creates a
branch with a README and opens a pull request for each assignment that has never had one.
Run without a subcommand it behaves like "run", which is how the GitHub Action invokes it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger(env)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssignments(cmd.Context(), env, opts, cmd.Flags().Changed("dry-run"), cmd.Flags().Changed("workspace"))
		},
	}
	opts.bind(rootCmd)

	rootCmd.SetOut(env.Stdout)
	rootCmd.SetErr(env.Stderr)
	rootCmd.AddCommand(
		newRunCmd(env),
		newScanCmd(env),
		newPatternsCmd(env),
	)

	return rootCmd
}

// initLogger installs a JSON slog handler on stderr at the level named by LOG_LEVEL.
func initLogger(env Environment) error {
	logLevel, err := config.LogLevel(env.Lookup)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(env.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Debug("logger initialised", "logLevel", logLevel)

	return nil
}
