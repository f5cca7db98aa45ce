package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvandinther/assignment-manager/internal/workflow"
)

func newPatternsCmd(env Environment) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show the directory patterns configured for this action in workflow files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				workspace = lookupOr(env, "GITHUB_WORKSPACE", ".")
			}

			patterns, err := workflow.Discover(os.DirFS(workspace))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", workflow.RootPatternInput, formatList(patterns.Root))
			fmt.Fprintf(out, "%s: %s\n", workflow.AssignmentPatternInput, formatList(patterns.Assignment))

			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Repository checkout to inspect (overrides GITHUB_WORKSPACE)")

	return cmd
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "(not set)"
	}
	return strings.Join(values, ", ")
}
