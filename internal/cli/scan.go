package cli

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvandinther/assignment-manager/internal/config"
	"github.com/tvandinther/assignment-manager/internal/workflow"
	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

type scanOptions struct {
	workspace     string
	fromWorkflows bool
}

func newScanCmd(env Environment) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the assignments found in the workspace and the branch each would get.",
		Long: `scan walks the workspace with the configured patterns and prints every assignment
directory with its branch name. It never contacts a forge and needs no credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, assignments, err := config.LoadPatterns(env.Lookup)
			if err != nil {
				return err
			}

			workspace := opts.workspace
			if workspace == "" {
				workspace = lookupOr(env, "GITHUB_WORKSPACE", ".")
			}
			fsys := os.DirFS(workspace)

			if opts.fromWorkflows {
				roots, assignments, err = workflowPatterns(fsys, roots, assignments)
				if err != nil {
					return err
				}
			}

			found, err := assignment.NewScanner(fsys, roots, assignments).Scan()
			if err != nil {
				return fmt.Errorf("failed to scan %s: %w", workspace, err)
			}

			out := cmd.OutOrStdout()
			for _, a := range found {
				fmt.Fprintf(out, "%s -> %s\n", a.Path, a.Branch)
			}
			fmt.Fprintf(out, "%d assignments\n", len(found))

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "Directory to scan (overrides GITHUB_WORKSPACE)")
	cmd.Flags().BoolVar(&opts.fromWorkflows, "from-workflows", false, "Use the patterns configured in the workspace's workflow files")

	return cmd
}

// workflowPatterns replaces each pattern list with the one discovered in the workflow files,
// keeping the configured list when no workflow sets it.
func workflowPatterns(fsys fs.FS, roots, assignments assignment.Patterns) (assignment.Patterns, assignment.Patterns, error) {
	discovered, err := workflow.Discover(fsys)
	if err != nil {
		return nil, nil, err
	}

	if len(discovered.Root) > 0 {
		if roots, err = assignment.CompilePatterns(discovered.Root); err != nil {
			return nil, nil, fmt.Errorf("invalid root pattern in workflow: %w", err)
		}
	}
	if len(discovered.Assignment) > 0 {
		if assignments, err = assignment.CompilePatterns(discovered.Assignment); err != nil {
			return nil, nil, fmt.Errorf("invalid assignment pattern in workflow: %w", err)
		}
	}

	return roots, assignments, nil
}

func lookupOr(env Environment, key, fallback string) string {
	if value, ok := env.Lookup(key); ok && value != "" {
		return value
	}
	return fallback
}
