package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvandinther/assignment-manager/internal/actions"
	"github.com/tvandinther/assignment-manager/internal/config"
	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/assignment/forge"
	"github.com/tvandinther/assignment-manager/pkg/creator"
	"github.com/tvandinther/assignment-manager/pkg/progress"
)

type runOptions struct {
	dryRun    bool
	workspace string
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Report intended changes without making them (overrides DRY_RUN)")
	cmd.Flags().StringVar(&o.workspace, "workspace", "", "Directory to scan (overrides GITHUB_WORKSPACE)")
}

func newRunCmd(env Environment) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create branches, READMEs and pull requests for new assignments.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssignments(cmd.Context(), env, opts, cmd.Flags().Changed("dry-run"), cmd.Flags().Changed("workspace"))
		},
	}
	opts.bind(cmd)

	return cmd
}

func runAssignments(ctx context.Context, env Environment, opts *runOptions, dryRunSet, workspaceSet bool) error {
	cfg, err := config.Load(env.Lookup)
	if err != nil {
		return err
	}
	if dryRunSet {
		cfg.DryRun = opts.dryRun
	}
	if workspaceSet {
		cfg.Workspace = opts.workspace
	}

	reporter := progress.NewReporter(env.Stdout)
	if cfg.DryRun {
		reporter.Heading("Dry run: no changes will be made")
	}

	templates, err := assignment.LoadTemplates(cfg.ReadmeTemplate, cfg.PullRequestTemplate)
	if err != nil {
		return err
	}

	reporter.Heading("Scanning " + cfg.Workspace)
	reporter.Progress("root patterns: %s", cfg.RootPatterns)
	reporter.Progress("assignment patterns: %s", cfg.AssignmentPatterns)
	assignments, err := assignment.NewScanner(os.DirFS(cfg.Workspace), cfg.RootPatterns, cfg.AssignmentPatterns).Scan()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", cfg.Workspace, err)
	}
	reporter.Success("Found %d assignments", len(assignments))

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	var repository assignment.Repository = b.repository
	var reviewer assignment.Reviewer = b.reviewer
	if cfg.DryRun {
		simulated := forge.NewSimulated(repository, reviewer, reporter)
		repository, reviewer = simulated, simulated
	}

	service := creator.NewService(reporter, repository, reviewer, creator.ServiceOptions{
		DefaultBranch:  cfg.DefaultBranch,
		RequireChanges: cfg.RequireChanges,
		Templates:      templates,
	})

	result, err := service.Run(ctx, assignments)
	if err != nil {
		return err
	}

	if err := actions.WriteOutputs(cfg.OutputPath, result); err != nil {
		return err
	}
	if err := actions.WriteSummary(cfg.SummaryPath, result, cfg.DryRun); err != nil {
		return err
	}

	slog.Info("run complete",
		"createdBranches", result.CreatedBranches,
		"createdPullRequests", result.CreatedPullRequests,
		"skipped", len(result.Skipped),
		"failed", len(result.Failures),
		"dryRun", cfg.DryRun)

	return result.Err()
}
