package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/assignment/forge"
)

var ErrInvalid = errors.New("invalid configuration")

type Forge string

const (
	ForgeGitHub Forge = "github"
	ForgeGitea  Forge = "gitea"
	ForgeGitLab Forge = "gitlab"
)

type GitMode string

const (
	GitModeAPI   GitMode = "api"
	GitModeLocal GitMode = "local"
)

const (
	defaultAuthorName  = "github-actions[bot]"
	defaultAuthorEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

type Author struct {
	Name  string
	Email string
}

// Config is read once at startup. Use Load to build one from the environment.
type Config struct {
	Token      string
	Repository string // owner/name
	Owner      string
	Name       string

	RootPatterns       assignment.Patterns
	AssignmentPatterns assignment.Patterns

	DefaultBranch  string
	DryRun         bool
	RequireChanges bool

	OutputPath  string // GITHUB_OUTPUT
	SummaryPath string // GITHUB_STEP_SUMMARY
	Workspace   string

	Forge    Forge
	ForgeURL string
	GitMode  GitMode
	Author   Author

	ReadmeTemplate      string
	PullRequestTemplate string

	LogLevel slog.Level
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func FromEnvironment() (*Config, error) {
	return Load(os.LookupEnv)
}

// Load reads every setting through lookup and validates the result. All problems are
// reported together, each wrapped with ErrInvalid.
func Load(lookup LookupFunc) (*Config, error) {
	env := environment(lookup)
	var errs []error

	cfg := &Config{
		Token:               env.get("GITHUB_TOKEN", ""),
		Repository:          env.get("GITHUB_REPOSITORY", ""),
		DefaultBranch:       env.get("DEFAULT_BRANCH", "main"),
		OutputPath:          env.get("GITHUB_OUTPUT", ""),
		SummaryPath:         env.get("GITHUB_STEP_SUMMARY", ""),
		Workspace:           env.get("GITHUB_WORKSPACE", "."),
		Forge:               Forge(strings.ToLower(env.get("FORGE", string(ForgeGitHub)))),
		GitMode:             GitMode(strings.ToLower(env.get("GIT_MODE", string(GitModeAPI)))),
		ReadmeTemplate:      env.get("README_TEMPLATE", ""),
		PullRequestTemplate: env.get("PULL_REQUEST_TEMPLATE", ""),
		Author: Author{
			Name:  env.get("GIT_AUTHOR_NAME", defaultAuthorName),
			Email: env.get("GIT_AUTHOR_EMAIL", defaultAuthorEmail),
		},
	}
	cfg.ForgeURL = env.get("FORGE_URL", "")
	if cfg.ForgeURL == "" && cfg.Forge == ForgeGitHub {
		cfg.ForgeURL = env.get("GITHUB_API_URL", "")
	}
	cfg.DryRun = ParseFlag(env.get("DRY_RUN", ""), false)
	cfg.RequireChanges = ParseFlag(env.get("REQUIRE_CHANGES", ""), true)

	var err error
	cfg.RootPatterns, cfg.AssignmentPatterns, err = LoadPatterns(lookup)
	if err != nil {
		errs = append(errs, err)
	}

	cfg.LogLevel, err = LogLevel(lookup)
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(append(errs, cfg.Validate())...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPatterns reads only the directory pattern settings, for commands that never talk to
// a forge.
func LoadPatterns(lookup LookupFunc) (roots, assignments assignment.Patterns, err error) {
	env := environment(lookup)
	var errs []error

	roots, err = assignment.ParsePatterns(env.get("ASSIGNMENTS_ROOT_REGEX", assignment.DefaultRootPattern))
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: ASSIGNMENTS_ROOT_REGEX: %w", ErrInvalid, err))
	}
	assignments, err = assignment.ParsePatterns(env.get("ASSIGNMENT_REGEX", assignment.DefaultAssignmentPattern))
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: ASSIGNMENT_REGEX: %w", ErrInvalid, err))
	}

	return roots, assignments, errors.Join(errs...)
}

// LogLevel reads LOG_LEVEL as a log/slog level name, defaulting to INFO.
func LogLevel(lookup LookupFunc) (slog.Level, error) {
	logLevel := slog.LevelInfo
	level, ok := lookup("LOG_LEVEL")
	if !ok || level == "" {
		return logLevel, nil
	}

	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: LOG_LEVEL: %w", ErrInvalid, err)
	}

	return logLevel, nil
}

// Validate checks that the required settings are present and consistent. It also fills
// Owner and Name from Repository.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Token == "" {
		invalid("GITHUB_TOKEN is required")
	}

	if c.Repository == "" {
		invalid("GITHUB_REPOSITORY is required")
	} else if owner, name, err := forge.SplitRepository(c.Repository); err != nil {
		invalid("GITHUB_REPOSITORY: %v", err)
	} else {
		c.Owner, c.Name = owner, name
	}

	if strings.TrimSpace(c.DefaultBranch) == "" {
		invalid("DEFAULT_BRANCH must not be empty")
	}
	if len(c.RootPatterns) == 0 {
		invalid("ASSIGNMENTS_ROOT_REGEX must contain at least one pattern")
	}
	if len(c.AssignmentPatterns) == 0 {
		invalid("ASSIGNMENT_REGEX must contain at least one pattern")
	}

	switch c.Forge {
	case ForgeGitHub, ForgeGitLab:
	case ForgeGitea:
		if c.ForgeURL == "" {
			invalid("FORGE_URL is required for %s", c.Forge)
		}
	default:
		invalid("FORGE must be one of github, gitea or gitlab, got %q", c.Forge)
	}

	switch c.GitMode {
	case GitModeAPI, GitModeLocal:
	default:
		invalid("GIT_MODE must be api or local, got %q", c.GitMode)
	}

	return errors.Join(errs...)
}

// ParseFlag reads a boolean setting. "true", "1" and "yes" enable it and "false", "0" and
// "no" disable it, case-insensitively; anything else selects fallback.
func ParseFlag(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

type environment LookupFunc

func (e environment) get(key, fallback string) string {
	if value, ok := e(key); ok && value != "" {
		return value
	}

	return fallback
}
