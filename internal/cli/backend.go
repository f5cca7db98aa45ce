package cli

import (
	"context"
	"log/slog"

	"github.com/tvandinther/assignment-manager/internal/config"
	igit "github.com/tvandinther/assignment-manager/internal/git"
	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/assignment/forge"
)

type backend struct {
	repository assignment.Repository
	reviewer   assignment.Reviewer
	close      func()
}

// newBackend connects to the configured forge. In local git mode branches and commits go
// through the workspace clone and only pull requests use the forge API.
func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	f, err := newForge(ctx, cfg)
	if err != nil {
		return nil, err
	}

	b := &backend{
		repository: f,
		reviewer:   f,
		close:      func() {},
	}

	if cfg.GitMode == config.GitModeLocal {
		local, err := igit.Open(cfg.Workspace, igit.Options{
			Author: igit.Author{
				Name:  cfg.Author.Name,
				Email: cfg.Author.Email,
			},
			Auth: igit.TokenAuth(cfg.Token),
		})
		if err != nil {
			return nil, err
		}

		b.repository = local
		b.close = func() {
			if err := local.Restore(); err != nil {
				slog.Warn("failed to restore original branch", "error", err)
			}
		}
	}

	slog.Debug("backend ready", "forge", cfg.Forge, "gitMode", cfg.GitMode, "repository", cfg.Repository)

	return b, nil
}

func newForge(ctx context.Context, cfg *config.Config) (forge.Forge, error) {
	switch cfg.Forge {
	case config.ForgeGitea:
		return forge.NewGitea(ctx, forge.GiteaOptions{
			Token:      cfg.Token,
			Repository: cfg.Repository,
			URL:        cfg.ForgeURL,
		})
	case config.ForgeGitLab:
		return forge.NewGitlab(forge.GitlabOptions{
			Token:      cfg.Token,
			Repository: cfg.Repository,
			URL:        cfg.ForgeURL,
		})
	default:
		return forge.NewGitHub(ctx, forge.GitHubOptions{
			Token:      cfg.Token,
			Repository: cfg.Repository,
			BaseURL:    cfg.ForgeURL,
		})
	}
}
