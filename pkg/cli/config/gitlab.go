package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/service/gitlab"
	"github.com/urfave/cli/v3"
)

// GitLab holds the optional project directory configuration. When no token
// is set, commands are described with the numeric project ID.
type GitLab struct {
	URL   string
	Token string
}

// Flags returns CLI flags for GitLab configuration
func (g *GitLab) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gitlab-url",
			Usage:       "GitLab instance URL used to look up project names (default: gitlab.com)",
			Category:    "GitLab",
			Sources:     cli.EnvVars("SLASHCMD_GITLAB_URL"),
			Destination: &g.URL,
		},
		&cli.StringFlag{
			Name:        "gitlab-token",
			Usage:       "GitLab access token with read_api scope",
			Category:    "GitLab",
			Sources:     cli.EnvVars("SLASHCMD_GITLAB_TOKEN"),
			Destination: &g.Token,
		},
	}
}

// IsConfigured checks if project names can be looked up
func (g *GitLab) IsConfigured() bool {
	return g.Token != ""
}

// Configure creates the project directory, or nil when GitLab is not configured
func (g *GitLab) Configure() (interfaces.ProjectDirectory, error) {
	if !g.IsConfigured() {
		return nil, nil
	}

	client, err := gitlab.New(g.URL, g.Token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure gitlab")
	}
	return client, nil
}

// LogValue returns structured log value without the token
func (g GitLab) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", g.URL),
		slog.Bool("has_token", g.Token != ""),
	)
}
