package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/service/mattermost"
	"github.com/urfave/cli/v3"
)

// Mattermost holds the chat platform configuration
type Mattermost struct {
	Host        string
	AccessToken string
	Enabled     bool
	Timeout     time.Duration
}

// Flags returns CLI flags for Mattermost configuration
func (m *Mattermost) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mattermost-host",
			Usage:       "Mattermost instance URL, e.g. https://chat.example.com",
			Category:    "Mattermost",
			Sources:     cli.EnvVars("SLASHCMD_MATTERMOST_HOST"),
			Destination: &m.Host,
		},
		&cli.StringFlag{
			Name:        "mattermost-access-token",
			Usage:       "Personal access token used to list teams and register commands",
			Category:    "Mattermost",
			Sources:     cli.EnvVars("SLASHCMD_MATTERMOST_ACCESS_TOKEN"),
			Destination: &m.AccessToken,
		},
		&cli.BoolFlag{
			Name:        "mattermost-enabled",
			Usage:       "Enable adding the slash commands to Mattermost",
			Category:    "Mattermost",
			Sources:     cli.EnvVars("SLASHCMD_MATTERMOST_ENABLED"),
			Destination: &m.Enabled,
		},
		&cli.DurationFlag{
			Name:        "mattermost-timeout",
			Usage:       "Timeout of each Mattermost API call",
			Category:    "Mattermost",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("SLASHCMD_MATTERMOST_TIMEOUT"),
			Destination: &m.Timeout,
		},
	}
}

// Validate checks that an enabled integration has somewhere to talk to
func (m *Mattermost) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Host == "" {
		return goerr.New("mattermost host is required when the integration is enabled")
	}
	if m.AccessToken == "" {
		return goerr.New("mattermost access token is required when the integration is enabled")
	}
	return nil
}

// Configure creates the Mattermost API client
func (m *Mattermost) Configure() (*mattermost.Client, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return mattermost.New(m.Host, mattermost.WithTimeout(m.Timeout)), nil
}

// Credentials returns the credentials for Mattermost API calls
func (m *Mattermost) Credentials() model.Credentials {
	return model.Credentials{AccessToken: m.AccessToken}
}

// SelectTeamURL returns the page where users join a team
func (m *Mattermost) SelectTeamURL() string {
	return mattermost.SelectTeamURL(m.Host)
}

// LogValue returns structured log value
func (m Mattermost) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", m.Host),
		slog.Bool("enabled", m.Enabled),
		slog.Bool("has_access_token", m.AccessToken != ""),
		slog.Duration("timeout", m.Timeout),
	)
}
