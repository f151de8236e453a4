package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/model"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Integration holds the settings of the slash command integration itself
type Integration struct {
	APIBase      string
	Name         string
	TemplatePath string
}

// Flags returns CLI flags for Integration configuration
func (i *Integration) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-base",
			Usage:       "Externally visible API root the trigger URL is built on",
			Category:    "Integration",
			Value:       "http://localhost:8080/api/v3",
			Sources:     cli.EnvVars("SLASHCMD_API_BASE"),
			Destination: &i.APIBase,
		},
		&cli.StringFlag{
			Name:        "integration-name",
			Usage:       "Integration name used in URLs",
			Category:    "Integration",
			Value:       types.DefaultIntegrationName.String(),
			Sources:     cli.EnvVars("SLASHCMD_INTEGRATION_NAME"),
			Destination: &i.Name,
		},
		&cli.StringFlag{
			Name:        "command-template",
			Usage:       "YAML file with display name, description, username, icon URL and autocomplete hint of the command",
			Category:    "Integration",
			Sources:     cli.EnvVars("SLASHCMD_COMMAND_TEMPLATE"),
			Destination: &i.TemplatePath,
		},
	}
}

// IntegrationName returns the configured name
func (i *Integration) IntegrationName() types.IntegrationName {
	return types.IntegrationName(i.Name)
}

// CommandTemplate loads the template file, or returns the defaults without one
func (i *Integration) CommandTemplate() (*model.CommandTemplate, error) {
	if i.TemplatePath == "" {
		return model.DefaultCommandTemplate(), nil
	}
	return LoadCommandTemplateFromFile(i.TemplatePath)
}

// LogValue returns structured log value
func (i Integration) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_base", i.APIBase),
		slog.String("name", i.Name),
		slog.String("command_template", i.TemplatePath),
	)
}

// LoadCommandTemplateFromFile loads a command template from YAML file.
// Fields missing from the file keep their defaults.
func LoadCommandTemplateFromFile(path string) (*model.CommandTemplate, error) {
	if path == "" {
		return nil, goerr.New("command template file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "command template file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read command template file",
			goerr.V("path", path))
	}

	var tmpl model.CommandTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML command template",
			goerr.V("path", path))
	}

	result := tmpl.WithDefaults()
	if err := result.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid command template",
			goerr.V("path", path))
	}

	return result, nil
}
