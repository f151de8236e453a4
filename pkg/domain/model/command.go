package model

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CommandTemplate holds the fixed parameters of the registered command
type CommandTemplate struct {
	DisplayName      string `yaml:"display_name"`
	Description      string `yaml:"description"`
	Username         string `yaml:"username"`
	IconURL          string `yaml:"icon_url"`
	AutoCompleteHint string `yaml:"auto_complete_hint"`
}

// DefaultCommandTemplate returns the template used when no file is configured
func DefaultCommandTemplate() *CommandTemplate {
	return &CommandTemplate{
		DisplayName:      "slashcmd / %s",
		Description:      "Perform common operations on: %s",
		Username:         "slashcmd",
		AutoCompleteHint: "[help]",
	}
}

// Mattermost trigger words: no leading slash, no spaces
var triggerPattern = regexp.MustCompile(`^[^/\s][^\s]{0,127}$`)

// Validate validates the template
func (t *CommandTemplate) Validate() error {
	if t.Username == "" {
		return goerr.New("username is required")
	}
	if t.IconURL != "" {
		u, err := url.Parse(t.IconURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return goerr.New("icon_url must be an absolute URL", goerr.V("icon_url", t.IconURL))
		}
	}
	return nil
}

// WithDefaults fills empty fields from DefaultCommandTemplate. A nil
// template yields the defaults.
func (t *CommandTemplate) WithDefaults() *CommandTemplate {
	def := DefaultCommandTemplate()
	if t == nil {
		return def
	}
	result := *t
	if result.DisplayName == "" {
		result.DisplayName = def.DisplayName
	}
	if result.Description == "" {
		result.Description = def.Description
	}
	if result.Username == "" {
		result.Username = def.Username
	}
	if result.AutoCompleteHint == "" {
		result.AutoCompleteHint = def.AutoCompleteHint
	}
	return &result
}

// Build creates the command for a project. "%s" in DisplayName and
// Description is replaced with projectName.
func (t *CommandTemplate) Build(projectName, trigger, triggerURL string) (*SlashCommand, error) {
	if !triggerPattern.MatchString(trigger) {
		return nil, NewValidationError("trigger", "Trigger must be a single word and must not start with a slash")
	}

	description := expand(t.Description, projectName)
	return &SlashCommand{
		Trigger:          trigger,
		URL:              triggerURL,
		DisplayName:      expand(t.DisplayName, projectName),
		Description:      description,
		Username:         t.Username,
		IconURL:          t.IconURL,
		AutoComplete:     true,
		AutoCompleteDesc: description,
		AutoCompleteHint: t.AutoCompleteHint,
	}, nil
}

func expand(format, projectName string) string {
	return strings.ReplaceAll(format, "%s", projectName)
}
