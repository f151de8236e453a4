package types

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ProjectID represents the owning project of an integration
type ProjectID int64

// String returns the string representation
func (id ProjectID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseProjectID parses a project ID from a path segment
func ParseProjectID(s string) (ProjectID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid project ID", goerr.V("value", s))
	}
	if v <= 0 {
		return 0, goerr.New("project ID must be positive", goerr.V("value", s))
	}
	return ProjectID(v), nil
}

// TeamID represents a team identifier on the chat platform
type TeamID string

// String returns the string representation
func (id TeamID) String() string {
	return string(id)
}

// CommandID represents a registered slash command on the chat platform
type CommandID string

// String returns the string representation
func (id CommandID) String() string {
	return string(id)
}

// AttemptID represents a provisioning attempt identifier
type AttemptID string

// String returns the string representation
func (id AttemptID) String() string {
	return string(id)
}

// NewAttemptID creates a new AttemptID using UUID v7
func NewAttemptID() (AttemptID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate attempt ID")
	}
	return AttemptID(id.String()), nil
}

// IntegrationName is the service name used in trigger URLs and routes
type IntegrationName string

// String returns the string representation
func (n IntegrationName) String() string {
	return string(n)
}

// DefaultIntegrationName is the integration served by this module
const DefaultIntegrationName IntegrationName = "mattermost_slash_commands"

// DefaultTrigger returns the slash command trigger word proposed for a project
func DefaultTrigger(projectID ProjectID) string {
	return fmt.Sprintf("project-%d", projectID)
}
