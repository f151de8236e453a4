package model

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

// IntegrationConfig is the project scoped slash command integration
type IntegrationConfig struct {
	ProjectID types.ProjectID `json:"project_id" firestore:"project_id"`
	Token     string          `json:"-" firestore:"token"`
	Active    bool            `json:"active" firestore:"active"`
	TeamID    types.TeamID    `json:"team_id,omitempty" firestore:"team_id"`
	CommandID types.CommandID `json:"command_id,omitempty" firestore:"command_id"`
	CreatedAt time.Time       `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" firestore:"updated_at"`
}

// NewIntegrationConfig creates an inactive integration without a token
func NewIntegrationConfig(projectID types.ProjectID) *IntegrationConfig {
	now := time.Now()
	return &IntegrationConfig{
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasToken reports whether a verification token is set
func (c *IntegrationConfig) HasToken() bool {
	return c.Token != ""
}

// MarkProvisioned records a successful registration of the command
func (c *IntegrationConfig) MarkProvisioned(cmd *RegisteredCommand) {
	c.Active = true
	c.TeamID = cmd.TeamID
	c.CommandID = cmd.ID
	if cmd.Token != "" {
		c.Token = cmd.Token
	}
	c.UpdatedAt = time.Now()
}

// NewToken generates a random verification token
func NewToken() (string, error) {
	// 24 bytes = 32 chars in base64
	return generateRandomSecret(24)
}

// generateRandomSecret generates a random base64-encoded string
func generateRandomSecret(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
