package gitlab

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/slashcmd/pkg/domain/interfaces"
	"github.com/secmon-lab/slashcmd/pkg/domain/types"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Client resolves project names through the GitLab REST API
type Client struct {
	api *gitlab.Client
}

var _ interfaces.ProjectDirectory = (*Client)(nil)

// New creates a client for the instance at instanceURL. An empty URL means gitlab.com.
func New(instanceURL, token string) (*Client, error) {
	var opts []gitlab.ClientOptionFunc
	if instanceURL != "" {
		opts = append(opts, gitlab.WithBaseURL(strings.TrimSuffix(instanceURL, "/")+"/api/v4"))
	}

	api, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gitlab client", goerr.V("url", instanceURL))
	}
	return &Client{api: api}, nil
}

// ProjectName returns the namespaced name of a project, e.g. "Acme / api"
func (c *Client) ProjectName(ctx context.Context, projectID types.ProjectID) (string, error) {
	project, _, err := c.api.Projects.GetProject(projectID.String(), nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", goerr.Wrap(err, "failed to get gitlab project", goerr.V("project_id", projectID))
	}

	if project.NameWithNamespace != "" {
		return project.NameWithNamespace, nil
	}
	return project.Name, nil
}
