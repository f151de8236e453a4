package interfaces

import (
	"context"

	"github.com/secmon-lab/slashcmd/pkg/domain/types"
)

//go:generate moq -out mocks/project_mock.go -pkg mocks . ProjectDirectory

// ProjectDirectory looks up project names on the code hosting side
type ProjectDirectory interface {
	ProjectName(ctx context.Context, projectID types.ProjectID) (string, error)
}
