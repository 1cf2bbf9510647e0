package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// ErrProjectNotFound is returned (wrapped) by VercelClient implementations
// when the platform reports the project does not exist or is not visible to
// the configured token.
var ErrProjectNotFound = errors.New("project not found")

// VercelClient defines the driven port for reading project metadata from the
// source platform. The core never writes through this port.
type VercelClient interface {
	// GetProject fetches a single project by id or name.
	GetProject(ctx context.Context, id string) (*model.Project, error)
	// GetProjects lists all projects visible to the configured token.
	GetProjects(ctx context.Context) ([]model.Project, error)
	// GetProjectEnvVars fetches the environment variables configured on a
	// project, decrypted where the API allows it.
	GetProjectEnvVars(ctx context.Context, id string) ([]model.EnvVar, error)
}
