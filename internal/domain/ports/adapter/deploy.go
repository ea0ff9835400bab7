package adapter

import (
	"context"

	"voicesmith/internal/domain/model"
)

// Deployer is the terminal build collaborator. The engine supervises it for
// logging only; any error fails the current build attempt.
type Deployer interface {
	// Deploy pushes the assembled configuration and returns a deployment URL.
	// progress is invoked with human-readable trace lines as phases complete.
	Deploy(ctx context.Context, cfg *model.AgentConfig, progress func(message string)) (deploymentURL string, err error)
}
