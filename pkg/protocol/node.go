// Package protocol defines the contract between the registry and node types.
package protocol

import (
	"context"

	"github.com/dukex/operion-drivelock/pkg/models"
)

// NodeFactory builds nodes of one type. Schema is the JSON schema every
// config is validated against before Create is called.
type NodeFactory interface {
	Create(ctx context.Context, id string, config map[string]any) (models.Node, error)

	// ID is the node type, e.g. "drivelock".
	ID() string
	Name() string
	Description() string
	Schema() map[string]any
}
