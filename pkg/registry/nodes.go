package registry

import (
	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/nodes/drivelock"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes(provider client.CredentialsProvider, opts ...client.Option) {
	r.RegisterNode(drivelock.NewNodeFactory(provider, opts...))
}
