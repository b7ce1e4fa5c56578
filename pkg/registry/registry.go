// Package registry keeps the node factories available to the CLI and the HTTP API.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/operion-drivelock/pkg/models"
	"github.com/dukex/operion-drivelock/pkg/protocol"
)

var (
	// ErrNodeNotRegistered is returned for an unknown node type.
	ErrNodeNotRegistered = errors.New("node type not registered")

	// ErrInvalidConfig is returned when a configuration does not match the
	// factory schema.
	ErrInvalidConfig = errors.New("invalid node configuration")
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode adds a factory, replacing any factory with the same ID.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
	r.logger.Debug("registered node factory", "node_type", factory.ID())
}

// GetAvailableNodes returns the registered factories sorted by ID.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.nodeFactories))
	for _, f := range r.nodeFactories {
		factories = append(factories, f)
	}

	sort.Slice(factories, func(i, j int) bool { return factories[i].ID() < factories[j].ID() })

	return factories
}

func (r *Registry) GetFactory(nodeType string) (protocol.NodeFactory, bool) {
	f, ok := r.nodeFactories[nodeType]

	return f, ok
}

// ValidateConfig checks config against the factory schema.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotRegistered, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(factory.Schema()),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", nodeType, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// CreateNode validates config and creates a node of nodeType.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (models.Node, error) {
	if err := r.ValidateConfig(nodeType, config); err != nil {
		return nil, err
	}

	node, err := r.nodeFactories[nodeType].Create(ctx, id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s node %q: %w", nodeType, id, err)
	}

	return node, nil
}

// HealthCheck reports whether any node type is registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.nodeFactories) == 0 {
		return "no node types registered", false
	}

	return fmt.Sprintf("%d node type(s) registered", len(r.nodeFactories)), true
}
