package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
)

func newTestRegistry() *Registry {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes(client.StaticCredentials{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"})

	return registry
}

func TestRegisterDefaultNodes(t *testing.T) {
	registry := newTestRegistry()

	availableNodes := registry.GetAvailableNodes()
	if len(availableNodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(availableNodes))
	}

	if availableNodes[0].ID() != "drivelock" {
		t.Errorf("Expected node type 'drivelock', got: %s", availableNodes[0].ID())
	}

	if _, ok := registry.GetFactory("drivelock"); !ok {
		t.Error("Expected GetFactory to find 'drivelock'")
	}
}

func TestCreateNode_DriveLock(t *testing.T) {
	registry := newTestRegistry()

	config := map[string]any{
		"resource":     "computer",
		"operation":    "executeActions",
		"computer_ids": "{{.item.id}}",
		"actions":      `[{"action":"updateAgent"}]`,
	}

	node, err := registry.CreateNode(context.Background(), "drivelock", "dl-1", config)
	if err != nil {
		t.Fatalf("Failed to create DriveLock node: %v", err)
	}

	if node.ID() != "dl-1" {
		t.Errorf("Expected node ID 'dl-1', got: %s", node.ID())
	}

	if node.Type() != "drivelock" {
		t.Errorf("Expected node type 'drivelock', got: %s", node.Type())
	}
}

func TestCreateNode_SchemaViolation(t *testing.T) {
	registry := newTestRegistry()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing operation", map[string]any{"resource": "entity"}},
		{"unknown resource", map[string]any{"resource": "printer", "operation": "get"}},
		{"wrong type", map[string]any{"resource": "entity", "operation": "getList", "entity_name": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.CreateNode(context.Background(), "drivelock", "dl", tt.config)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got: %v", err)
			}
		})
	}
}

func TestCreateNode_UnsupportedOperation(t *testing.T) {
	registry := newTestRegistry()

	// both names exist in the schema but not as a pair
	config := map[string]any{"resource": "entity", "operation": "assignToGroups"}

	_, err := registry.CreateNode(context.Background(), "drivelock", "dl", config)
	if err == nil {
		t.Fatal("Expected error for an unsupported resource/operation pair")
	}

	if errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected a factory error, got a schema error: %v", err)
	}
}

func TestCreateNode_UnknownType(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.CreateNode(context.Background(), "unknown_type", "test-node", map[string]any{})
	if err == nil {
		t.Fatal("Expected error when creating node with unknown type")
	}

	if !errors.Is(err, ErrNodeNotRegistered) {
		t.Errorf("Expected ErrNodeNotRegistered, got: %v", err)
	}
}
