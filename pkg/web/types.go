// Package web provides HTTP request and response types for the node API.
package web

import (
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
	"github.com/dukex/operion-drivelock/pkg/models"
)

// NodeTypeResponse describes a registered node type.
type NodeTypeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExecuteNodeRequest is the body of POST /nodes/:id/execute. Items feed the
// main input; each one is processed in order.
type ExecuteNodeRequest struct {
	NodeID    string           `json:"node_id,omitempty"`
	Config    map[string]any   `json:"config"              validate:"required"`
	Items     []map[string]any `json:"items,omitempty"     validate:"max=10000"`
	Variables map[string]any   `json:"variables,omitempty"`
}

// ExecuteNodeResponse carries the results keyed by output port.
type ExecuteNodeResponse struct {
	ExecutionID string                       `json:"execution_id"`
	NodeID      string                       `json:"node_id"`
	Outputs     map[string]models.NodeResult `json:"outputs"`
}

// BuildFilterRequest is the body of POST /filters/build.
type BuildFilterRequest struct {
	Filter rql.Filter `json:"filter"`
	Escape *bool      `json:"escape,omitempty"`
}

// BuildFilterResponse holds the serialized expression; Empty is set when the
// filter produced no expression.
type BuildFilterResponse struct {
	Query string `json:"query"`
	Empty bool   `json:"empty"`
}
