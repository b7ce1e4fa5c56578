// Package models defines the node execution models shared by nodes, the
// registry and the HTTP API.
package models

import (
	"context"
	"time"
)

// Standard port names.
const (
	InputPortMain     = "main"
	OutputPortSuccess = "success"
	OutputPortError   = "error"
)

// Node is an executable unit. Execute returns results keyed by output port
// name; node-level failures go to the error port, the returned error is
// reserved for failures of the execution itself.
type Node interface {
	ID() string
	Type() string
	Execute(ctx context.Context, execCtx ExecutionContext, inputs map[string]NodeResult) (map[string]NodeResult, error)
	InputPorts() []InputPort
	OutputPorts() []OutputPort
	InputRequirements() InputRequirements
}

// NodeResult represents the result of a node execution.
type NodeResult struct {
	NodeID    string         `json:"node_id"`
	Data      map[string]any `json:"data"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// NodeStatus defines the possible states of a node execution.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)
