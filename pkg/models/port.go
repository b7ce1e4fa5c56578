package models

// Port represents a connection point on a node.
type Port struct {
	ID          string         `json:"id"` // "{nodeID}:{portName}"
	NodeID      string         `json:"node_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

type InputPort struct {
	Port
}

type OutputPort struct {
	Port
}

// NewInputPort builds an input port of node.
func NewInputPort(nodeID, name, description string) InputPort {
	return InputPort{Port: newPort(nodeID, name, description, nil)}
}

// NewOutputPort builds an output port of node with an optional data schema.
func NewOutputPort(nodeID, name, description string, schema map[string]any) OutputPort {
	return OutputPort{Port: newPort(nodeID, name, description, schema)}
}

func newPort(nodeID, name, description string, schema map[string]any) Port {
	return Port{
		ID:          MakePortID(nodeID, name),
		NodeID:      nodeID,
		Name:        name,
		Description: description,
		Schema:      schema,
	}
}

// MakePortID creates a port ID from node ID and port name.
func MakePortID(nodeID, portName string) string {
	return nodeID + ":" + portName
}
