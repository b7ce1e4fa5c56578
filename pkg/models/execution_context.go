package models

// ExecutionContext is the data available to templates while a node runs.
type ExecutionContext struct {
	ID          string                `json:"id"`
	WorkflowID  string                `json:"workflow_id,omitempty"`
	NodeResults map[string]NodeResult `json:"node_results,omitempty"`
	TriggerData map[string]any        `json:"trigger_data,omitempty"`
	Variables   map[string]any        `json:"variables,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
}
