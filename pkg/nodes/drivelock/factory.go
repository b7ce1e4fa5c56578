package drivelock

import (
	"context"
	"sort"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/drivelock/customprops"
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
	"github.com/dukex/operion-drivelock/pkg/models"
	"github.com/dukex/operion-drivelock/pkg/protocol"
)

// NodeFactory creates DriveLock nodes sharing one API client.
type NodeFactory struct {
	client *client.Client
}

// NewNodeFactory creates a factory whose nodes call the API with credentials
// from provider.
func NewNodeFactory(provider client.CredentialsProvider, opts ...client.Option) protocol.NodeFactory {
	return &NodeFactory{client: client.New(provider, opts...)}
}

// Create creates a new Node instance.
func (f *NodeFactory) Create(_ context.Context, id string, config map[string]any) (models.Node, error) {
	return NewNode(id, config, f.client)
}

func (f *NodeFactory) ID() string {
	return nodeType
}

func (f *NodeFactory) Name() string {
	return "DriveLock"
}

func (f *NodeFactory) Description() string {
	return "Calls the DriveLock administration API: entities, binaries, computers, groups, rules, policies and custom properties"
}

// Schema returns the JSON schema for DriveLock node configuration. Values
// typed as numbers or booleans also accept strings, which may be templates.
func (f *NodeFactory) Schema() map[string]any {
	ops := Operations()

	resources := make([]string, 0, len(ops))
	operations := []string{}
	seen := map[Operation]bool{}

	for resource, list := range ops {
		resources = append(resources, string(resource))

		for _, op := range list {
			if !seen[op] {
				seen[op] = true
				operations = append(operations, string(op))
			}
		}
	}

	sort.Strings(resources)
	sort.Strings(operations)

	text := map[string]any{"type": []string{"string", "number", "array"}}
	number := map[string]any{"type": []string{"number", "string"}}
	flag := map[string]any{"type": []string{"boolean", "string"}}
	jsonParam := map[string]any{
		"type":        []string{"string", "object", "array"},
		"description": "JSON value, or a string holding JSON",
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource": map[string]any{
				"type":        "string",
				"description": "DriveLock resource",
				"enum":        resources,
			},
			"operation": map[string]any{
				"type":        "string",
				"description": "Operation on the resource",
				"enum":        operations,
			},
			"continue_on_fail": map[string]any{
				"type":        []string{"boolean", "string"},
				"description": "Record failed items as {error} entries instead of stopping",
				"default":     false,
			},
			"idempotency_key": map[string]any{
				"type":        []string{"boolean", "string"},
				"description": "Send an Idempotency-Key header, stable across retries",
				"default":     false,
			},
			"entity_name": map[string]any{
				"type":        "string",
				"description": "Entity collection, e.g. Computers or Users",
				"examples":    rql.Entities(),
			},
			"entity_id":              text,
			"include_linked_objects": flag,
			"additional_fields": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"select":                 text,
					"query":                  map[string]any{"type": "string", "description": "RQL expression, replaced by filter"},
					"sort_by":                text,
					"group_by":               text,
					"skip":                   number,
					"take":                   number,
					"get_total_count":        flag,
					"include_linked_objects": flag,
					"get_full_objects":       flag,
					"get_as_flattened_list":  flag,
				},
			},
			"export_format": map[string]any{
				"type":     "string",
				"examples": []string{"csv", "xlsx", "json"},
			},
			"export_options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"readability":              number,
					"separator":                text,
					"language":                 text,
					"mask_user_properties":     flag,
					"mask_computer_properties": flag,
				},
			},
			"filter": map[string]any{
				"type":        "object",
				"description": "Structured filter serialized to an RQL expression",
				"properties": map[string]any{
					"mode":       map[string]any{"type": "string", "enum": []string{string(rql.ModeBuilder), string(rql.ModeRaw)}},
					"raw":        map[string]any{"type": "string"},
					"combinator": map[string]any{"type": "string", "enum": []string{string(rql.And), string(rql.Or)}},
					"groups":     map[string]any{"type": "object"},
				},
			},
			"return_all":               flag,
			"limit":                    map[string]any{"type": []string{"number", "string"}, "default": defaultLimit},
			"get_full_object":          flag,
			"properties":               map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"extension_properties":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"computer_ids":             text,
			"actions":                  jsonParam,
			"notify_agent":             flag,
			"computer_id":              text,
			"unlock_data":              jsonParam,
			"delete_recovery_data":     flag,
			"delete_events":            flag,
			"delete_group_definitions": flag,
			"allow_to_rejoin":          flag,
			"group_id":                 text,
			"memberships":              jsonParam,
			"membership_ids":           text,
			"config_id":                text,
			"config_version":           number,
			"rules":                    jsonParam,
			"rule_ids":                 text,
			"policy_id":                text,
			"policy_data":              jsonParam,
			"group_ids":                text,
			"schema": map[string]any{
				"type": "string",
				"enum": customprops.Schemas,
			},
			"custom_properties": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":                 map[string]any{"type": "string"},
						"data_type":            map[string]any{"type": "string", "enum": []string{"String", "Int", "Bool", "DateTime"}},
						"description":          map[string]any{"type": "string"},
						"english_display_name": map[string]any{"type": "string"},
						"german_display_name":  map[string]any{"type": "string"},
						"order_id":             map[string]any{"type": "number"},
					},
					"required": []string{"name", "data_type", "english_display_name"},
				},
			},
			"create_or_update_if_not_exists": flag,
			"custom_property_id":             text,
			"update_properties": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"property": map[string]any{"type": "string"},
						"value":    map[string]any{},
					},
					"required": []string{"property"},
				},
			},
		},
		"required": []string{"resource", "operation"},
		"examples": []map[string]any{
			{
				"resource":    "entity",
				"operation":   "getList",
				"entity_name": "Computers",
				"filter": map[string]any{
					"mode": "builder",
					"groups": map[string]any{"groups": []map[string]any{{
						"combinator": "and",
						"conditions": []map[string]any{{"field": "name", "operator": "startsWith", "value": "{{.item.prefix}}"}},
					}}},
				},
			},
			{
				"resource":     "computer",
				"operation":    "executeActions",
				"computer_ids": "{{.item.id}}",
				"actions":      `[{"action":"updateAgent"}]`,
				"notify_agent": true,
			},
		},
	}
}
