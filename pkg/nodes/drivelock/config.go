package drivelock

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/operion-drivelock/pkg/drivelock/customprops"
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
)

type Resource string

const (
	ResourceEntity           Resource = "entity"
	ResourceBinaries         Resource = "binaries"
	ResourceComputer         Resource = "computer"
	ResourceGroup            Resource = "group"
	ResourceApplicationRules Resource = "applicationRules"
	ResourceDeviceRules      Resource = "deviceRules"
	ResourceDriveRules       Resource = "driveRules"
	ResourcePolicy           Resource = "policy"
	ResourceCustomProperty   Resource = "customProperty"
	ResourceTool             Resource = "tool"
)

type Operation string

// OperationKey identifies a handler.
type OperationKey struct {
	Resource  Resource
	Operation Operation
}

func (k OperationKey) String() string {
	return string(k.Resource) + "/" + string(k.Operation)
}

// AdditionalFields are the optional list, count and export query parameters.
type AdditionalFields struct {
	Select               Text    `json:"select,omitempty"`
	Query                Text    `json:"query,omitempty"`
	SortBy               Text    `json:"sort_by,omitempty"`
	GroupBy              Text    `json:"group_by,omitempty"`
	Skip                 *Number `json:"skip,omitempty"`
	Take                 *Number `json:"take,omitempty"`
	GetTotalCount        *Flag   `json:"get_total_count,omitempty"`
	IncludeLinkedObjects *Flag   `json:"include_linked_objects,omitempty"`
	GetFullObjects       *Flag   `json:"get_full_objects,omitempty"`
	GetAsFlattenedList   *Flag   `json:"get_as_flattened_list,omitempty"`
}

// ExportOptions tune entity exports.
type ExportOptions struct {
	Readability            *Number `json:"readability,omitempty"`
	Separator              Text    `json:"separator,omitempty"`
	Language               Text    `json:"language,omitempty"`
	MaskUserProperties     *Flag   `json:"mask_user_properties,omitempty"`
	MaskComputerProperties *Flag   `json:"mask_computer_properties,omitempty"`
}

// Config is the node configuration after per-item template rendering.
type Config struct {
	Resource       Resource  `json:"resource"         validate:"required"`
	Operation      Operation `json:"operation"        validate:"required"`
	ContinueOnFail Flag      `json:"continue_on_fail"`
	IdempotencyKey Flag      `json:"idempotency_key"`

	// entity
	EntityName           Text             `json:"entity_name"`
	EntityID             Text             `json:"entity_id"`
	IncludeLinkedObjects Flag             `json:"include_linked_objects"`
	AdditionalFields     AdditionalFields `json:"additional_fields"`
	ExportFormat         Text             `json:"export_format"`
	ExportOptions        ExportOptions    `json:"export_options"`
	Filter               *rql.Filter      `json:"filter,omitempty"`

	// listing
	ReturnAll           Flag     `json:"return_all"`
	Limit               Number   `json:"limit"`
	GetFullObject       Flag     `json:"get_full_object"`
	Properties          []string `json:"properties"`
	ExtensionProperties []string `json:"extension_properties"`

	// computer
	ComputerIDs            Text `json:"computer_ids"`
	Actions                any  `json:"actions"`
	NotifyAgent            Flag `json:"notify_agent"`
	ComputerID             Text `json:"computer_id"`
	UnlockData             any  `json:"unlock_data"`
	DeleteRecoveryData     Flag `json:"delete_recovery_data"`
	DeleteEvents           Flag `json:"delete_events"`
	DeleteGroupDefinitions Flag `json:"delete_group_definitions"`
	AllowToRejoin          Flag `json:"allow_to_rejoin"`

	// group
	GroupID       Text `json:"group_id"`
	Memberships   any  `json:"memberships"`
	MembershipIDs Text `json:"membership_ids"`

	// application, device and drive rules
	ConfigID      Text   `json:"config_id"`
	ConfigVersion Number `json:"config_version"`
	Rules         any    `json:"rules"`
	RuleIDs       Text   `json:"rule_ids"`

	// policy
	PolicyID   Text `json:"policy_id"`
	PolicyData any  `json:"policy_data"`
	GroupIDs   Text `json:"group_ids"`

	// custom properties
	Schema                    Text                             `json:"schema"`
	CustomProperties          []customprops.PropertyDefinition `json:"custom_properties"                validate:"dive"`
	CreateOrUpdateIfNotExists Flag                             `json:"create_or_update_if_not_exists"`
	CustomPropertyID          Text                             `json:"custom_property_id"`
	UpdateProperties          []customprops.PropertyValue      `json:"update_properties"                validate:"dive"`
}

// Key returns the handler key of the configuration.
func (c Config) Key() OperationKey {
	return OperationKey{Resource: c.Resource, Operation: c.Operation}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeConfig maps a rendered configuration onto Config.
func decodeConfig(raw map[string]any) (Config, error) {
	var cfg Config

	b, err := json.Marshal(raw)
	if err != nil {
		return cfg, fmt.Errorf("failed to encode config: %w", err)
	}

	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	return cfg, nil
}
