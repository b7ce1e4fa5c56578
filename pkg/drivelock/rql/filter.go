// Package rql builds DriveLock RQL filter expressions from structured filter groups.
//
// The grammar is functional: op(field,value), in(field,v1,v2), and(...), or(...)
// and not(...). Expressions are consumed by the list, count and export endpoints
// through the "query" parameter.
package rql

// Mode selects how a filter expression is produced.
type Mode string

const (
	ModeBuilder Mode = "builder"
	ModeRaw     Mode = "raw"
)

// Combinator joins conditions inside a group or groups at the top level.
type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

// FieldType is informational; it never changes serialization.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
)

// Operator is a comparison function name of the grammar.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpGt         Operator = "gt"
	OpLt         Operator = "lt"
	OpGe         Operator = "ge"
	OpLe         Operator = "le"
	OpIn         Operator = "in"
)

// ConditionRow is a single predicate. Value is used for every operator except
// "in", which reads the comma separated ValueList instead.
type ConditionRow struct {
	Field     string    `json:"field"                yaml:"field"`
	FieldType FieldType `json:"field_type,omitempty" yaml:"field_type,omitempty"`
	Operator  Operator  `json:"operator"             yaml:"operator"`
	Negate    bool      `json:"negate,omitempty"     yaml:"negate,omitempty"`
	Value     string    `json:"value,omitempty"      yaml:"value,omitempty"`
	ValueList string    `json:"value_list,omitempty" yaml:"value_list,omitempty"`
}

// FilterGroup is an ordered list of conditions joined by Combinator.
type FilterGroup struct {
	Combinator Combinator     `json:"combinator" yaml:"combinator"`
	Conditions []ConditionRow `json:"conditions" yaml:"conditions"`
}

// FilterGroupsParam is the ordered list of groups of a builder-mode filter.
type FilterGroupsParam struct {
	Groups []FilterGroup `json:"groups" yaml:"groups"`
}

// Filter bundles every input of Build, as it appears in node configuration
// and filter definition files.
type Filter struct {
	Mode       Mode              `json:"mode"                 yaml:"mode"`
	Raw        string            `json:"raw,omitempty"        yaml:"raw,omitempty"`
	Combinator Combinator        `json:"combinator,omitempty" yaml:"combinator,omitempty"`
	Groups     FilterGroupsParam `json:"groups"               yaml:"groups"`
}

// Query serializes the filter with the default Builder.
func (f Filter) Query() (string, bool) {
	mode := f.Mode
	if mode == "" {
		mode = ModeBuilder
	}

	combinator := f.Combinator
	if combinator == "" {
		combinator = And
	}

	return Build(mode, f.Raw, combinator, f.Groups)
}
