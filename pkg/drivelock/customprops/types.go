// Package customprops reconciles DriveLock custom schema extensions with a
// desired set of custom properties.
package customprops

// PropType is the data type of a custom property.
type PropType string

const (
	PropTypeString   PropType = "String"
	PropTypeInt      PropType = "Int"
	PropTypeBool     PropType = "Bool"
	PropTypeDateTime PropType = "DateTime"
)

// Schemas that accept custom extensions.
var Schemas = []string{"AcBinaries", "Computers", "Devices", "Drives", "Softwares", "Users"}

// ExtensionName returns the extension group of a schema, e.g. ComputersExtensions.
func ExtensionName(schema string) string {
	return schema + "Extensions"
}

type DisplayText struct {
	Enu string `json:"enu"`
	Deu string `json:"deu"`
}

// ExtensionProperty is one custom property as stored by DriveLock.
type ExtensionProperty struct {
	PropType      PropType    `json:"propType"`
	Description   string      `json:"description"`
	DisplayText   DisplayText `json:"displayText"`
	PropertyGroup string      `json:"propertyGroup"`
	OrderID       int         `json:"orderId"`
}

// ExtensionGroup maps property names to their definition.
type ExtensionGroup map[string]ExtensionProperty

// CustomProps maps extension group names (e.g. ComputersExtensions) to groups.
type CustomProps map[string]ExtensionGroup

// PropertyDefinition is a desired custom property.
type PropertyDefinition struct {
	Name               string   `json:"name"                           validate:"required"`
	DataType           PropType `json:"data_type"                      validate:"required,oneof=String Int Bool DateTime"`
	Description        string   `json:"description,omitempty"`
	EnglishDisplayName string   `json:"english_display_name"           validate:"required"`
	GermanDisplayName  string   `json:"german_display_name,omitempty"`
	OrderID            int      `json:"order_id,omitempty"`
}

// CheckResult reports how a desired property compares to the stored one.
// Name is false when the property does not exist; DataType is true for
// missing properties.
type CheckResult struct {
	Name     bool `json:"name"`
	DataType bool `json:"datatype"`
	Changed  bool `json:"changed"`
}

// CheckReport summarizes a reconciliation.
type CheckReport struct {
	AllPropertiesFound  bool                   `json:"allPropertiesFound"`
	AllDataTypesCorrect bool                   `json:"allDataTypesCorrect"`
	AllNotChanged       bool                   `json:"allNotChanged"`
	Details             map[string]CheckResult `json:"details"`
}

// Success reports whether every property exists with the expected type.
func (r CheckReport) Success() bool {
	return r.AllPropertiesFound && r.AllDataTypesCorrect
}

// PropertyValue is one value to write with SetPayload.
type PropertyValue struct {
	Property string `json:"property" validate:"required"`
	Value    any    `json:"value"`
}

// Payload is the setCustomData body: entity id to property values. A nil
// value clears the property.
type Payload map[string]map[string]*string
