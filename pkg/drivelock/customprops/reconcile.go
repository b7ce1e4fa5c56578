package customprops

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FindExtensionsWithProperty returns the sorted names of extension groups
// that define property.
func FindExtensionsWithProperty(props CustomProps, property string) []string {
	found := []string{}

	for key, group := range props {
		if !strings.HasSuffix(key, "Extensions") {
			continue
		}

		if _, ok := group[property]; ok {
			found = append(found, key)
		}
	}

	sort.Strings(found)

	return found
}

// Check compares desired properties with an extension group.
func Check(group ExtensionGroup, desired []PropertyDefinition) map[string]CheckResult {
	result := make(map[string]CheckResult, len(desired))

	for _, def := range desired {
		prop, ok := group[def.Name]
		if !ok {
			result[def.Name] = CheckResult{Name: false, DataType: true}

			continue
		}

		result[def.Name] = CheckResult{
			Name:     true,
			DataType: prop.PropType == def.DataType,
			Changed: prop.Description != def.Description ||
				prop.DisplayText.Deu != def.GermanDisplayName ||
				prop.DisplayText.Enu != def.EnglishDisplayName,
		}
	}

	return result
}

// Adjust applies desired properties to the extension group in place. New
// properties are appended to the <extension>Base property group. Existing
// ones keep their type; only texts and, when given, the order change.
func Adjust(results map[string]CheckResult, extension string, props CustomProps, desired []PropertyDefinition) CustomProps {
	if props == nil {
		props = CustomProps{}
	}

	group := props[extension]
	if group == nil {
		group = ExtensionGroup{}
		props[extension] = group
	}

	for _, def := range desired {
		text := DisplayText{Enu: def.EnglishDisplayName, Deu: def.GermanDisplayName}

		if !results[def.Name].Name {
			group[def.Name] = ExtensionProperty{
				PropType:      def.DataType,
				Description:   def.Description,
				DisplayText:   text,
				PropertyGroup: extension + "Base",
				OrderID:       len(group) + 1,
			}

			continue
		}

		prop := group[def.Name]
		prop.Description = def.Description
		prop.DisplayText = text

		if def.OrderID != 0 {
			prop.OrderID = def.OrderID
		}

		group[def.Name] = prop
	}

	return props
}

// Report summarizes per-property results.
func Report(results map[string]CheckResult) CheckReport {
	report := CheckReport{
		AllPropertiesFound:  true,
		AllDataTypesCorrect: true,
		AllNotChanged:       true,
		Details:             results,
	}

	for _, r := range results {
		report.AllPropertiesFound = report.AllPropertiesFound && r.Name
		report.AllDataTypesCorrect = report.AllDataTypesCorrect && r.DataType
		report.AllNotChanged = report.AllNotChanged && !r.Changed
	}

	return report
}

// SetPayload builds the setCustomData body for one entity.
func SetPayload(id string, values []PropertyValue) Payload {
	fields := make(map[string]*string, len(values))
	for _, v := range values {
		fields[v.Property] = stringify(v.Value)
	}

	return Payload{id: fields}
}

func stringify(value any) *string {
	var s string

	switch v := value.(type) {
	case nil:
		return nil
	case string:
		s = v
	case json.Number:
		s = v.String()
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		s = fmt.Sprint(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = "[unserializable object]"
		} else {
			s = string(b)
		}
	}

	return &s
}
