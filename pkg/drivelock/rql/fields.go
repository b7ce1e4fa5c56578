package rql

import "sort"

// FieldDefinition describes a filterable property of an entity.
type FieldDefinition struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Type        FieldType `json:"type"`
}

func strField(name, display string) FieldDefinition {
	return FieldDefinition{name, display, FieldTypeString}
}
func numField(name, display string) FieldDefinition {
	return FieldDefinition{name, display, FieldTypeNumber}
}
func boolField(name, display string) FieldDefinition {
	return FieldDefinition{name, display, FieldTypeBoolean}
}
func dateField(name, display string) FieldDefinition {
	return FieldDefinition{name, display, FieldTypeDate}
}

// EntityFields lists the well-known filterable fields per entity name.
// Extension properties are not included; they live in the custom schema.
var EntityFields = map[string][]FieldDefinition{
	"Computers": {
		strField("name", "Name"),
		strField("id", "ID"),
		dateField("createdAt", "Created At"),
		dateField("lastSeen", "Last Seen"),
		strField("agentVersion", "Agent Version"),
		strField("operatingSystem", "Operating System"),
		strField("domain", "Domain"),
		boolField("active", "Active"),
	},
	"Devices": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("deviceClass", "Device Class"),
		strField("vendorId", "Vendor ID"),
		strField("productId", "Product ID"),
		strField("serialNumber", "Serial Number"),
	},
	"Drives": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("driveType", "Drive Type"),
		strField("volumeLabel", "Volume Label"),
		strField("serialNumber", "Serial Number"),
		strField("fileSystem", "File System"),
	},
	"Events": {
		strField("id", "ID"),
		strField("eventType", "Event Type"),
		dateField("createdAt", "Created At"),
		strField("computerId", "Computer ID"),
		strField("userId", "User ID"),
		numField("severity", "Severity"),
		strField("description", "Description"),
	},
	"Groups": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("groupType", "Group Type"),
	},
	"Users": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("domain", "Domain"),
		strField("email", "Email"),
		boolField("active", "Active"),
	},
	"Softwares": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("version", "Version"),
		strField("vendor", "Vendor"),
		dateField("installDate", "Install Date"),
	},
	"WhiteLists": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("listType", "List Type"),
	},
	"AcBinaries": {
		strField("displayName", "Display Name"),
		strField("fileHash", "File Hash"),
		strField("product", "Product"),
		strField("versionInfo", "Version Info"),
		numField("fileSize", "File Size"),
		dateField("createdDate", "Created Date"),
	},
	"DefinedGroupMemberships": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("groupId", "Group ID"),
		strField("memberId", "Member ID"),
	},
	"DriveLockConfigs": {
		strField("id", "ID"),
		strField("name", "Name"),
		strField("description", "Description"),
		dateField("createdAt", "Created At"),
		strField("configType", "Config Type"),
		strField("version", "Version"),
		boolField("active", "Active"),
	},
}

// FieldsFor returns the known fields of entity in declaration order, or nil.
func FieldsFor(entity string) []FieldDefinition {
	fields, ok := EntityFields[entity]
	if !ok {
		return nil
	}

	out := make([]FieldDefinition, len(fields))
	copy(out, fields)

	return out
}

// Entities returns the names of the entities with known fields, sorted.
func Entities() []string {
	names := make([]string, 0, len(EntityFields))
	for name := range EntityFields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
