package rql

import (
	"strings"
)

// Builder serializes filter groups into an RQL expression.
//
// With Escape set, values carrying grammar metacharacters are percent-encoded
// so they cannot change the structure of the expression. Plain values are
// emitted byte for byte either way.
type Builder struct {
	Escape bool
}

var defaultBuilder = Builder{Escape: true}

var valueEscaper = strings.NewReplacer(
	"%", "%25",
	"(", "%28",
	")", "%29",
	",", "%2C",
)

// Build serializes with the default escaping Builder. The boolean result is
// false when there is nothing to filter on.
func Build(mode Mode, raw string, top Combinator, groups FilterGroupsParam) (string, bool) {
	return defaultBuilder.Build(mode, raw, top, groups)
}

// Build returns the raw string in raw mode, otherwise the serialized groups.
//
// Groups serializing to the empty string are dropped. A single remaining group
// is returned unwrapped; two or more are joined with top.
func (b Builder) Build(mode Mode, raw string, top Combinator, groups FilterGroupsParam) (string, bool) {
	if mode == ModeRaw {
		if raw == "" {
			return "", false
		}

		return raw, true
	}

	parts := make([]string, 0, len(groups.Groups))

	for _, group := range groups.Groups {
		if s := b.Group(group); s != "" {
			parts = append(parts, s)
		}
	}

	switch len(parts) {
	case 0:
		return "", false
	case 1:
		return parts[0], true
	default:
		return string(top) + "(" + strings.Join(parts, ",") + ")", true
	}
}

// Group serializes one group. A single condition is never wrapped in the
// group combinator.
func (b Builder) Group(group FilterGroup) string {
	switch len(group.Conditions) {
	case 0:
		return ""
	case 1:
		return b.Condition(group.Conditions[0])
	}

	parts := make([]string, len(group.Conditions))
	for i, row := range group.Conditions {
		parts[i] = b.Condition(row)
	}

	return string(group.Combinator) + "(" + strings.Join(parts, ",") + ")"
}

// Condition serializes a single row as op(field,value), in(field,v1,...) or
// not(...) when negated.
func (b Builder) Condition(row ConditionRow) string {
	op := strings.ToLower(string(row.Operator))

	var expr string

	if op == string(OpIn) {
		entries := strings.Split(row.ValueList, ",")
		for i, entry := range entries {
			entries[i] = b.value(strings.TrimSpace(entry))
		}

		expr = "in(" + row.Field + "," + strings.Join(entries, ",") + ")"
	} else {
		expr = op + "(" + row.Field + "," + b.value(row.Value) + ")"
	}

	if row.Negate {
		return "not(" + expr + ")"
	}

	return expr
}

func (b Builder) value(v string) string {
	if !b.Escape || !strings.ContainsAny(v, "%(),") {
		return v
	}

	return valueEscaper.Replace(v)
}
