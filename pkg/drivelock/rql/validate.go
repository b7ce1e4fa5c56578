package rql

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFilter is wrapped by every error returned from Validate.
var ErrInvalidFilter = errors.New("invalid filter")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func filterValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("rql_operator", func(fl validator.FieldLevel) bool {
			_, ok := operators[strings.ToLower(fl.Field().String())]

			return ok
		})
		_ = validate.RegisterValidation("rql_field", func(fl validator.FieldLevel) bool {
			field := fl.Field().String()

			return !strings.ContainsAny(field, "(), ") && !hasControl(field)
		})
		_ = validate.RegisterValidation("rql_text", func(fl validator.FieldLevel) bool {
			return !hasControl(fl.Field().String())
		})
	})

	return validate
}

var operators = map[string]Operator{
	"eq":         OpEq,
	"ne":         OpNe,
	"contains":   OpContains,
	"startswith": OpStartsWith,
	"endswith":   OpEndsWith,
	"gt":         OpGt,
	"lt":         OpLt,
	"ge":         OpGe,
	"le":         OpLe,
	"in":         OpIn,
}

type conditionRules struct {
	Field     string `validate:"required,rql_field"`
	Operator  string `validate:"required,rql_operator"`
	Value     string `validate:"rql_text"`
	ValueList string `validate:"rql_text"`
}

type groupRules struct {
	Combinator string `validate:"omitempty,oneof=and or"`
}

// Validate reports rows that Build would serialize into a meaningless
// predicate: empty or malformed fields, unknown operators, control characters,
// an "in" row without values, or an unknown combinator.
//
// Build itself never fails; callers validate before issuing a request.
func Validate(top Combinator, groups FilterGroupsParam) error {
	v := filterValidator()

	if top != "" && top != And && top != Or {
		return fmt.Errorf("%w: unknown top-level combinator %q", ErrInvalidFilter, top)
	}

	for gi, group := range groups.Groups {
		if err := v.Struct(groupRules{Combinator: string(group.Combinator)}); err != nil {
			return fmt.Errorf("%w: group %d: unknown combinator %q", ErrInvalidFilter, gi, group.Combinator)
		}

		if len(group.Conditions) > 1 && group.Combinator == "" {
			return fmt.Errorf("%w: group %d: combinator is required for %d conditions",
				ErrInvalidFilter, gi, len(group.Conditions))
		}

		for ci, row := range group.Conditions {
			err := v.Struct(conditionRules{
				Field:     row.Field,
				Operator:  string(row.Operator),
				Value:     row.Value,
				ValueList: row.ValueList,
			})
			if err != nil {
				return fmt.Errorf("%w: group %d condition %d: %s", ErrInvalidFilter, gi, ci, describe(err))
			}

			if strings.EqualFold(string(row.Operator), string(OpIn)) && strings.Trim(row.ValueList, ", ") == "" {
				return fmt.Errorf("%w: group %d condition %d: value list is required for operator in",
					ErrInvalidFilter, gi, ci)
			}
		}
	}

	return nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "rql_operator":
			msgs = append(msgs, fmt.Sprintf("unknown operator %q", fe.Value()))
		case "rql_field":
			msgs = append(msgs, fmt.Sprintf("field %q contains reserved characters", fe.Value()))
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" contains control characters")
		}
	}

	return strings.Join(msgs, ", ")
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
