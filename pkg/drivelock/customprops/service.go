package customprops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/log"
	"github.com/dukex/operion-drivelock/pkg/otelhelper"
)

const (
	getSchemasEndpoint = client.APIPrefix + "/entity/customSchema/getCustomSchemas"
	setSchemasEndpoint = client.APIPrefix + "/entity/customSchema/setCustomSchemas"
	setDataEndpoint    = client.APIPrefix + "/entity/customSchema/setCustomData/"
)

var (
	// ErrCheckFailed is returned when desired properties are missing or
	// have a different data type after reconciliation.
	ErrCheckFailed = errors.New("custom properties check failed")

	// ErrInvalidSchemas is returned when getCustomSchemas has no customProps object.
	ErrInvalidSchemas = errors.New("invalid custom schemas response")
)

// CheckError carries the report of a failed check.
type CheckError struct {
	Op      string
	Message string
	Report  CheckReport
}

func (e *CheckError) Error() string {
	details, _ := json.Marshal(e.Report)

	return fmt.Sprintf("%s: %s. Details: %s", e.Op, e.Message, details)
}

func (e *CheckError) Unwrap() error {
	return ErrCheckFailed
}

type schemas struct {
	CustomProps CustomProps `json:"customProps"`
}

// Service reads and writes custom schemas through the DriveLock API.
type Service struct {
	client *client.Client
	logger *slog.Logger
}

func NewService(c *client.Client) *Service {
	return &Service{
		client: c,
		logger: log.WithModule("drivelock_customprops"),
	}
}

// Schemas returns every custom extension group of the tenant.
func (s *Service) Schemas(ctx context.Context) (CustomProps, error) {
	resp, err := client.Do[schemas](ctx, s.client, http.MethodGet, getSchemasEndpoint, nil, nil)
	if err != nil {
		if errors.Is(err, client.ErrMalformedResponse) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchemas, err)
		}

		return nil, fmt.Errorf("failed to get custom schemas: %w", err)
	}

	if resp.Data.CustomProps == nil {
		return nil, fmt.Errorf("%w: customProps object is missing", ErrInvalidSchemas)
	}

	return resp.Data.CustomProps, nil
}

// Extensions lists the property names of a schema's extension group.
func (s *Service) Extensions(ctx context.Context, schema string) ([]string, error) {
	annotate(ctx, schema)

	props, err := s.Schemas(ctx)
	if err != nil {
		return nil, err
	}

	group := props[ExtensionName(schema)]

	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Check compares desired with the schema's extension group. When
// createOrUpdate is set, or texts differ, and every data type matches, the
// group is written back and checked again. A report that is not a success
// is returned together with a *CheckError.
func (s *Service) Check(ctx context.Context, schema string, desired []PropertyDefinition, createOrUpdate bool) (*CheckReport, error) {
	annotate(ctx, schema)

	extension := ExtensionName(schema)

	props, err := s.Schemas(ctx)
	if err != nil {
		return nil, err
	}

	report := Report(Check(props[extension], desired))

	for name, result := range report.Details {
		if result.Name {
			continue
		}

		if owners := FindExtensionsWithProperty(props, name); len(owners) > 0 {
			s.logger.WarnContext(ctx, "custom property exists in other extensions",
				"property", name,
				"extension", extension,
				"owners", owners,
			)
		}
	}

	if report.AllDataTypesCorrect && (createOrUpdate || !report.AllNotChanged) {
		adjusted := Adjust(report.Details, extension, props, desired)

		s.logger.InfoContext(ctx, "updating custom schema",
			"extension", extension,
			"properties", len(desired),
		)

		if _, err := client.Do[any](ctx, s.client, http.MethodPost, setSchemasEndpoint, schemas{CustomProps: adjusted}, nil); err != nil {
			return nil, fmt.Errorf("failed to update custom schema %s: %w", extension, err)
		}

		props, err = s.Schemas(ctx)
		if err != nil {
			return nil, err
		}

		report = Report(Check(props[extension], desired))
	}

	if report.Success() {
		return &report, nil
	}

	checkErr := &CheckError{Op: "customprops.Check", Report: report}

	switch {
	case !createOrUpdate:
		checkErr.Message = "custom properties are missing or differ; enable create or update to fix them"
	case !report.AllPropertiesFound:
		checkErr.Message = "some custom properties are still missing after the update"
	default:
		checkErr.Message = "some custom properties have incorrect data types"
	}

	return &report, checkErr
}

// Update writes property values of one entity and returns the payload sent.
func (s *Service) Update(ctx context.Context, schema, id string, values []PropertyValue) (Payload, error) {
	annotate(ctx, schema)

	payload := SetPayload(id, values)

	if _, err := client.Do[any](ctx, s.client, http.MethodPost, setDataEndpoint+ExtensionName(schema), payload, nil); err != nil {
		return nil, fmt.Errorf("failed to set custom data on %s %s: %w", schema, id, err)
	}

	return payload, nil
}

// Owners returns the extension groups that already define property.
func (s *Service) Owners(ctx context.Context, property string) ([]string, error) {
	props, err := s.Schemas(ctx)
	if err != nil {
		return nil, err
	}

	return FindExtensionsWithProperty(props, property), nil
}

func annotate(ctx context.Context, schema string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(otelhelper.CustomSchemaKey, schema))
}
