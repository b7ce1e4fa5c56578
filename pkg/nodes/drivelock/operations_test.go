package drivelock

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dukex/operion-drivelock/pkg/models"
	"github.com/dukex/operion-drivelock/pkg/otelhelper"
	"github.com/dukex/operion-drivelock/pkg/template"
)

func TestNode_GroupMembers(t *testing.T) {
	tests := []struct {
		operation string
		method    string
		path      string
		body      any
	}{
		{
			operation: "addComputers",
			method:    http.MethodPost,
			path:      "/api/administration/group/g-1/members/add",
			body:      map[string]any{"groupId": "g-1", "computerIds": []any{"c-1", "c-2"}},
		},
		{
			operation: "removeComputers",
			method:    http.MethodPost,
			path:      "/api/administration/group/g-1/members/remove",
			body:      map[string]any{"groupId": "g-1", "computerIds": []any{"c-1", "c-2"}},
		},
		{
			operation: "setMembers",
			method:    http.MethodPut,
			path:      "/api/administration/group/g-1/members",
			body:      map[string]any{"groupId": "g-1", "computerIds": []any{"c-1", "c-2"}},
		},
		{
			operation: "getMembers",
			method:    http.MethodGet,
			path:      "/api/administration/group/g-1/members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			api := &fakeAPI{}

			node := newTestNode(t, api, map[string]any{
				"resource":     "group",
				"operation":    tt.operation,
				"group_id":     "{{.item.group}}",
				"computer_ids": "c-1, c-2",
			})

			results, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(map[string]any{"group": "g-1"}))
			require.NoError(t, err)
			require.Len(t, successItems(t, results), 1)

			req := api.last(t)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, tt.body, req.Body)
		})
	}
}

func TestNode_GroupMembersRequiresComputers(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":  "group",
		"operation": "addComputers",
		"group_id":  "g-1",
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "computer_ids", results[models.OutputPortError].Data["parameter"])
	assert.Empty(t, api.requests)
}

func TestNode_EntityGetSendsIncludeLinkedObjects(t *testing.T) {
	for _, include := range []bool{false, true} {
		api := &fakeAPI{}

		config := map[string]any{
			"resource":    "entity",
			"operation":   "getById",
			"entity_name": "Computers",
			"entity_id":   "c-1",
		}
		if include {
			config["include_linked_objects"] = true
		}

		node := newTestNode(t, api, config)

		_, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
		require.NoError(t, err)

		req := api.last(t)
		assert.Equal(t, "/api/administration/entity/Computers/c-1", req.Path)
		require.Contains(t, req.Query, "includeLinkedObjects")
		assert.Equal(t, []string{map[bool]string{false: "false", true: "true"}[include]}, req.Query["includeLinkedObjects"])
	}
}

func TestNode_FractionalLimitIsRejected(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getList",
		"entity_name": "Computers",
		"limit":       2.7,
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	errData := results[models.OutputPortError].Data
	assert.Equal(t, "config", errData["parameter"])
	assert.Contains(t, errData["error"], "whole number")
	assert.Empty(t, api.requests)
}

func TestNode_TemplatesCannotReadAPIKey(t *testing.T) {
	t.Setenv("DRIVELOCK_API_KEY", "test-key")
	t.Setenv(template.EnvPrefix+"TENANT", "acme")

	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getById",
		"entity_name": "Computers",
		"entity_id":   "{{ .env.DRIVELOCK_API_KEY }}",
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	errData := results[models.OutputPortError].Data
	assert.Equal(t, "config", errData["parameter"])
	assert.NotContains(t, errData["error"], "test-key")
	assert.Empty(t, api.requests)

	node = newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getById",
		"entity_name": "Computers",
		"entity_id":   "{{ .env.TENANT }}",
	})

	_, err = node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/administration/entity/Computers/acme", api.last(t).Path)
}

func TestNode_APIErrorHidesKeyInPath(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getById",
		"entity_name": "Computers",
		"entity_id":   "test-key",
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	errData := results[models.OutputPortError].Data
	assert.Equal(t, http.StatusNotFound, errData["status_code"])
	assert.NotContains(t, errData["error"], "test-key")
	assert.Equal(t, "/api/administration/entity/Computers/test-key", api.last(t).Path)
}

func TestNode_RecordsEntityOnItemSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"total":0}`))
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getList",
		"entity_name": "Computers",
	})
	node.tracer = provider.Tracer("test")

	_, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	var attrs []attribute.KeyValue
	for _, s := range recorder.Ended() {
		if s.Name() == "drivelock.item" {
			attrs = s.Attributes()
		}
	}

	assert.Contains(t, attrs, attribute.String(otelhelper.EntityKey, "Computers"))
}
