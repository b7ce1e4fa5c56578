package drivelock

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/models"
)

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// fakeAPI records every request and answers with respond.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	var body any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
	f.mu.Unlock()

	if f.respond != nil {
		f.respond(w, r)

		return
	}

	_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
}

func (f *fakeAPI) last(t *testing.T) recorded {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.requests)

	return f.requests[len(f.requests)-1]
}

func newTestNode(t *testing.T, api *fakeAPI, config map[string]any) *Node {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	c := client.New(client.StaticCredentials{APIKey: "test-key", BaseURL: server.URL},
		client.WithHTTPClient(server.Client()),
		client.WithRetryPolicy(client.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)

	node, err := NewNode("dl", config, c)
	require.NoError(t, err)

	return node
}

func itemsInput(items ...map[string]any) map[string]models.NodeResult {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item
	}

	return map[string]models.NodeResult{
		models.InputPortMain: {NodeID: "prev", Data: map[string]any{"items": list}},
	}
}

func successItems(t *testing.T, results map[string]models.NodeResult) []map[string]any {
	t.Helper()

	require.Contains(t, results, models.OutputPortSuccess)

	items, ok := results[models.OutputPortSuccess].Data["items"].([]map[string]any)
	require.True(t, ok)

	return items
}

func TestNewNode_RejectsUnsupportedOperation(t *testing.T) {
	_, err := NewNode("dl", map[string]any{"resource": "computer", "operation": "reboot"}, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), "computer/reboot")

	_, err = NewNode("dl", map[string]any{"resource": "entity", "operation": "getList", "continue_on_fail": "sometimes"}, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNode_EntityListWithFilter(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"c1"}],"total":1,"errorId":null}`))
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getList",
		"entity_name": "Computers",
		"additional_fields": map[string]any{
			"select": "id,name",
			"take":   "10",
			"query":  "eq(ignored,1)",
		},
		"filter": map[string]any{
			"mode": "builder",
			"groups": map[string]any{"groups": []any{
				map[string]any{
					"combinator": "and",
					"conditions": []any{
						map[string]any{"field": "name", "operator": "startsWith", "value": "{{.item.prefix}}"},
					},
				},
			}},
		},
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(map[string]any{"prefix": "PC"}))
	require.NoError(t, err)

	items := successItems(t, results)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["success"])
	assert.Equal(t, float64(1), items[0]["total"])

	req := api.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/administration/entity/Computers", req.Path)
	assert.Equal(t, "startswith(name,PC)", req.Query.Get("query"))
	assert.Equal(t, "id,name", req.Query.Get("select"))
	assert.Equal(t, "10", req.Query.Get("take"))
	assert.False(t, req.Query.Has("skip"))
}

func TestNode_InvalidFilterFailsBeforeRequest(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":    "entity",
		"operation":   "getCount",
		"entity_name": "Computers",
		"filter": map[string]any{
			"groups": map[string]any{"groups": []any{
				map[string]any{"conditions": []any{map[string]any{"field": "", "operator": "eq", "value": "x"}}},
			}},
		},
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	require.Contains(t, results, models.OutputPortError)
	assert.Equal(t, "filter", results[models.OutputPortError].Data["parameter"])
	assert.Empty(t, api.requests)
}

func TestNode_ComputerActionsPerItem(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":     "computer",
		"operation":    "executeActions",
		"computer_ids": "{{.item.id}}",
		"actions":      `[{"action":"{{.variables.action}}"}]`,
		"notify_agent": "true",
	})

	execCtx := models.ExecutionContext{Variables: map[string]any{"action": "updateAgent"}}

	results, err := node.Execute(context.Background(), execCtx, itemsInput(
		map[string]any{"id": "c-1"},
		map[string]any{"id": "c-2"},
	))
	require.NoError(t, err)
	assert.Len(t, successItems(t, results), 2)
	assert.Equal(t, 2, results[models.OutputPortSuccess].Data["count"])

	require.Len(t, api.requests, 2)
	assert.Equal(t, "/api/administration/computer/actions", api.requests[1].Path)
	assert.Equal(t, map[string]any{
		"computerIds": []any{"c-2"},
		"actions":     []any{map[string]any{"action": "updateAgent"}},
		"notifyAgent": true,
	}, api.requests[1].Body)
}

func TestNode_StopsAtFirstFailure(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":     "computer",
		"operation":    "markForRejoin",
		"computer_ids": "{{.item.id}}",
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(
		map[string]any{"id": "c-1"},
		map[string]any{"id": "bad id"},
		map[string]any{"id": "c-3"},
	))
	require.NoError(t, err)

	require.NotContains(t, results, models.OutputPortSuccess)

	errData := results[models.OutputPortError].Data
	assert.Equal(t, 1, errData["item_index"])
	assert.Equal(t, "computer_ids", errData["parameter"])
	assert.Equal(t, false, errData["success"])
	assert.Len(t, api.requests, 1)
}

func TestNode_ContinueOnFail(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":         "computer",
		"operation":        "stopOnlineUnlock",
		"computer_id":      "{{.item.id}}",
		"continue_on_fail": true,
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(
		map[string]any{"id": "c-1"},
		map[string]any{"id": ""},
		map[string]any{"id": "c-3"},
	))
	require.NoError(t, err)

	items := successItems(t, results)
	require.Len(t, items, 3)
	assert.Equal(t, true, items[0]["success"])
	assert.Contains(t, items[1]["error"], "computer_id")
	assert.Equal(t, true, items[2]["success"])

	assert.Contains(t, results[models.OutputPortSuccess].Data["error"], "item 1")
	assert.Len(t, api.requests, 2)
	assert.Equal(t, map[string]any{"computerId": "c-3"}, api.last(t).Body)
}

func TestNode_APIErrorReportsStatus(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"policy not found"}`))
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":  "policy",
		"operation": "get",
		"policy_id": "p-1",
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	errData := results[models.OutputPortError].Data
	assert.Equal(t, http.StatusNotFound, errData["status_code"])
	assert.Contains(t, errData["error"], "policy not found")
	assert.Equal(t, "/api/administration/policy/p-1", api.last(t).Path)
}

func TestNode_RulesConfigVersion(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":       "deviceRules",
		"operation":      "updateCollections",
		"config_id":      "cfg-1",
		"config_version": "{{.item.version}}",
		"rules":          `[{"id":"col"}]`,
	})

	_, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(
		map[string]any{"version": 3},
		map[string]any{"version": 0},
	))
	require.NoError(t, err)

	require.Len(t, api.requests, 2)
	assert.Equal(t, http.MethodPatch, api.requests[0].Method)
	assert.Equal(t, "/api/administration/deviceControl/collections", api.requests[0].Path)
	assert.Equal(t, map[string]any{
		"configId":      "cfg-1",
		"configVersion": float64(3),
		"collections":   []any{map[string]any{"id": "col"}},
	}, api.requests[0].Body)
	assert.NotContains(t, api.requests[1].Body, "configVersion")
}

func TestNode_GetRulesSendsVersionQuery(t *testing.T) {
	api := &fakeAPI{}

	node := newTestNode(t, api, map[string]any{
		"resource":       "applicationRules",
		"operation":      "getBehaviorRules",
		"config_id":      "cfg-1",
		"config_version": 2,
	})

	_, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, "/api/administration/applicationControl/behaviorRules/cfg-1", req.Path)
	assert.Equal(t, "2", req.Query.Get("configVersion"))
}

func TestNode_RemoveGroupMembershipsSendsArray(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":       "group",
		"operation":      "removeGroupMemberships",
		"membership_ids": []any{"m-1", "m-2"},
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"success": true}, successItems(t, results)[0])
	assert.Equal(t, http.MethodDelete, api.last(t).Method)
	assert.Equal(t, []any{"m-1", "m-2"}, api.last(t).Body)
}

func TestNode_ExportReturnsText(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id;name\nc1;PC-1\n"))
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":       "entity",
		"operation":      "export",
		"entity_name":    "Computers",
		"export_format":  "csv",
		"export_options": map[string]any{"separator": ";", "readability": 1},
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "id;name\nc1;PC-1\n", successItems(t, results)[0]["data"])

	req := api.last(t)
	assert.Equal(t, "/api/administration/entity/Computers/export", req.Path)
	assert.Equal(t, "csv", req.Query.Get("exportFormat"))
	assert.Equal(t, ";", req.Query.Get("separator"))
	assert.Equal(t, "1", req.Query.Get("readability"))
}

func TestNode_BinariesDefaultLimit(t *testing.T) {
	api := &fakeAPI{respond: func(w http.ResponseWriter, r *http.Request) {
		take, _ := strconv.Atoi(r.URL.Query().Get("take"))

		data := make([]map[string]any, take)
		for i := range data {
			data[i] = map[string]any{"id": i}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "total": 120})
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":             "binaries",
		"operation":            "getAll",
		"properties":           []any{"fileName", "hash"},
		"extension_properties": []any{"VirusTotalScore"},
	})

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	require.NoError(t, err)

	item := successItems(t, results)[0]
	assert.Equal(t, 50, item["processedTotal"])
	assert.Equal(t, 120, item["total"])

	require.Len(t, api.requests, 1)

	req := api.last(t)
	assert.Equal(t, "/api/administration/entity/AcBinaries", req.Path)
	assert.Equal(t, "id,fileName,hash,extensions.VirusTotalScore,", req.Query.Get("select"))
	assert.Equal(t, "-extensions.VirusTotalLastFetch", req.Query.Get("sortBy"))
	assert.Equal(t, "50", req.Query.Get("take"))
	assert.Equal(t, "true", req.Query.Get("getTotalCount"))
}

func TestNode_IdempotencyKey(t *testing.T) {
	var key string

	api := &fakeAPI{respond: func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{}`))
	}}

	node := newTestNode(t, api, map[string]any{
		"resource":        "policy",
		"operation":       "create",
		"policy_data":     map[string]any{"name": "{{.item.name}}"},
		"idempotency_key": true,
	})

	_, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(map[string]any{"name": "Baseline"}))
	require.NoError(t, err)

	assert.NotEmpty(t, key)
	assert.Equal(t, map[string]any{"name": "Baseline"}, api.last(t).Body)
}

func TestNode_ChangeOutput(t *testing.T) {
	node, err := NewNode("dl", map[string]any{"resource": "tool", "operation": "changeOutput"}, nil)
	require.NoError(t, err)

	results, err := node.Execute(context.Background(), models.ExecutionContext{}, itemsInput(
		map[string]any{"data": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}},
		map[string]any{"data": "not a list"},
		map[string]any{"data": []any{"x"}},
	))
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{"id": 1}, {"id": 2}, {"value": "x"}}, successItems(t, results))
}

func TestInputItems(t *testing.T) {
	assert.Equal(t, []map[string]any{{}}, inputItems(nil))

	single := map[string]models.NodeResult{models.InputPortMain: {Data: map[string]any{"id": "a"}}}
	assert.Equal(t, []map[string]any{{"id": "a"}}, inputItems(single))

	list := map[string]models.NodeResult{models.InputPortMain: {Data: map[string]any{"items": []any{map[string]any{"id": "b"}, 3}}}}
	assert.Equal(t, []map[string]any{{"id": "b"}, {"value": 3}}, inputItems(list))
}
