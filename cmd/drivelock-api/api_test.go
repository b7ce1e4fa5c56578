package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/registry"
)

func setupTestApp(baseURL string) *fiber.App {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes(
		client.StaticCredentials{APIKey: "secret", BaseURL: baseURL},
		client.WithRetryPolicy(client.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)

	return NewAPI(slog.Default(), reg).App()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp("http://127.0.0.1:1")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DriveLock API", string(readBody(t, resp)))
}

func TestAPI_HealthEndpoints(t *testing.T) {
	app := setupTestApp("http://127.0.0.1:1")

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)

			readBody(t, resp)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestAPI_CORS(t *testing.T) {
	app := setupTestApp("http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/nodes/", nil)
	req.Header.Set("Origin", "http://example.com")

	resp, err := app.Test(req)
	require.NoError(t, err)

	readBody(t, resp)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_ExecuteDriveLockNode(t *testing.T) {
	var gotPath, gotKey string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"c1","name":"PC-1"}}`))
	}))
	defer upstream.Close()

	app := setupTestApp(upstream.URL)

	payload, err := json.Marshal(map[string]any{
		"config": map[string]any{
			"resource":    "entity",
			"operation":   "getById",
			"entity_name": "Computers",
			"entity_id":   "{{.item.id}}",
		},
		"items": []map[string]any{{"id": "c1"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/nodes/drivelock/execute", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		NodeID  string `json:"node_id"`
		Outputs map[string]struct {
			Data map[string]any `json:"data"`
		} `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, "drivelock", out.NodeID)
	assert.Equal(t, "/api/administration/entity/Computers/c1", gotPath)
	assert.Equal(t, "secret", gotKey)

	success, ok := out.Outputs["success"]
	require.True(t, ok)
	assert.EqualValues(t, 1, success.Data["count"])

	items, ok := success.Data["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"id": "c1", "name": "PC-1"}, items[0].(map[string]any)["data"])
}
