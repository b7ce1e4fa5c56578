// Package template renders text/template expressions in node parameters.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/operion-drivelock/pkg/models"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(max int) int {
		if max <= 0 {
			return 0
		}

		num := make([]byte, 1)
		if _, err := rand.Read(num); err != nil {
			return 0
		}

		return int(num[0]) % max
	},
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)

		return string(b), err
	},
	"join": func(sep string, v []any) string {
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}

		return strings.Join(parts, sep)
	},
}

// Data builds the template data of one item: .item, .variables (also .vars),
// .node_results, .trigger_data, .metadata, .env and .execution. .env holds
// only the variables named with EnvPrefix.
func Data(executionCtx *models.ExecutionContext, item map[string]any) map[string]any {
	nodeResults := make(map[string]any, len(executionCtx.NodeResults))
	for id, result := range executionCtx.NodeResults {
		nodeResults[id] = result.Data
	}

	return map[string]any{
		"item":         item,
		"node_results": nodeResults,
		"variables":    executionCtx.Variables,
		"vars":         executionCtx.Variables,
		"trigger_data": executionCtx.TriggerData,
		"metadata":     executionCtx.Metadata,
		"env":          getEnvVars(),
		"execution": map[string]any{
			"id":          executionCtx.ID,
			"workflow_id": executionCtx.WorkflowID,
		},
	}
}

// RenderString executes templateStr and returns the output as is. Missing
// map keys are an error.
func RenderString(templateStr string, data any) (string, error) {
	tmpl, err := template.New("param").Funcs(funcs).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// RenderTree renders every string in v that contains a template action.
// Maps and slices are copied; other values are returned unchanged.
func RenderTree(v any, data any) (any, error) {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "{{") {
			return val, nil
		}

		return RenderString(val, data)
	case map[string]any:
		out := make(map[string]any, len(val))

		for k, child := range val {
			rendered, err := RenderTree(child, data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}

			out[k] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(val))

		for i, child := range val {
			rendered, err := RenderTree(child, data)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return v, nil
	}
}

// EnvPrefix marks the environment variables exposed to templates as .env,
// keyed without the prefix. Nothing else from the environment is reachable,
// credentials included.
const EnvPrefix = "DRIVELOCK_TEMPLATE_"

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || len(name) == len(EnvPrefix) {
			continue
		}

		envMap[strings.TrimPrefix(name, EnvPrefix)] = value
	}

	return envMap
}
