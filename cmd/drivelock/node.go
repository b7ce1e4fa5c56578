package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
	"github.com/dukex/operion-drivelock/pkg/log"
	"github.com/dukex/operion-drivelock/pkg/models"
)

const nodeType = "drivelock"

// runNode executes one DriveLock node configuration over items and returns
// the success output. Failures are printed before being returned.
func runNode(ctx context.Context, command *cli.Command, config map[string]any, items []map[string]any) (map[string]any, error) {
	logger := log.WithModule("cli")

	node, err := cmd.NewRegistry(command, logger).CreateNode(ctx, nodeType, "cli", config)
	if err != nil {
		return nil, err
	}

	inputs := map[string]models.NodeResult{}
	if len(items) > 0 {
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = item
		}

		inputs[models.InputPortMain] = models.NodeResult{
			NodeID: "cli",
			Data:   map[string]any{"items": list},
			Status: string(models.NodeStatusSuccess),
		}
	}

	execCtx := models.ExecutionContext{
		ID:          uuid.NewString(),
		NodeResults: map[string]models.NodeResult{},
		Variables:   map[string]any{},
		Metadata:    map[string]any{"source": "cli"},
	}

	outputs, err := node.Execute(ctx, execCtx, inputs)
	if err != nil {
		return nil, err
	}

	if failed, ok := outputs[models.OutputPortError]; ok {
		if err := writeJSON(command.Root().Writer, failed.Data); err != nil {
			return nil, err
		}

		return nil, errors.New(failed.Error)
	}

	return outputs[models.OutputPortSuccess].Data, nil
}

// runAndPrint runs config for a single empty item and prints the first result.
func runAndPrint(ctx context.Context, command *cli.Command, config map[string]any) error {
	data, err := runNode(ctx, command, config, nil)
	if err != nil {
		return err
	}

	return writeJSON(command.Root().Writer, firstItem(data))
}

func firstItem(data map[string]any) any {
	items, _ := data["items"].([]map[string]any)
	if len(items) == 0 {
		return data
	}

	return items[0]
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// setIf stores value under key unless it is the zero value.
func setIf[T comparable](m map[string]any, key string, value T) {
	var zero T
	if value != zero {
		m[key] = value
	}
}
