// Package drivelock provides the DriveLock node: one resource/operation pair
// of the DriveLock administration API executed for every input item.
package drivelock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/log"
	"github.com/dukex/operion-drivelock/pkg/models"
	"github.com/dukex/operion-drivelock/pkg/otelhelper"
	"github.com/dukex/operion-drivelock/pkg/template"
)

const nodeType = "drivelock"

// Node executes one DriveLock operation per item.
type Node struct {
	id             string
	config         map[string]any
	key            OperationKey
	continueOnFail bool
	client         *client.Client
	logger         *slog.Logger
	tracer         trace.Tracer
}

// NewNode checks the static part of config. resource, operation and
// continue_on_fail must be literals; every other parameter may be a template
// rendered per item.
func NewNode(id string, config map[string]any, c *client.Client) (*Node, error) {
	resource, _ := config["resource"].(string)
	operation, _ := config["operation"].(string)

	key := OperationKey{Resource: Resource(resource), Operation: Operation(operation)}
	if !Supported(key) {
		return nil, unsupported(key)
	}

	var continueOnFail Flag
	if v, ok := config["continue_on_fail"]; ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: continue_on_fail: %v", ErrInvalidParameter, err)
		}

		if err := continueOnFail.UnmarshalJSON(b); err != nil {
			return nil, fmt.Errorf("%w: continue_on_fail: %v", ErrInvalidParameter, err)
		}
	}

	return &Node{
		id:             id,
		config:         config,
		key:            key,
		continueOnFail: bool(continueOnFail),
		client:         c,
		logger:         log.WithModule("drivelock_node").With("node_id", id, "operation", key.String()),
		tracer:         otel.Tracer("github.com/dukex/operion-drivelock/pkg/nodes/drivelock"),
	}, nil
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) Type() string {
	return nodeType
}

// Execute runs the operation for every item of the main input in order.
func (n *Node) Execute(ctx context.Context, execCtx models.ExecutionContext, inputs map[string]models.NodeResult) (map[string]models.NodeResult, error) {
	items := inputItems(inputs)

	ctx, span := otelhelper.StartSpan(ctx, n.tracer, "drivelock.node.execute",
		attribute.String(otelhelper.NodeIDKey, n.id),
		attribute.String(otelhelper.ResourceKey, string(n.key.Resource)),
		attribute.String(otelhelper.OperationKey, string(n.key.Operation)),
	)
	defer span.End()

	if n.key == (OperationKey{ResourceTool, OpChangeOutput}) {
		return n.successResult(flattenOutput(items), nil), nil
	}

	out := make([]map[string]any, 0, len(items))

	var errs *multierror.Error

	for i, item := range items {
		result, err := n.executeItem(ctx, &execCtx, i, item)
		if err == nil {
			out = append(out, result)

			continue
		}

		otelhelper.SetError(span, err, attribute.Int(otelhelper.ItemIndexKey, i))

		if !n.continueOnFail {
			n.logger.ErrorContext(ctx, "DriveLock operation failed", "item", i, "error", err)

			return n.errorResult(i, err), nil
		}

		n.logger.WarnContext(ctx, "DriveLock operation failed, continuing", "item", i, "error", err)

		out = append(out, map[string]any{"error": err.Error()})
		errs = multierror.Append(errs, fmt.Errorf("item %d: %w", i, err))
	}

	return n.successResult(out, errs.ErrorOrNil()), nil
}

func (n *Node) executeItem(ctx context.Context, execCtx *models.ExecutionContext, index int, item map[string]any) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, n.tracer, "drivelock.item",
		attribute.Int(otelhelper.ItemIndexKey, index),
	)
	defer span.End()

	rendered, err := template.RenderTree(n.config, template.Data(execCtx, item))
	if err != nil {
		return nil, &ParameterError{Item: index, Parameter: "config", Err: err}
	}

	raw, _ := rendered.(map[string]any)

	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, &ParameterError{Item: index, Parameter: "config", Err: err}
	}

	h, ok := handlers[cfg.Key()]
	if !ok {
		return nil, unsupported(cfg.Key())
	}

	var opts []client.RequestOption
	if cfg.IdempotencyKey {
		opts = append(opts, client.WithIdempotencyKey())
	}

	start := time.Now()

	result, err := h(ctx, n.client, request{Item: index, Config: cfg, Options: opts})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	n.logger.DebugContext(ctx, "DriveLock operation completed", "item", index, "duration", time.Since(start))

	return result, nil
}

// inputItems returns the items of the main input: its data.items array, the
// whole data as a single item, or one empty item.
func inputItems(inputs map[string]models.NodeResult) []map[string]any {
	main, ok := inputs[models.InputPortMain]
	if !ok || len(main.Data) == 0 {
		return []map[string]any{{}}
	}

	list, ok := main.Data["items"].([]any)
	if !ok {
		return []map[string]any{main.Data}
	}

	items := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		} else {
			items = append(items, map[string]any{"value": v})
		}
	}

	return items
}

func (n *Node) successResult(items []map[string]any, err error) map[string]models.NodeResult {
	data := map[string]any{
		"items": items,
		"count": len(items),
	}

	if err != nil {
		data["error"] = err.Error()
	}

	return map[string]models.NodeResult{
		models.OutputPortSuccess: {
			NodeID:    n.id,
			Data:      data,
			Status:    string(models.NodeStatusSuccess),
			Timestamp: time.Now(),
		},
	}
}

func (n *Node) errorResult(index int, err error) map[string]models.NodeResult {
	data := map[string]any{
		"error":      err.Error(),
		"success":    false,
		"item_index": index,
	}

	var paramErr *ParameterError
	if errors.As(err, &paramErr) {
		data["parameter"] = paramErr.Parameter
	}

	if status := client.StatusCode(err); status != 0 {
		data["status_code"] = status
	}

	return map[string]models.NodeResult{
		models.OutputPortError: {
			NodeID:    n.id,
			Data:      data,
			Status:    string(models.NodeStatusError),
			Timestamp: time.Now(),
			Error:     err.Error(),
		},
	}
}

func (n *Node) InputPorts() []models.InputPort {
	return []models.InputPort{
		models.NewInputPort(n.id, models.InputPortMain, "Items to process; data.items or the whole data as one item"),
	}
}

func (n *Node) OutputPorts() []models.OutputPort {
	return []models.OutputPort{
		models.NewOutputPort(n.id, models.OutputPortSuccess, "Normalized DriveLock responses, one per item", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{"type": "array"},
				"count": map[string]any{"type": "number"},
				"error": map[string]any{"type": "string"},
			},
		}),
		models.NewOutputPort(n.id, models.OutputPortError, "First failure when continue_on_fail is off", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"error":       map[string]any{"type": "string"},
				"success":     map[string]any{"type": "boolean"},
				"item_index":  map[string]any{"type": "number"},
				"parameter":   map[string]any{"type": "string"},
				"status_code": map[string]any{"type": "number"},
			},
		}),
	}
}

func (n *Node) InputRequirements() models.InputRequirements {
	return models.InputRequirements{
		RequiredPorts: []string{models.InputPortMain},
		OptionalPorts: []string{},
		WaitMode:      models.WaitModeAll,
	}
}
