// Package web provides HTTP handlers for executing DriveLock nodes and
// building filter expressions.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
	"github.com/dukex/operion-drivelock/pkg/models"
	"github.com/dukex/operion-drivelock/pkg/registry"
)

type APIHandlers struct {
	validator *validator.Validate
	registry  *registry.Registry
	logger    *slog.Logger
}

func NewAPIHandlers(
	validator *validator.Validate,
	registry *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		validator: validator,
		registry:  registry,
		logger:    logger,
	}
}

// Routes mounts every handler on app.
func (h *APIHandlers) Routes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	n := app.Group("/nodes")
	n.Get("/", h.GetNodes)
	n.Get("/:id/schema", h.GetNodeSchema)
	n.Post("/:id/execute", h.ExecuteNode)

	f := app.Group("/filters")
	f.Post("/build", h.BuildFilter)
	f.Get("/fields/:entity", h.GetFilterFields)
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	factories := h.registry.GetAvailableNodes()

	nodes := make([]NodeTypeResponse, 0, len(factories))
	for _, f := range factories {
		nodes = append(nodes, NodeTypeResponse{
			ID:          f.ID(),
			Name:        f.Name(),
			Description: f.Description(),
		})
	}

	return c.JSON(fiber.Map{"nodes": nodes})
}

func (h *APIHandlers) GetNodeSchema(c fiber.Ctx) error {
	id := c.Params("id")

	factory, ok := h.registry.GetFactory(id)
	if !ok {
		return notFound(c, "Node type not found: "+id)
	}

	return c.JSON(factory.Schema())
}

// ExecuteNode creates a node from the request config and runs it once over
// the request items.
func (h *APIHandlers) ExecuteNode(c fiber.Ctx) error {
	nodeType := c.Params("id")

	var req ExecuteNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	nodeID := req.NodeID
	if nodeID == "" {
		nodeID = nodeType
	}

	node, err := h.registry.CreateNode(c.Context(), nodeType, nodeID, req.Config)
	if err != nil {
		return handleNodeError(c, err)
	}

	items := make([]any, len(req.Items))
	for i, item := range req.Items {
		items[i] = item
	}

	execCtx := models.ExecutionContext{
		ID:          uuid.NewString(),
		NodeResults: map[string]models.NodeResult{},
		Variables:   req.Variables,
		Metadata:    map[string]any{"source": "api"},
	}

	inputs := map[string]models.NodeResult{}
	if len(items) > 0 {
		inputs[models.InputPortMain] = models.NodeResult{
			NodeID:    "api",
			Data:      map[string]any{"items": items},
			Status:    string(models.NodeStatusSuccess),
			Timestamp: time.Now(),
		}
	}

	start := time.Now()

	outputs, err := node.Execute(c.Context(), execCtx, inputs)
	if err != nil {
		return handleNodeError(c, err)
	}

	h.logger.Info("node executed",
		"node_type", nodeType,
		"execution_id", execCtx.ID,
		"items", len(req.Items),
		"duration", time.Since(start),
	)

	return c.JSON(ExecuteNodeResponse{
		ExecutionID: execCtx.ID,
		NodeID:      nodeID,
		Outputs:     outputs,
	})
}

// BuildFilter serializes a filter. Builder-mode filters are validated first.
func (h *APIHandlers) BuildFilter(c fiber.Ctx) error {
	var req BuildFilterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	filter := req.Filter
	if filter.Mode == "" {
		filter.Mode = rql.ModeBuilder
	}

	if filter.Combinator == "" {
		filter.Combinator = rql.And
	}

	if filter.Mode != rql.ModeRaw {
		if err := rql.Validate(filter.Combinator, filter.Groups); err != nil {
			return handleNodeError(c, err)
		}
	}

	builder := rql.Builder{Escape: true}
	if req.Escape != nil {
		builder.Escape = *req.Escape
	}

	query, ok := builder.Build(filter.Mode, filter.Raw, filter.Combinator, filter.Groups)

	return c.JSON(BuildFilterResponse{Query: query, Empty: !ok})
}

func (h *APIHandlers) GetFilterFields(c fiber.Ctx) error {
	entity := c.Params("entity")

	fields := rql.FieldsFor(entity)
	if fields == nil {
		return notFound(c, "No known fields for entity: "+entity)
	}

	return c.JSON(fiber.Map{"entity": entity, "fields": fields})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, ok := h.registry.HealthCheck()

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry": registryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
