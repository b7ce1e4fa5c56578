package drivelock

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/drivelock/customprops"
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
	"github.com/dukex/operion-drivelock/pkg/otelhelper"
)

const (
	OpGetList                Operation = "getList"
	OpGetCount               Operation = "getCount"
	OpGetByID                Operation = "getById"
	OpExport                 Operation = "export"
	OpGetAll                 Operation = "getAll"
	OpDelete                 Operation = "delete"
	OpExecuteActions         Operation = "executeActions"
	OpOnlineUnlock           Operation = "onlineUnlock"
	OpStopOnlineUnlock       Operation = "stopOnlineUnlock"
	OpMarkForRejoin          Operation = "markForRejoin"
	OpAddComputersToGroup    Operation = "addComputersToGroup"
	OpRemoveGroupMemberships Operation = "removeGroupMemberships"
	OpAddComputers           Operation = "addComputers"
	OpRemoveComputers        Operation = "removeComputers"
	OpGetMembers             Operation = "getMembers"
	OpSetMembers             Operation = "setMembers"

	OpGetRules            Operation = "getRules"
	OpCreateRules         Operation = "createRules"
	OpUpdateRules         Operation = "updateRules"
	OpDeleteRules         Operation = "deleteRules"
	OpGetBehaviorRules    Operation = "getBehaviorRules"
	OpCreateBehaviorRules Operation = "createBehaviorRules"
	OpUpdateBehaviorRules Operation = "updateBehaviorRules"
	OpDeleteBehaviorRules Operation = "deleteBehaviorRules"
	OpGetCollections      Operation = "getCollections"
	OpUpdateCollections   Operation = "updateCollections"

	OpGet            Operation = "get"
	OpCreate         Operation = "create"
	OpUpdate         Operation = "update"
	OpGetAssignments Operation = "getAssignments"
	OpAssignToGroups Operation = "assignToGroups"

	OpCheck          Operation = "check"
	OpListExtensions Operation = "listExtensions"

	OpChangeOutput Operation = "changeOutput"
)

const (
	binariesEndpoint = client.APIPrefix + "/entity/AcBinaries"

	// defaultLimit applies when return_all is off and no limit is set.
	defaultLimit = 50
)

// request is one item's call to a handler.
type request struct {
	Item    int
	Config  Config
	Options []client.RequestOption
}

type handler func(ctx context.Context, c *client.Client, req request) (map[string]any, error)

// handlers maps every supported resource/operation pair. tool/changeOutput
// works on the whole batch and is handled by the node itself.
var handlers = map[OperationKey]handler{
	{ResourceEntity, OpGetList}:  entityList,
	{ResourceEntity, OpGetCount}: entityCount,
	{ResourceEntity, OpGetByID}:  entityGet,
	{ResourceEntity, OpExport}:   entityExport,

	{ResourceBinaries, OpGetAll}: binariesList,

	{ResourceComputer, OpDelete}:           computerDelete,
	{ResourceComputer, OpExecuteActions}:   computerActions,
	{ResourceComputer, OpOnlineUnlock}:     computerUnlock,
	{ResourceComputer, OpStopOnlineUnlock}: computerStopUnlock,
	{ResourceComputer, OpMarkForRejoin}:    computerRejoin,

	{ResourceGroup, OpAddComputersToGroup}:    groupAdd,
	{ResourceGroup, OpRemoveGroupMemberships}: groupRemove,
	{ResourceGroup, OpAddComputers}:           groupMembers(http.MethodPost, "/add"),
	{ResourceGroup, OpRemoveComputers}:        groupMembers(http.MethodPost, "/remove"),
	{ResourceGroup, OpSetMembers}:             groupMembers(http.MethodPut, ""),
	{ResourceGroup, OpGetMembers}:             groupGetMembers,

	{ResourceApplicationRules, OpGetRules}:            getRules("/applicationControl/rules"),
	{ResourceApplicationRules, OpCreateRules}:         writeRules(http.MethodPost, "/applicationControl/rules", "rules"),
	{ResourceApplicationRules, OpUpdateRules}:         writeRules(http.MethodPatch, "/applicationControl/rules", "rules"),
	{ResourceApplicationRules, OpDeleteRules}:         deleteRules("/applicationControl/rules"),
	{ResourceApplicationRules, OpGetBehaviorRules}:    getRules("/applicationControl/behaviorRules"),
	{ResourceApplicationRules, OpCreateBehaviorRules}: writeRules(http.MethodPost, "/applicationControl/behaviorRules", "rules"),
	{ResourceApplicationRules, OpUpdateBehaviorRules}: writeRules(http.MethodPatch, "/applicationControl/behaviorRules", "rules"),
	{ResourceApplicationRules, OpDeleteBehaviorRules}: deleteRules("/applicationControl/behaviorRules"),

	{ResourceDeviceRules, OpGetRules}:          getRules("/deviceControl/rules"),
	{ResourceDeviceRules, OpGetCollections}:    getRules("/deviceControl/collections"),
	{ResourceDeviceRules, OpCreateRules}:       writeRules(http.MethodPost, "/deviceControl/rules", "rules"),
	{ResourceDeviceRules, OpUpdateRules}:       writeRules(http.MethodPatch, "/deviceControl/rules", "rules"),
	{ResourceDeviceRules, OpUpdateCollections}: writeRules(http.MethodPatch, "/deviceControl/collections", "collections"),
	{ResourceDeviceRules, OpDeleteRules}:       deleteRules("/deviceControl/rules"),

	{ResourceDriveRules, OpGetRules}:          getRules("/driveControl/rules"),
	{ResourceDriveRules, OpGetCollections}:    getRules("/driveControl/collections"),
	{ResourceDriveRules, OpCreateRules}:       writeRules(http.MethodPost, "/driveControl/rules", "rules"),
	{ResourceDriveRules, OpUpdateRules}:       writeRules(http.MethodPatch, "/driveControl/rules", "rules"),
	{ResourceDriveRules, OpUpdateCollections}: writeRules(http.MethodPatch, "/driveControl/collections", "collections"),
	{ResourceDriveRules, OpDeleteRules}:       deleteRules("/driveControl/rules"),

	{ResourcePolicy, OpGet}:            policyGet(""),
	{ResourcePolicy, OpCreate}:         policyCreate,
	{ResourcePolicy, OpUpdate}:         policyUpdate,
	{ResourcePolicy, OpDelete}:         policyDelete,
	{ResourcePolicy, OpGetAssignments}: policyGet("/assignments"),
	{ResourcePolicy, OpAssignToGroups}: policyAssign,

	{ResourceCustomProperty, OpCheck}:          customPropertyCheck,
	{ResourceCustomProperty, OpUpdate}:         customPropertyUpdate,
	{ResourceCustomProperty, OpListExtensions}: customPropertyExtensions,
}

// Supported reports whether a resource/operation pair can be executed.
func Supported(key OperationKey) bool {
	if key == (OperationKey{ResourceTool, OpChangeOutput}) {
		return true
	}

	_, ok := handlers[key]

	return ok
}

// Operations lists the supported operation names per resource.
func Operations() map[Resource][]Operation {
	out := map[Resource][]Operation{ResourceTool: {OpChangeOutput}}
	for key := range handlers {
		out[key.Resource] = append(out[key.Resource], key.Operation)
	}

	for _, ops := range out {
		sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	}

	return out
}

// call sends a JSON request and normalizes the response body.
func call(ctx context.Context, c *client.Client, req request, method, path string, body any, q *client.Query) (map[string]any, error) {
	raw, err := client.DoRaw(ctx, c, method, client.APIPrefix+path, body, q, req.Options...)
	if err != nil {
		return nil, err
	}

	return client.Normalize(raw.Body), nil
}

// listQuery maps additional fields and the filter onto a query. A filter
// expression replaces additional_fields.query.
func listQuery(req request) (client.Query, error) {
	f := req.Config.AdditionalFields

	q := client.Query{
		Select:               string(f.Select),
		Query:                string(f.Query),
		SortBy:               string(f.SortBy),
		GroupBy:              string(f.GroupBy),
		Skip:                 intPtr(f.Skip),
		Take:                 intPtr(f.Take),
		GetTotalCount:        boolPtr(f.GetTotalCount),
		IncludeLinkedObjects: boolPtr(f.IncludeLinkedObjects),
		GetFullObjects:       boolPtr(f.GetFullObjects),
		GetAsFlattenedList:   boolPtr(f.GetAsFlattenedList),
	}

	if filter := req.Config.Filter; filter != nil {
		if filter.Mode != rql.ModeRaw {
			if err := rql.Validate(filter.Combinator, filter.Groups); err != nil {
				return q, &ParameterError{Item: req.Item, Parameter: "filter", Err: err}
			}
		}

		if expr, ok := filter.Query(); ok {
			q.Query = expr
		}
	}

	return q, nil
}

func intPtr(n *Number) *int {
	if n == nil {
		return nil
	}

	return client.Int(int(*n))
}

func boolPtr(f *Flag) *bool {
	if f == nil {
		return nil
	}

	return client.Bool(bool(*f))
}

// entityName validates the entity name and records it on the item span.
func entityName(ctx context.Context, req request) (string, error) {
	name, err := pathSegment(req.Item, "entity_name", req.Config.EntityName)
	if err != nil {
		return "", err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String(otelhelper.EntityKey, name))

	return name, nil
}

func entityList(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	name, err := entityName(ctx, req)
	if err != nil {
		return nil, err
	}

	q, err := listQuery(req)
	if err != nil {
		return nil, err
	}

	if !req.Config.ReturnAll {
		return call(ctx, c, req, http.MethodGet, "/entity/"+name, nil, &q)
	}

	page, err := client.ListAll[any](ctx, c, client.APIPrefix+"/entity/"+name, q, client.ListOptions{})
	if err != nil {
		return nil, err
	}

	return pageResult(page), nil
}

func entityCount(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	name, err := entityName(ctx, req)
	if err != nil {
		return nil, err
	}

	full, err := listQuery(req)
	if err != nil {
		return nil, err
	}

	q := client.Query{Query: full.Query, GroupBy: full.GroupBy}

	return call(ctx, c, req, http.MethodGet, "/entity/"+name+"/count", nil, &q)
}

func entityGet(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	name, err := entityName(ctx, req)
	if err != nil {
		return nil, err
	}

	id, err := pathSegment(req.Item, "entity_id", req.Config.EntityID)
	if err != nil {
		return nil, err
	}

	q := client.Query{IncludeLinkedObjects: client.Bool(bool(req.Config.IncludeLinkedObjects))}

	return call(ctx, c, req, http.MethodGet, "/entity/"+name+"/"+id, nil, &q)
}

func entityExport(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	name, err := entityName(ctx, req)
	if err != nil {
		return nil, err
	}

	format, err := requireText(req.Item, "export_format", req.Config.ExportFormat)
	if err != nil {
		return nil, err
	}

	q, err := listQuery(req)
	if err != nil {
		return nil, err
	}

	q.GetTotalCount = nil
	q.GetAsFlattenedList = nil
	q.ExportFormat = format

	opts := req.Config.ExportOptions
	q.Readability = intPtr(opts.Readability)
	q.Separator = string(opts.Separator)
	q.Language = string(opts.Language)
	q.MaskUserProperties = boolPtr(opts.MaskUserProperties)
	q.MaskComputerProperties = boolPtr(opts.MaskComputerProperties)

	options := append([]client.RequestOption{client.WithHeader("Accept", "*/*")}, req.Options...)

	raw, err := client.DoRaw(ctx, c, http.MethodGet, client.APIPrefix+"/entity/"+name+"/export", nil, &q, options...)
	if err != nil {
		return nil, err
	}

	return client.Normalize(raw.Body), nil
}

// binariesList pages through application binaries, newest VirusTotal
// lookups first.
func binariesList(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	cfg := req.Config

	q := client.Query{
		SortBy:             "-extensions.VirusTotalLastFetch",
		GetFullObjects:     client.Bool(bool(cfg.GetFullObject)),
		GetAsFlattenedList: client.Bool(false),
	}

	if !cfg.GetFullObject {
		fields := make([]string, 0, 1+len(cfg.Properties)+len(cfg.ExtensionProperties))
		fields = append(fields, "id")
		fields = append(fields, cfg.Properties...)

		for _, p := range cfg.ExtensionProperties {
			fields = append(fields, "extensions."+p)
		}

		q.Select = strings.Join(fields, ",") + ","
	}

	opts := client.ListOptions{}

	if !cfg.ReturnAll {
		switch {
		case cfg.Limit < 0:
			return nil, paramErr(req.Item, "limit", "must not be negative")
		case cfg.Limit == 0:
			opts.Limit = defaultLimit
		default:
			opts.Limit = int(cfg.Limit)
		}
	}

	page, err := client.ListAll[any](ctx, c, binariesEndpoint, q, opts)
	if err != nil {
		return nil, err
	}

	return pageResult(page), nil
}

func pageResult(page *client.Page[any]) map[string]any {
	out := map[string]any{
		"success":        true,
		"data":           page.Data,
		"total":          page.Total,
		"processedTotal": page.Fetched,
	}

	if page.Warning != "" {
		out["warning"] = page.Warning
	}

	return out
}

func computerDelete(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	ids, err := SplitIDs(req.Item, "computer_ids", req.Config.ComputerIDs)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"computerIds":            ids,
		"deleteRecoveryData":     bool(req.Config.DeleteRecoveryData),
		"deleteEvents":           bool(req.Config.DeleteEvents),
		"deleteGroupDefinitions": bool(req.Config.DeleteGroupDefinitions),
	}

	return call(ctx, c, req, http.MethodPost, "/computer/delete", body, nil)
}

func computerActions(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	ids, err := SplitIDs(req.Item, "computer_ids", req.Config.ComputerIDs)
	if err != nil {
		return nil, err
	}

	actions, err := ParseJSONParameter(req.Item, "actions", req.Config.Actions)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"computerIds": ids,
		"actions":     actions,
		"notifyAgent": bool(req.Config.NotifyAgent),
	}

	return call(ctx, c, req, http.MethodPost, "/computer/actions", body, nil)
}

func computerUnlock(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	id, err := pathSegment(req.Item, "computer_id", req.Config.ComputerID)
	if err != nil {
		return nil, err
	}

	data, err := ParseJSONParameter(req.Item, "unlock_data", req.Config.UnlockData)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/computer/online/unlock", map[string]any{
		"computerId": id,
		"data":       data,
	}, nil)
}

func computerStopUnlock(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	id, err := pathSegment(req.Item, "computer_id", req.Config.ComputerID)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/computer/online/stopUnlock", map[string]any{"computerId": id}, nil)
}

func computerRejoin(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	ids, err := SplitIDs(req.Item, "computer_ids", req.Config.ComputerIDs)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/computer/markAgentForRejoin", map[string]any{
		"computerIds":   ids,
		"allowToRejoin": bool(req.Config.AllowToRejoin),
	}, nil)
}

func groupAdd(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	groupID, err := pathSegment(req.Item, "group_id", req.Config.GroupID)
	if err != nil {
		return nil, err
	}

	memberships, err := ParseJSONParameter(req.Item, "memberships", req.Config.Memberships)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/group/definedGroupMemberships/computers", map[string]any{
		"groupId":     groupID,
		"memberships": memberships,
	}, nil)
}

func groupRemove(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	ids, err := SplitIDs(req.Item, "membership_ids", req.Config.MembershipIDs)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodDelete, "/group/definedGroupMemberships", ids, nil)
}

// groupMembers changes the computer members of a group. setMembers (PUT)
// replaces the whole member list.
func groupMembers(method, suffix string) handler {
	return func(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
		groupID, err := pathSegment(req.Item, "group_id", req.Config.GroupID)
		if err != nil {
			return nil, err
		}

		ids, err := SplitIDs(req.Item, "computer_ids", req.Config.ComputerIDs)
		if err != nil {
			return nil, err
		}

		return call(ctx, c, req, method, "/group/"+groupID+"/members"+suffix, map[string]any{
			"groupId":     groupID,
			"computerIds": ids,
		}, nil)
	}
}

func groupGetMembers(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	groupID, err := pathSegment(req.Item, "group_id", req.Config.GroupID)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodGet, "/group/"+groupID+"/members", nil, nil)
}

// configBody starts a rules body; configVersion is only sent when set.
func configBody(req request) (map[string]any, error) {
	configID, err := requireText(req.Item, "config_id", req.Config.ConfigID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"configId": configID}
	if req.Config.ConfigVersion != 0 {
		body["configVersion"] = int(req.Config.ConfigVersion)
	}

	return body, nil
}

func getRules(path string) handler {
	return func(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
		configID, err := pathSegment(req.Item, "config_id", req.Config.ConfigID)
		if err != nil {
			return nil, err
		}

		q := client.Query{}
		if req.Config.ConfigVersion != 0 {
			q.ConfigVersion = client.Int(int(req.Config.ConfigVersion))
		}

		return call(ctx, c, req, http.MethodGet, path+"/"+configID, nil, &q)
	}
}

// writeRules sends the parsed rules parameter under field.
func writeRules(method, path, field string) handler {
	return func(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
		body, err := configBody(req)
		if err != nil {
			return nil, err
		}

		rules, err := ParseJSONParameter(req.Item, "rules", req.Config.Rules)
		if err != nil {
			return nil, err
		}

		body[field] = rules

		return call(ctx, c, req, method, path, body, nil)
	}
}

func deleteRules(path string) handler {
	return func(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
		body, err := configBody(req)
		if err != nil {
			return nil, err
		}

		ids, err := SplitIDs(req.Item, "rule_ids", req.Config.RuleIDs)
		if err != nil {
			return nil, err
		}

		body["ruleIds"] = ids

		return call(ctx, c, req, http.MethodDelete, path, body, nil)
	}
}

func policyID(req request) (string, error) {
	return pathSegment(req.Item, "policy_id", req.Config.PolicyID)
}

func policyGet(suffix string) handler {
	return func(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
		id, err := policyID(req)
		if err != nil {
			return nil, err
		}

		return call(ctx, c, req, http.MethodGet, "/policy/"+id+suffix, nil, nil)
	}
}

func policyCreate(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	data, err := ParseJSONParameter(req.Item, "policy_data", req.Config.PolicyData)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/policy", data, nil)
}

func policyUpdate(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	id, err := policyID(req)
	if err != nil {
		return nil, err
	}

	data, err := ParseJSONParameter(req.Item, "policy_data", req.Config.PolicyData)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPatch, "/policy/"+id, data, nil)
}

func policyDelete(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	id, err := policyID(req)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodDelete, "/policy/"+id, nil, nil)
}

func policyAssign(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	id, err := policyID(req)
	if err != nil {
		return nil, err
	}

	groupIDs, err := SplitIDs(req.Item, "group_ids", req.Config.GroupIDs)
	if err != nil {
		return nil, err
	}

	return call(ctx, c, req, http.MethodPost, "/policy/"+id+"/assign", map[string]any{
		"policyId": id,
		"groupIds": groupIDs,
	}, nil)
}

func customSchema(req request) (string, error) {
	return pathSegment(req.Item, "schema", req.Config.Schema)
}

func customPropertyCheck(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	schema, err := customSchema(req)
	if err != nil {
		return nil, err
	}

	if len(req.Config.CustomProperties) == 0 {
		return nil, paramErr(req.Item, "custom_properties", "is required")
	}

	report, err := customprops.NewService(c).Check(ctx, schema, req.Config.CustomProperties, bool(req.Config.CreateOrUpdateIfNotExists))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"allPropertiesFound":  report.AllPropertiesFound,
		"allDataTypesCorrect": report.AllDataTypesCorrect,
		"allNotChanged":       report.AllNotChanged,
		"details":             report.Details,
	}, nil
}

func customPropertyUpdate(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	schema, err := customSchema(req)
	if err != nil {
		return nil, err
	}

	id, err := requireText(req.Item, "custom_property_id", req.Config.CustomPropertyID)
	if err != nil {
		return nil, err
	}

	payload, err := customprops.NewService(c).Update(ctx, schema, id, req.Config.UpdateProperties)
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "payload": payload}, nil
}

func customPropertyExtensions(ctx context.Context, c *client.Client, req request) (map[string]any, error) {
	schema, err := customSchema(req)
	if err != nil {
		return nil, err
	}

	names, err := customprops.NewService(c).Extensions(ctx, schema)
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "data": names}, nil
}

// flattenOutput returns the elements of every item's data array as items.
func flattenOutput(items []map[string]any) []map[string]any {
	out := []map[string]any{}

	for _, item := range items {
		data, ok := item["data"].([]any)
		if !ok {
			continue
		}

		for _, d := range data {
			if m, ok := d.(map[string]any); ok {
				out = append(out, m)
			} else {
				out = append(out, map[string]any{"value": d})
			}
		}
	}

	return out
}

func unsupported(key OperationKey) error {
	return fmt.Errorf("%w: unsupported operation %s", ErrInvalidParameter, key)
}
