package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/otelhelper"
)

// DefaultPageSize is the largest page requested from list endpoints.
const DefaultPageSize = 500

// ListOptions bound a paginated listing. A Limit of zero or less returns
// every item the server reports.
type ListOptions struct {
	Limit    int
	PageSize int
}

// Page is the concatenation of every page fetched by ListAll. Warning is set
// when the listing stopped early; Data then holds what was fetched so far.
type Page[T any] struct {
	Data    []T    `json:"data"`
	Total   int    `json:"total"`
	Fetched int    `json:"processedTotal"`
	Warning string `json:"warning,omitempty"`
}

// ListAll follows skip/take pagination on a list endpoint until the limit or
// the server-reported total is reached. Only the first page is mandatory:
// later failures end the listing with a warning.
func ListAll[T any](ctx context.Context, c *Client, endpoint string, q Query, opts ListOptions) (*Page[T], error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	take := pageSize
	if opts.Limit > 0 {
		take = min(take, opts.Limit)
	}

	q.Skip = nil
	q.Take = Int(take)
	q.GetTotalCount = Bool(true)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "drivelock.list",
		attribute.String(otelhelper.EndpointKey, endpoint),
	)
	defer span.End()

	first, total, err := fetchPage[T](ctx, c, endpoint, q)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if first == nil {
		first = []T{}
	}

	if total < 0 {
		total = len(first)
	}

	target := total
	if opts.Limit > 0 {
		target = min(opts.Limit, total)
	}

	page := &Page[T]{Data: first, Total: total}

	for len(page.Data) < target {
		q.Skip = Int(len(page.Data))
		q.Take = Int(min(pageSize, target-len(page.Data)))

		span.AddEvent("page", trace.WithAttributes(
			attribute.Int(otelhelper.PageSkipKey, *q.Skip),
			attribute.Int(otelhelper.PageTakeKey, *q.Take),
		))

		items, _, err := fetchPage[T](ctx, c, endpoint, q)
		if err != nil {
			page.Warning = fmt.Sprintf("stopped after %d of %d items: %v", len(page.Data), target, err)

			break
		}

		if len(items) == 0 {
			page.Warning = fmt.Sprintf("stopped after %d of %d items: page at skip %d was empty", len(page.Data), target, *q.Skip)

			break
		}

		page.Data = append(page.Data, items...)
	}

	if len(page.Data) > target {
		page.Data = page.Data[:target]
	}

	page.Fetched = len(page.Data)

	if page.Warning != "" {
		c.logger.WarnContext(ctx, "DriveLock listing incomplete",
			"endpoint", endpoint,
			"fetched", page.Fetched,
			"total", total,
			"warning", page.Warning,
		)
	}

	return page, nil
}

// fetchPage returns the items of one page and the reported total, or -1 when
// the response carries none.
func fetchPage[T any](ctx context.Context, c *Client, endpoint string, q Query) ([]T, int, error) {
	raw, err := c.send(ctx, http.MethodGet, endpoint, nil, &q)
	if err != nil {
		return nil, 0, err
	}

	data := gjson.GetBytes(raw.Body, "data")
	if !data.IsArray() {
		return nil, 0, fmt.Errorf("%w: data is not an array", ErrMalformedResponse)
	}

	var items []T
	if err := json.Unmarshal([]byte(data.Raw), &items); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	total := -1
	if t := gjson.GetBytes(raw.Body, "total"); t.Type == gjson.Number {
		total = int(t.Int())
	}

	return items, total, nil
}
