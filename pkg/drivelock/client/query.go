package client

import (
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// Query holds the query parameters understood by the list, count, get and
// export endpoints. Unset fields are not sent. Extra carries passthrough keys
// and wins over the typed fields on conflict.
type Query struct {
	Select                 string `url:"select,omitempty"`
	Query                  string `url:"query,omitempty"`
	SortBy                 string `url:"sortBy,omitempty"`
	GroupBy                string `url:"groupBy,omitempty"`
	Skip                   *int   `url:"skip,omitempty"`
	Take                   *int   `url:"take,omitempty"`
	GetTotalCount          *bool  `url:"getTotalCount,omitempty"`
	GetFullObjects         *bool  `url:"getFullObjects,omitempty"`
	GetAsFlattenedList     *bool  `url:"getAsFlattenedList,omitempty"`
	IncludeLinkedObjects   *bool  `url:"includeLinkedObjects,omitempty"`
	ConfigVersion          *int   `url:"configVersion,omitempty"`
	ExportFormat           string `url:"exportFormat,omitempty"`
	Readability            *int   `url:"readability,omitempty"`
	Separator              string `url:"separator,omitempty"`
	Language               string `url:"language,omitempty"`
	MaskUserProperties     *bool  `url:"maskUserProperties,omitempty"`
	MaskComputerProperties *bool  `url:"maskComputerProperties,omitempty"`

	Extra map[string]string `url:"-"`
}

// Values encodes the query. A nil query encodes to nil.
func (q *Query) Values() (url.Values, error) {
	if q == nil {
		return nil, nil
	}

	values, err := query.Values(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	for k, v := range q.Extra {
		values.Set(k, v)
	}

	return values, nil
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
