package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID int `json:"id"`
}

type pageCall struct {
	Skip, Take int
}

// pagedServer serves total items with skip/take semantics. override may
// replace the response of the n-th call (0-based).
func pagedServer(t *testing.T, total int, override func(n int, w http.ResponseWriter) bool) (*Client, *[]pageCall) {
	t.Helper()

	var calls []pageCall

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		take, _ := strconv.Atoi(r.URL.Query().Get("take"))
		calls = append(calls, pageCall{Skip: skip, Take: take})

		if override != nil && override(len(calls)-1, w) {
			return
		}

		data := []item{}
		for i := skip; i < min(skip+take, total); i++ {
			data = append(data, item{ID: i})
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "total": total})
	})

	return c, &calls
}

func TestListAll_ReturnAll(t *testing.T) {
	c, calls := pagedServer(t, 1200, nil)

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.NoError(t, err)

	assert.Len(t, page.Data, 1200)
	assert.Equal(t, 1200, page.Total)
	assert.Equal(t, 1200, page.Fetched)
	assert.Empty(t, page.Warning)
	assert.Equal(t, []pageCall{{0, 500}, {500, 500}, {1000, 200}}, *calls)

	for i, it := range page.Data {
		require.Equal(t, i, it.ID)
	}
}

func TestListAll_LimitBelowPageSize(t *testing.T) {
	c, calls := pagedServer(t, 1200, nil)

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{Limit: 42})
	require.NoError(t, err)

	assert.Len(t, page.Data, 42)
	assert.Equal(t, []pageCall{{0, 42}}, *calls)
}

func TestListAll_LimitAcrossPages(t *testing.T) {
	c, calls := pagedServer(t, 1200, nil)

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{Limit: 700})
	require.NoError(t, err)

	assert.Len(t, page.Data, 700)
	assert.Equal(t, 700, page.Fetched)
	assert.Equal(t, 1200, page.Total)
	assert.Equal(t, []pageCall{{0, 500}, {500, 200}}, *calls)
}

func TestListAll_LimitAboveTotal(t *testing.T) {
	c, calls := pagedServer(t, 30, nil)

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{Limit: 100})
	require.NoError(t, err)

	assert.Len(t, page.Data, 30)
	assert.Len(t, *calls, 1)
}

func TestListAll_EmptyResult(t *testing.T) {
	c, _ := pagedServer(t, 0, nil)

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.NoError(t, err)

	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Total)
}

func TestListAll_MalformedPageKeepsPartialData(t *testing.T) {
	c, calls := pagedServer(t, 1200, func(n int, w http.ResponseWriter) bool {
		if n != 1 {
			return false
		}

		_, _ = w.Write([]byte(`{"data":{"unexpected":true},"total":1200}`))

		return true
	})

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.NoError(t, err)

	assert.Len(t, page.Data, 500)
	assert.Equal(t, 500, page.Fetched)
	assert.Contains(t, page.Warning, "malformed")
	assert.Len(t, *calls, 2)
}

func TestListAll_EmptyPageTerminates(t *testing.T) {
	c, calls := pagedServer(t, 1200, func(n int, w http.ResponseWriter) bool {
		if n == 0 {
			return false
		}

		_, _ = w.Write([]byte(`{"data":[],"total":1200}`))

		return true
	})

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.NoError(t, err)

	assert.Len(t, page.Data, 500)
	assert.NotEmpty(t, page.Warning)
	assert.Len(t, *calls, 2)
}

func TestListAll_LaterFailureKeepsPartialData(t *testing.T) {
	c, _ := pagedServer(t, 1200, func(n int, w http.ResponseWriter) bool {
		if n == 0 {
			return false
		}

		w.WriteHeader(http.StatusBadRequest)

		return true
	})

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.NoError(t, err)

	assert.Len(t, page.Data, 500)
	assert.Contains(t, page.Warning, "HTTP 400")
}

func TestListAll_FirstPageFailureIsAnError(t *testing.T) {
	c, _ := pagedServer(t, 1200, func(_ int, w http.ResponseWriter) bool {
		w.WriteHeader(http.StatusForbidden)

		return true
	})

	_, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestListAll_OversizedPageIsTruncated(t *testing.T) {
	c, _ := pagedServer(t, 10, func(_ int, w http.ResponseWriter) bool {
		data := make([]item, 10)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "total": 10})

		return true
	})

	page, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{}, ListOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 3, page.Fetched)
}

func TestListAll_KeepsCallerQuery(t *testing.T) {
	var got []string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("sortBy"), r.URL.Query().Get("getTotalCount"))
		_, _ = w.Write([]byte(`{"data":[],"total":0}`))
	})

	_, err := ListAll[item](context.Background(), c, "/entity/AcBinaries", Query{SortBy: "-extensions.VirusTotalLastFetch"}, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"-extensions.VirusTotalLastFetch", "true"}, got)
}
