package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/metrics"
)

var testColumns = []string{"order_id", "product_category_name", "order_purchase_timestamp"}

func testOrder(id, cat string, year int, month time.Month, day int) core.Order {
	ts := time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
	return core.Order{
		ID:          id,
		Category:    cat,
		PurchasedAt: ts,
		Values:      []string{id, cat, ts.Format(time.DateTime)},
	}
}

// testDataset holds A x5 and B x2 in January 2017 and A x1 in March 2018.
func testDataset(t *testing.T) *core.Dataset {
	t.Helper()
	var orders []core.Order
	for i := 0; i < 5; i++ {
		orders = append(orders, testOrder(fmt.Sprintf("a%d", i), "A", 2017, time.January, i+1))
	}
	for i := 0; i < 2; i++ {
		orders = append(orders, testOrder(fmt.Sprintf("b%d", i), "B", 2017, time.January, i+10))
	}
	orders = append(orders, testOrder("a-2018", "A", 2018, time.March, 4))

	ds, err := core.NewDataset(testColumns, orders)
	require.NoError(t, err)
	return ds
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ReportRequestMessage
	err  error
}

func (f *fakePublisher) PublishReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func newTestServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		RawRowLimit: 500,
		Metrics:     metrics.New(),
		Logger:      log.New(log.Config{Output: io.Discard}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := NewServer(":0", testDataset(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexRendersControlsAndDefaultSelection(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	for _, want := range []string{
		"<title>Sales Data Visualization</title>",
		`<option value="2017" selected>`,
		`<option value="2018">`,
		`value="all" checked`,
		"All Months",
		"January",
		"March",
		"Show Raw Data",
		"Most Sold Category: <strong>A</strong> with 5 sales",
		"Least Sold Category: <strong>B</strong> with 2 sales",
		"Top Three Selling Categories 2017",
	} {
		assert.Contains(t, body, want)
	}
	assert.Less(t, strings.Index(body, "All Months"), strings.Index(body, "January"), "All Months is listed first")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestSummaryPartial(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.RawRowLimit = 3 })

	t.Run("selection with raw rows", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/ui/summary?year=2017&month=January&raw=1", nil, map[string]string{"HX-Request": "true"})
		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Most Sold Category: <strong>A</strong> with 5 sales")
		assert.Contains(t, body, "showing 3 of 7 rows")
		assert.Contains(t, body, "<th>month</th>")
		assert.Contains(t, body, "/charts/extremes.png?month=January&amp;year=2017")
		assert.Contains(t, rr.Header().Get("HX-Trigger"), `"selection:changed"`)
	})

	t.Run("empty selection", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/ui/summary?year=2018&month=January", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "No data for this selection")
		assert.NotContains(t, rr.Body.String(), "<img")
	})

	t.Run("unknown year", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/ui/summary?year=1990", nil, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), `<div class="error">`)
	})

	t.Run("malformed month", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/ui/summary?year=2017&month=Smarch", nil, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestAPISummary(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/summary?year=2017&raw=true", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got struct {
		Year     int                  `json:"year"`
		Month    string               `json:"month"`
		Total    int                  `json:"total"`
		Empty    bool                 `json:"empty"`
		Counts   []core.CategoryCount `json:"counts"`
		Extremes *core.Extremes       `json:"extremes"`
		Monthly  []struct {
			Month string               `json:"month"`
			Top   []core.CategoryCount `json:"top"`
		} `json:"monthly"`
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2017, got.Year)
	assert.Equal(t, core.AllMonthsLabel, got.Month)
	assert.Equal(t, 7, got.Total)
	assert.False(t, got.Empty)
	assert.Equal(t, []core.CategoryCount{{Category: "A", Count: 5}, {Category: "B", Count: 2}}, got.Counts)
	require.NotNil(t, got.Extremes)
	assert.Equal(t, "A", got.Extremes.Most.Category)
	require.Len(t, got.Monthly, 1)
	assert.Equal(t, "January", got.Monthly[0].Month)
	assert.Equal(t, append(append([]string{}, testColumns...), "month"), got.Columns)
	assert.Len(t, got.Rows, 7)

	rr = do(t, srv, http.MethodGet, "/api/summary?year=abc", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
}

func TestChartsEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	pngMagic := []byte("\x89PNG\r\n\x1a\n")

	for _, path := range []string{"/charts/extremes.png", "/charts/monthly-top.png"} {
		t.Run(path, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, path+"?year=2017", nil, nil)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), pngMagic))

			rr = do(t, srv, http.MethodGet, path+"?year=2018&month=January", nil, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.Contains(t, rr.Body.String(), "No data for this selection")
		})
	}
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.RawRowLimit = 1 })

	rr := do(t, srv, http.MethodGet, "/export/rows.csv?year=2017&month=January", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "orders-2017-january.csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 8, "header plus every filtered row regardless of the raw preview limit")
	assert.Equal(t, "order_id,product_category_name,order_purchase_timestamp,month", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",January"))

	rr = do(t, srv, http.MethodGet, "/export/rows.xlsx?year=2018", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "orders-2018-all.xlsx")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))
}

func TestCreateReport(t *testing.T) {
	t.Run("disabled without publisher", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("json body", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer(t, func(o *Options) { o.Publisher = pub })

		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017,"month":"January"}`),
			map[string]string{"Content-Type": "application/json"})
		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, pub.msgs[0].ID, resp["id"])
		assert.Equal(t, core.Selection{Year: 2017, Month: time.January}, pub.msgs[0].Selection())
		require.NoError(t, pub.msgs[0].Validate())
	})

	t.Run("htmx form body", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer(t, func(o *Options) { o.Publisher = pub })

		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader("year=2018&month=all&raw=1"),
			map[string]string{"Content-Type": "application/x-www-form-urlencoded", "HX-Request": "true"})
		require.Equal(t, http.StatusAccepted, rr.Code)
		assert.Contains(t, rr.Header().Get("HX-Trigger"), `"report:queued"`)
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, core.Selection{Year: 2018}, pub.msgs[0].Selection())
	})

	t.Run("invalid selection", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer(t, func(o *Options) { o.Publisher = pub })
		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":1800}`), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Empty(t, pub.msgs)
	})

	t.Run("publish failures", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("connection reset")}
		srv := newTestServer(t, func(o *Options) { o.Publisher = pub })
		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)

		pub.err = amqp.ErrCircuitOpen
		rr = do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := newTestServer(t, func(o *Options) {
			o.Publisher = pub
			o.ReportsPerMinute = 1
		})
		rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
		require.Equal(t, http.StatusAccepted, rr.Code)
		rr = do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})
}

func TestErrorResponsesMatchClient(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection reset")}
	srv := newTestServer(t, func(o *Options) {
		o.Publisher = pub
		o.ReportsPerMinute = 2
	})

	rr := do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Could not queue report"}`, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/reports", strings.NewReader("year=2017"),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded", "HX-Request": "true"})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), `<div class="error">Could not queue report</div>`)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)

	rr = do(t, srv, http.MethodPost, "/reports", strings.NewReader(`{"year":2017}`), nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"Too many report requests, try again in a minute"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/charts/extremes.png?year=2018&month=January", nil, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `<div class="error">`)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"orders":8`)
	assert.Contains(t, rr.Body.String(), `"reports":"disabled"`)

	do(t, srv, http.MethodGet, "/api/summary?year=2017", nil, nil)
	rr = do(t, srv, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "salesdash_http_requests_total")
	assert.Contains(t, rr.Body.String(), "salesdash_summaries_total")
}

func TestStaticAssetsServed(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/static/app.css", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}

func TestResultsAreCachedPerSelection(t *testing.T) {
	srv := newTestServer(t, nil)

	do(t, srv, http.MethodGet, "/api/summary?year=2017", nil, nil)
	do(t, srv, http.MethodGet, "/charts/extremes.png?year=2017&month=all", nil, nil)
	do(t, srv, http.MethodGet, "/api/summary?year=2018", nil, nil)

	assert.Equal(t, uint64(1), srv.CacheStats().Hits)
	assert.Equal(t, 2, srv.results.Cache().Size())
}

func TestConcurrentSummaryRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := "/api/summary?year=2017"
			if i%2 == 1 {
				target = "/api/summary?year=2018&month=March"
			}
			rr := do(t, srv, http.MethodGet, target, nil, nil)
			assert.Equal(t, http.StatusOK, rr.Code)
		}(i)
	}
	wg.Wait()
}
