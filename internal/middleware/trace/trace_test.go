package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"salesdash/internal/log"
)

type recordingObserver struct {
	mu     sync.Mutex
	calls  []string
	status []int
}

func (o *recordingObserver) ObserveHTTP(method, path string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+path)
	o.status = append(o.status, status)
}

func newLogger(buf *bytes.Buffer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = buf
	cfg.Level = slog.LevelDebug
	return log.New(cfg)
}

func TestMiddlewareTagsRequestAndObserves(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	m := NewMiddleware(newLogger(&buf), func(*http.Request) string { return "10.0.0.1" }, obs)

	var seenID string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /charts/extremes.png", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/charts/extremes.png?year=2017", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q", seenID)
	}
	if rr.Header().Get(RequestIDHeader) != seenID {
		t.Fatalf("response header id = %q, want %q", rr.Header().Get(RequestIDHeader), seenID)
	}
	if len(obs.calls) != 1 || obs.status[0] != http.StatusNotFound {
		t.Fatalf("observer calls = %v status = %v", obs.calls, obs.status)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request completed", "inside handler", seenID, "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newLogger(&buf), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	rr := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) != "upstream-1" {
			t.Errorf("request id not propagated")
		}
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
