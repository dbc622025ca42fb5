package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operaflow/internal/events"
	"operaflow/internal/metrics"
	"operaflow/internal/model"
	"operaflow/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	srv   *Server
	store *store.Store
	bus   *events.Bus
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewBus()
	st := store.NewStore(db, store.WithEvents(bus))
	reg, m := metrics.NewRegistry()
	cfg.Bus = bus
	cfg.Metrics = m
	cfg.Gatherer = reg
	srv, err := NewServer(st, cfg)
	require.NoError(t, err)
	return fixture{srv: srv, store: st, bus: bus}
}

func (f fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error
}

func (f fixture) seed(t *testing.T, label, start, end string) model.Task {
	t.Helper()
	task, err := f.store.CreateTask(context.Background(), model.Task{Label: label, Start: start, End: end})
	require.NoError(t, err)
	return task
}

func TestHealthzAndRequestID(t *testing.T) {
	f := newFixture(t, Config{})
	w := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = f.do(t, http.MethodGet, "/healthz", "", requestIDHeader, "abc")
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.do(t, http.MethodPost, "/api/affaires", `{"code":"AFF-1","nom":"Ecole"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/api/affaires", `{"code":"AFF-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/tasks", `{"libelle":"Charpente","code_affaire":"AFF-1","date_debut_plan":"2024-01-01","date_fin_plan":"2024-01-05"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Task
	decodeData(t, w, &created)
	assert.Equal(t, "AFF-1", created.AffaireCode)

	w = f.do(t, http.MethodPatch, "/api/tasks/1/dates", `{"task_id":1,"date_debut_plan":"2024-01-01","date_fin_plan":"2024-01-10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Task
	decodeData(t, w, &updated)
	assert.Equal(t, "2024-01-10", updated.End)

	w = f.do(t, http.MethodPatch, "/api/tasks/1/progress", `{"avancement":0}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/tasks/1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var evs []model.TaskEvent
	decodeData(t, w, &evs)
	assert.Len(t, evs, 3)

	w = f.do(t, http.MethodGet, "/api/tasks?q=charp", "")
	var list []model.Task
	decodeData(t, w, &list)
	assert.Len(t, list, 1)

	w = f.do(t, http.MethodDelete, "/api/tasks/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/api/tasks/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, Config{})
	f.seed(t, "A", "2024-01-01", "2024-01-05")

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"bad id", http.MethodGet, "/api/tasks/abc", "", http.StatusBadRequest},
		{"missing", http.MethodGet, "/api/tasks/42", "", http.StatusNotFound},
		{"reversed", http.MethodPatch, "/api/tasks/1/dates", `{"date_debut_plan":"2024-02-01","date_fin_plan":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"missing field", http.MethodPatch, "/api/tasks/1/dates", `{"date_debut_plan":"2024-02-01"}`, http.StatusBadRequest},
		{"id mismatch", http.MethodPatch, "/api/tasks/1/dates", `{"task_id":2,"date_debut_plan":"2024-02-01","date_fin_plan":"2024-02-02"}`, http.StatusBadRequest},
		{"progress range", http.MethodPatch, "/api/tasks/1/progress", `{"avancement":150}`, http.StatusUnprocessableEntity},
		{"progress missing", http.MethodPatch, "/api/tasks/1/progress", `{}`, http.StatusBadRequest},
		{"no label", http.MethodPost, "/api/tasks", `{"date_debut_plan":"2024-01-01"}`, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/tasks?statut=zzz", "", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.NotEmpty(t, errorOf(t, w))
		})
	}
}

func TestBatchUpdateDates(t *testing.T) {
	f := newFixture(t, Config{})
	a := f.seed(t, "A", "2024-01-01", "2024-01-05")
	f.seed(t, "B", "2024-01-01", "2024-01-05")

	w := f.do(t, http.MethodPost, "/api/tasks/dates/batch", `{"items":[
		{"task_id":1,"date_debut_plan":"2024-03-01","date_fin_plan":"2024-03-02"},
		{"task_id":2,"date_debut_plan":"2024-03-05","date_fin_plan":"2024-03-01"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []model.ItemResult
	decodeData(t, w, &results)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)

	got, err := f.store.GetTask(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got.Start)
}

func TestCSVExportAndImport(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.CreateAffaire(context.Background(), model.Affaire{Code: "AFF-1"})
	require.NoError(t, err)

	body := "libelle,code_affaire,site,type,date_debut,date_fin,avancement,statut\n" +
		"Charpente,AFF-1,,,2024-01-01,2024-01-05,10,en_cours\n" +
		"Orpheline,AFF-X,,,2024-01-01,2024-01-05,0,\n"
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/import", strings.NewReader(body))
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Imported int `json:"imported"`
		Failed   int `json:"failed"`
	}
	decodeData(t, w, &res)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Failed)

	w = f.do(t, http.MethodGet, "/api/tasks.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t,
		"libelle,code_affaire,site,type,date_debut,date_fin,avancement,statut\nCharpente,AFF-1,,,2024-01-01,2024-01-05,10,en_cours\n",
		w.Body.String())
}

func TestBearerAuth(t *testing.T) {
	f := newFixture(t, Config{JWTSecret: "s3cret"})

	w := f.do(t, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad, err := IssueToken("other", "alice", time.Hour)
	require.NoError(t, err)
	w = f.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer "+bad)
	assert.Equal(t, http.StatusForbidden, w.Code)

	good, err := IssueToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)
	w = f.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer "+good)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code, "health stays public")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Config{})
	f.do(t, http.MethodGet, "/healthz", "")
	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `operaflow_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, Config{})
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}
	waitFor("event:ready")

	f.seed(t, "Live", "2024-01-01", "2024-01-02")
	assert.Equal(t, "event:task.created", waitFor("event:task.created"))
	data := waitFor("data:")
	assert.Contains(t, data, `"task_id":1`)
}
