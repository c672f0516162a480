package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
	"github.com/ferrolab/podflow/internal/storage"
	"github.com/ferrolab/podflow/internal/workflow"
)

// fakeEngine records trigger calls and exposes a real queue set.
type fakeEngine struct {
	queues *workflow.Queues
	calls  chan [2]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		queues: workflow.NewQueues(),
		calls:  make(chan [2]string, 8),
	}
}

func (f *fakeEngine) CheckAndTriggerWorkflows(ctx context.Context, canvasID, sourcePodID string) error {
	f.calls <- [2]string{canvasID, sourcePodID}
	return nil
}

func (f *fakeEngine) Queues() *workflow.Queues { return f.queues }

func setupServer(t *testing.T, apiKey string) (*Server, *canvas.Store, *fakeEngine, *events.Hub) {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.BootstrapSQLite(context.Background(), db); err != nil {
		t.Fatalf("failed to bootstrap database: %v", err)
	}

	store := canvas.NewStore(db)
	engine := newFakeEngine()
	hub := events.NewHub(64)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	srv := New(Config{Listen: "127.0.0.1:0", APIKey: apiKey}, store, engine, hub, logger)
	return srv, store, engine, hub
}

func doRequest(t *testing.T, srv *Server, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v (body: %s)", err, rec.Body.String())
	}
	return out
}

func TestHealthzUnauthenticated(t *testing.T) {
	srv, _, _, _ := setupServer(t, "secret")

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[HealthzResponse](t, rec)
	if resp.Status != "ok" {
		t.Errorf("unexpected status %q", resp.Status)
	}
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	srv, _, _, _ := setupServer(t, "secret")

	rec := doRequest(t, srv, http.MethodGet, "/canvas/c1/pods", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/pods", "wrong", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/pods", "secret", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("good token: expected 200, got %d", rec.Code)
	}
}

func TestAuthDisabledWithEmptyKey(t *testing.T) {
	srv, _, _, _ := setupServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/canvas/c1/pods", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestPodLifecycle(t *testing.T) {
	srv, _, _, _ := setupServer(t, "")

	rec := doRequest(t, srv, http.MethodPost, "/canvas/c1/pods", "", CreatePodRequest{Name: "researcher", Agent: "scout"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	pod := decodeBody[canvas.Pod](t, rec)
	if pod.ID == "" || pod.Status != canvas.PodIdle {
		t.Errorf("unexpected pod: %+v", pod)
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/pods/"+pod.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/pods", "", nil)
	pods := decodeBody[[]canvas.Pod](t, rec)
	if len(pods) != 1 {
		t.Errorf("list: expected 1 pod, got %d", len(pods))
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/pods/ghost", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown pod: expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/canvas/c1/pods", "", CreatePodRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: expected 400, got %d", rec.Code)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	srv, _, _, _ := setupServer(t, "")

	a := decodeBody[canvas.Pod](t, doRequest(t, srv, http.MethodPost, "/canvas/c1/pods", "", CreatePodRequest{Name: "a"}))
	b := decodeBody[canvas.Pod](t, doRequest(t, srv, http.MethodPost, "/canvas/c1/pods", "", CreatePodRequest{Name: "b"}))

	rec := doRequest(t, srv, http.MethodPost, "/canvas/c1/connections", "", CreateConnectionRequest{
		SourcePodID: a.ID, TargetPodID: b.ID, TriggerMode: "auto",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	conn := decodeBody[canvas.Connection](t, rec)
	if conn.TriggerMode != canvas.TriggerAuto || conn.DecideStatus != canvas.DecideNone {
		t.Errorf("unexpected connection: %+v", conn)
	}

	rec = doRequest(t, srv, http.MethodPost, "/canvas/c1/connections", "", CreateConnectionRequest{
		SourcePodID: a.ID, TargetPodID: b.ID, TriggerMode: "psychic",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/canvas/c1/connections", "", CreateConnectionRequest{
		SourcePodID: a.ID, TargetPodID: "ghost", TriggerMode: "direct",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown endpoint: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/connections", "", nil)
	conns := decodeBody[[]canvas.Connection](t, rec)
	if len(conns) != 1 {
		t.Errorf("list: expected 1 connection, got %d", len(conns))
	}

	rec = doRequest(t, srv, http.MethodDelete, "/canvas/c1/connections/"+conn.ID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/canvas/c1/connections/"+conn.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestPodCompleteTriggersEngine(t *testing.T) {
	srv, _, engine, _ := setupServer(t, "")

	pod := decodeBody[canvas.Pod](t, doRequest(t, srv, http.MethodPost, "/canvas/c1/pods", "", CreatePodRequest{Name: "a"}))

	rec := doRequest(t, srv, http.MethodPost, "/canvas/c1/pods/"+pod.ID+"/complete", "", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[CompleteResponse](t, rec)
	if resp.Status != "accepted" || resp.SourcePodID != pod.ID {
		t.Errorf("unexpected response: %+v", resp)
	}

	select {
	case call := <-engine.calls:
		if call[0] != "c1" || call[1] != pod.ID {
			t.Errorf("unexpected trigger call: %v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine was never invoked")
	}

	rec = doRequest(t, srv, http.MethodPost, "/canvas/c1/pods/ghost/complete", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown pod: expected 404, got %d", rec.Code)
	}
}

func TestPodQueueSnapshot(t *testing.T) {
	srv, _, engine, _ := setupServer(t, "")

	engine.queues.Enqueue(workflow.Item{
		CanvasID:     "c1",
		ConnectionID: "conn-1",
		SourcePodID:  "a",
		TargetPodID:  "t",
		Summary:      "parked",
		IsSummarized: true,
		TriggerMode:  canvas.TriggerAuto,
	})

	rec := doRequest(t, srv, http.MethodGet, "/canvas/c1/pods/t/queue", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[QueueResponse](t, rec)
	if resp.Size != 1 || len(resp.Items) != 1 {
		t.Fatalf("expected 1 queued item, got %+v", resp)
	}
	if resp.Items[0].ConnectionID != "conn-1" || resp.Items[0].TriggerMode != "auto" {
		t.Errorf("unexpected item: %+v", resp.Items[0])
	}
}

func TestEventsSSE(t *testing.T) {
	srv, _, _, hub := setupServer(t, "")

	hub.Publish(events.TypeWorkflowTriggered, events.WorkflowTriggered{
		CanvasID: "c1", ConnectionID: "conn-1", TriggerMode: "auto",
	})
	hub.Publish(events.TypeWorkflowComplete, events.WorkflowComplete{
		CanvasID: "c1", ConnectionID: "conn-1", Success: true,
	})

	ts := httptest.NewServer(srv.setupRoutes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	// Replayed ring buffer events arrive first.
	var seen []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(seen) < 2 {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			seen = append(seen, strings.TrimPrefix(line, "event: "))
		}
	}
	if len(seen) != 2 ||
		seen[0] != events.TypeWorkflowTriggered ||
		seen[1] != events.TypeWorkflowComplete {
		t.Errorf("unexpected replayed events: %v", seen)
	}
}

func TestEventsSSE_LastEventIDSkipsReplayed(t *testing.T) {
	srv, _, _, hub := setupServer(t, "")

	for i := 1; i <= 3; i++ {
		hub.Publish(events.TypeWorkflowQueued, events.WorkflowQueued{ConnectionID: fmt.Sprintf("conn-%d", i)})
	}

	ts := httptest.NewServer(srv.setupRoutes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	req.Header.Set("Last-Event-ID", "2")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if !strings.Contains(data, "conn-3") {
		t.Errorf("expected only event 3 replayed, got %q", data)
	}
}
