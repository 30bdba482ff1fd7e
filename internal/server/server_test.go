package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zork-argento/gateway/internal/assistant"
	"github.com/zork-argento/gateway/internal/config"
	"github.com/zork-argento/gateway/internal/store"
	"github.com/zork-argento/gateway/internal/zork"
)

// scriptedAPI fakes the assistant: every run completes immediately and the
// newest message is a fixed reply.
type scriptedAPI struct {
	mu        sync.Mutex
	threadSeq int
	reply     string
}

func (f *scriptedAPI) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadSeq++
	return fmt.Sprintf("thread_%d", f.threadSeq), nil
}

func (f *scriptedAPI) DeleteThread(ctx context.Context, threadID string) error { return nil }

func (f *scriptedAPI) AddUserMessage(ctx context.Context, threadID string, text string) error {
	return nil
}

func (f *scriptedAPI) CreateRun(ctx context.Context, threadID string) (assistant.Run, error) {
	return assistant.Run{ID: "run_1", Status: assistant.RunStatusCompleted}, nil
}

func (f *scriptedAPI) GetRun(ctx context.Context, threadID string, runID string) (assistant.Run, error) {
	return assistant.Run{ID: runID, Status: assistant.RunStatusCompleted}, nil
}

func (f *scriptedAPI) ListMessages(ctx context.Context, threadID string, limit int, asc bool) ([]assistant.Message, error) {
	return []assistant.Message{
		{ID: "msg_1", Role: "assistant", Text: f.reply, CreatedAt: time.Now().Unix()},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "zork.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := zork.NewService(zork.ServiceOptions{
		Store:        st,
		API:          &scriptedAPI{reply: "Estás en un campo abierto."},
		PollInterval: time.Millisecond,
		WaitTimeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("zork.NewService: %v", err)
	}

	cfg := &config.Config{
		OpenAIAPIKey: "sk-test",
		AssistantID:  "asst_test",
		Environment:  "development",
	}

	s, err := New(Options{Config: cfg, Service: svc, Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, st
}

func doJSON(t *testing.T, h http.Handler, method string, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not json (%d): %s", rec.Code, rec.Body.String())
	}
	return rec, out
}

func TestServer_ChatHappyPath(t *testing.T) {
	t.Parallel()

	s, st := newTestServer(t)
	h := s.routes()

	rec, out := doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{
		"message":        "mirar alrededor",
		"conversationId": "conv_1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if out["success"] != true {
		t.Fatalf("success=%v", out["success"])
	}
	data, _ := out["data"].(map[string]any)
	if data["message"] != "Estás en un campo abierto." {
		t.Fatalf("data.message=%v", data["message"])
	}
	if data["conversationId"] != "conv_1" || data["threadId"] == "" {
		t.Fatalf("data=%v", data)
	}

	row, err := st.Get(context.Background(), "conv_1")
	if err != nil || row == nil {
		t.Fatalf("mapping not persisted: %v %v", row, err)
	}
}

func TestServer_ChatGeneratesConversationID(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec, out := doJSON(t, s.routes(), http.MethodPost, "/api/chat", map[string]any{
		"message": "hola",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	data, _ := out["data"].(map[string]any)
	id, _ := data["conversationId"].(string)
	if strings.TrimSpace(id) == "" {
		t.Fatalf("no conversation id generated: %v", data)
	}
}

func TestServer_ChatValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	h := s.routes()

	rec, out := doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: status=%d", rec.Code)
	}
	if out["success"] != false || out["error"] != "Mensaje requerido" {
		t.Fatalf("envelope=%v", out)
	}

	rec, out = doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{
		"message": strings.Repeat("a", 4001),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized message: status=%d", rec.Code)
	}
	if out["error"] != "Mensaje demasiado largo" {
		t.Fatalf("envelope=%v", out)
	}
}

func TestServer_DeleteContextAlwaysForbidden(t *testing.T) {
	t.Parallel()

	s, st := newTestServer(t)
	h := s.routes()

	if err := st.Save(context.Background(), "conv_1", "thread_1"); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	for _, id := range []string{"conv_1", "conv_unknown"} {
		rec, out := doJSON(t, h, http.MethodDelete, "/api/context/"+id, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("DELETE %s: status=%d, want 403", id, rec.Code)
		}
		if out["success"] != false {
			t.Fatalf("DELETE %s: envelope=%v", id, out)
		}
	}

	// The mapping survives the rejected delete.
	row, err := st.Get(context.Background(), "conv_1")
	if err != nil || row == nil {
		t.Fatalf("mapping gone after rejected delete: %v %v", row, err)
	}
}

func TestServer_ContextAndHistoryUnknown(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	h := s.routes()

	rec, _ := doJSON(t, h, http.MethodGet, "/api/context/conv_unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("context: status=%d, want 404", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/api/history/conv_unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("history: status=%d, want 404", rec.Code)
	}
}

func TestServer_ConversationsList(t *testing.T) {
	t.Parallel()

	s, st := newTestServer(t)
	if err := st.Save(context.Background(), "conv_1", "thread_1"); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	rec, out := doJSON(t, s.routes(), http.MethodGet, "/api/conversations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	data, _ := out["data"].(map[string]any)
	if data["count"] != float64(1) {
		t.Fatalf("count=%v", data["count"])
	}
}

func TestServer_HealthAndStatus(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	h := s.routes()

	rec, out := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || out["status"] != "OK" {
		t.Fatalf("health: status=%d body=%v", rec.Code, out)
	}

	rec, out = doJSON(t, h, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: status=%d", rec.Code)
	}
	data, _ := out["data"].(map[string]any)
	if data["configured"] != true {
		t.Fatalf("configured=%v", data["configured"])
	}
	if data["environment"] != "development" {
		t.Fatalf("environment=%v", data["environment"])
	}
}

func TestServer_UnknownRoute404(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec, out := doJSON(t, s.routes(), http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if out["error"] != "Endpoint no encontrado" {
		t.Fatalf("envelope=%v", out)
	}
}
