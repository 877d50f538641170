package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"leadbox/internal/config"
	"leadbox/internal/store"
	"leadbox/internal/trigger"
)

// recordingSpawner stands in for the detached spawner and records calls.
type recordingSpawner struct {
	mu    sync.Mutex
	specs []trigger.SpawnSpec
}

func (r *recordingSpawner) Spawn(spec trigger.SpawnSpec) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	return 1000 + len(r.specs), nil
}

func (r *recordingSpawner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.specs)
}

type testEnv struct {
	server  *Server
	router  http.Handler
	spawner *recordingSpawner
	store   *store.Store
	cfg     *config.Config
}

type testOption func(cfg *config.Config, withStore *bool, withScript *bool)

func withoutStore() testOption {
	return func(_ *config.Config, withStore *bool, _ *bool) { *withStore = false }
}

func withoutScript() testOption {
	return func(_ *config.Config, _ *bool, withScript *bool) { *withScript = false }
}

func withConfig(mutate func(cfg *config.Config)) testOption {
	return func(cfg *config.Config, _ *bool, _ *bool) { mutate(cfg) }
}

// setupTestServer creates a test server with a recording spawner and an
// in-memory store.
func setupTestServer(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Deploy.ProjectPath = t.TempDir()
	cfg.Deploy.ShellArgs = []string{"/bin/sh"}
	cfg.Deploy.Home = cfg.Deploy.ProjectPath
	cfg.Deploy.User = "deploy"
	cfg.Site.BaseURL = "https://wa.example.com"

	withStore, withScript := true, true
	for _, opt := range opts {
		opt(cfg, &withStore, &withScript)
	}

	if withScript {
		script := cfg.Deploy.ScriptPath()
		if err := os.MkdirAll(filepath.Dir(script), 0755); err != nil {
			t.Fatalf("Failed to create scripts dir: %v", err)
		}
		if err := os.WriteFile(script, []byte("#!/bin/sh\necho deploy\n"), 0755); err != nil {
			t.Fatalf("Failed to write deploy script: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var st *store.Store
	if withStore {
		var err error
		st, err = store.Open(store.MemoryPath)
		if err != nil {
			t.Fatalf("Failed to open store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
	}

	spawner := &recordingSpawner{}
	trig := trigger.New(cfg.Deploy, spawner, logger)
	srv := NewServer(cfg, st, trig, logger, "test", true)
	srv.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

	return &testEnv{
		server:  srv,
		router:  srv.Router(),
		spawner: spawner,
		store:   st,
		cfg:     cfg,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func pushRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-GitHub-Event", "push")
	return req
}

func TestWebhook_TargetBranchTriggers(t *testing.T) {
	env := setupTestServer(t)

	w, body := env.do(t, pushRequest(`{"ref":"refs/heads/main","after":"abc123","repository":{"full_name":"acme/site"}}`, "application/json"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if body["ok"] != true || body["message"] != "Deployment triggered" {
		t.Errorf("body = %v, want triggered response", body)
	}
	if body["branch"] != "main" {
		t.Errorf("branch = %v, want main", body["branch"])
	}
	if body["projectPath"] != env.cfg.Deploy.ProjectPath {
		t.Errorf("projectPath = %v, want %s", body["projectPath"], env.cfg.Deploy.ProjectPath)
	}
	if note, _ := body["note"].(string); !strings.Contains(note, env.cfg.Deploy.LogFilePath()) {
		t.Errorf("note = %q, should point at the deploy log", note)
	}
	if _, ok := body["unparsed"]; ok {
		t.Error("a parsed push should not be marked unparsed")
	}
	if n := env.spawner.count(); n != 1 {
		t.Errorf("spawn calls = %d, want 1", n)
	}

	latest, err := env.store.LatestDelivery(context.Background())
	if err != nil || latest == nil {
		t.Fatalf("LatestDelivery() = %v, %v", latest, err)
	}
	if latest.Outcome != store.OutcomeTriggered || latest.Repository != "acme/site" {
		t.Errorf("delivery = %+v, want triggered for acme/site", latest)
	}
	if latest.CommitHash == nil || *latest.CommitHash != "abc123" {
		t.Errorf("delivery commit = %v, want abc123", latest.CommitHash)
	}
	if latest.PID == nil || *latest.PID != 1001 {
		t.Errorf("delivery pid = %v, want 1001", latest.PID)
	}
}

func TestWebhook_FormEncodedPayload(t *testing.T) {
	env := setupTestServer(t)

	form := url.Values{"payload": {`{"ref":"refs/heads/main"}`}}.Encode()
	w, body := env.do(t, pushRequest(form, "application/x-www-form-urlencoded"))

	if w.Code != http.StatusOK || body["message"] != "Deployment triggered" {
		t.Fatalf("status = %d body = %v, want trigger", w.Code, body)
	}
	if n := env.spawner.count(); n != 1 {
		t.Errorf("spawn calls = %d, want 1", n)
	}
}

func TestWebhook_OtherBranchSkips(t *testing.T) {
	env := setupTestServer(t)

	w, body := env.do(t, pushRequest(`{"ref":"refs/heads/feature-x"}`, "application/json"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	if body["branch"] != "feature-x" || body["configuredBranch"] != "main" {
		t.Errorf("body = %v, want branch feature-x configuredBranch main", body)
	}
	if _, ok := body["projectPath"]; ok {
		t.Error("skip response should not carry projectPath")
	}
	if n := env.spawner.count(); n != 0 {
		t.Errorf("spawn calls = %d, want 0", n)
	}

	latest, _ := env.store.LatestDelivery(context.Background())
	if latest == nil || latest.Outcome != store.OutcomeSkipped || latest.Branch != "feature-x" {
		t.Errorf("delivery = %+v, want skipped feature-x", latest)
	}
}

func TestWebhook_ConfiguredBranch(t *testing.T) {
	env := setupTestServer(t, withConfig(func(cfg *config.Config) { cfg.Deploy.Branch = "production" }))

	_, body := env.do(t, pushRequest(`{"ref":"refs/heads/main"}`, "application/json"))
	if body["configuredBranch"] != "production" {
		t.Errorf("body = %v, want skip against production", body)
	}

	_, body = env.do(t, pushRequest(`{"ref":"refs/heads/production"}`, "application/json"))
	if body["branch"] != "production" || body["message"] != "Deployment triggered" {
		t.Errorf("body = %v, want trigger on production", body)
	}
	if n := env.spawner.count(); n != 1 {
		t.Errorf("spawn calls = %d, want 1", n)
	}
}

func TestWebhook_UnparseableBodyStillDeploys(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"broken json", `{"ref":`, "application/json"},
		{"form without payload", "foo=bar", "application/x-www-form-urlencoded"},
		{"plain text", "deploy please", "text/plain"},
		{"no content type", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)

			w, body := env.do(t, pushRequest(tt.body, tt.contentType))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if body["message"] != "Deployment triggered" || body["branch"] != "main" {
				t.Errorf("body = %v, want trigger on main", body)
			}
			if body["unparsed"] != true {
				t.Errorf("unparsed = %v, want true", body["unparsed"])
			}
			if n := env.spawner.count(); n != 1 {
				t.Errorf("spawn calls = %d, want 1", n)
			}

			latest, _ := env.store.LatestDelivery(context.Background())
			if latest == nil || !latest.Unparsed || latest.Outcome != store.OutcomeTriggered {
				t.Errorf("delivery = %+v, want unparsed triggered", latest)
			}
		})
	}
}

func TestWebhook_SequentialPushesSpawnIndependently(t *testing.T) {
	env := setupTestServer(t)
	payload := `{"ref":"refs/heads/main"}`

	for i := 0; i < 2; i++ {
		if w, _ := env.do(t, pushRequest(payload, "application/json")); w.Code != http.StatusOK {
			t.Fatalf("push %d status = %d", i, w.Code)
		}
	}

	env.spawner.mu.Lock()
	specs := append([]trigger.SpawnSpec(nil), env.spawner.specs...)
	env.spawner.mu.Unlock()

	if len(specs) != 2 {
		t.Fatalf("spawn calls = %d, want 2", len(specs))
	}
	first := specs[0].Args[len(specs[0].Args)-1]
	second := specs[1].Args[len(specs[1].Args)-1]
	if first == second {
		t.Errorf("both pushes used wrapper %s", first)
	}
	for _, wrapper := range []string{first, second} {
		if _, err := os.Stat(wrapper); err != nil {
			t.Errorf("wrapper %s missing: %v", wrapper, err)
		}
	}

	recent, _ := env.store.RecentDeliveries(context.Background(), 10)
	if len(recent) != 2 || *recent[0].InvocationID == *recent[1].InvocationID {
		t.Errorf("deliveries = %+v, want two distinct invocations", recent)
	}
}

func TestWebhook_ClientGoneStillTriggers(t *testing.T) {
	env := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := pushRequest(`{"ref":"refs/heads/main"}`, "application/json").WithContext(ctx)

	w := httptest.NewRecorder()
	env.server.HandleWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if n := env.spawner.count(); n != 1 {
		t.Errorf("spawn calls = %d, want 1 even though the request was cancelled", n)
	}

	latest, err := env.store.LatestDelivery(context.Background())
	if err != nil {
		t.Fatalf("LatestDelivery() error = %v", err)
	}
	if latest == nil || latest.Outcome != store.OutcomeTriggered {
		t.Errorf("latest delivery = %+v, want triggered", latest)
	}
}

func TestWebhook_MissingScriptStillAcknowledged(t *testing.T) {
	env := setupTestServer(t, withoutScript())

	w, body := env.do(t, pushRequest(`{"ref":"refs/heads/main"}`, "application/json"))

	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("status = %d body = %v, want 200 ok", w.Code, body)
	}
	if n := env.spawner.count(); n != 0 {
		t.Errorf("spawn calls = %d, want 0", n)
	}

	latest, _ := env.store.LatestDelivery(context.Background())
	if latest == nil || latest.Outcome != store.OutcomeFailed || latest.ErrorMessage == nil {
		t.Errorf("delivery = %+v, want failed with an error message", latest)
	}
}

func TestWebhook_WithoutStore(t *testing.T) {
	env := setupTestServer(t, withoutStore())

	w, body := env.do(t, pushRequest(`{"ref":"refs/heads/main"}`, "application/json"))
	if w.Code != http.StatusOK || body["message"] != "Deployment triggered" {
		t.Errorf("status = %d body = %v, want trigger without a store", w.Code, body)
	}
}

func TestWebhook_Signature(t *testing.T) {
	env := setupTestServer(t, withConfig(func(cfg *config.Config) { cfg.Webhook.Secret = testSecret }))
	payload := `{"ref":"refs/heads/main"}`

	t.Run("missing", func(t *testing.T) {
		w, _ := env.do(t, pushRequest(payload, "application/json"))
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("wrong", func(t *testing.T) {
		req := pushRequest(payload, "application/json")
		req.Header.Set(SignatureHeader, MakeTestSignature([]byte(payload), "not-the-secret"))
		w, _ := env.do(t, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	if n := env.spawner.count(); n != 0 {
		t.Errorf("spawn calls after rejected deliveries = %d, want 0", n)
	}

	t.Run("valid", func(t *testing.T) {
		req := pushRequest(payload, "application/json")
		req.Header.Set(SignatureHeader, MakeTestSignature([]byte(payload), testSecret))
		w, body := env.do(t, req)
		if w.Code != http.StatusOK || body["message"] != "Deployment triggered" {
			t.Errorf("status = %d body = %v, want trigger", w.Code, body)
		}
	})
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	env := setupTestServer(t)

	req := pushRequest(strings.Repeat("x", MaxPayloadBytes+1), "application/json")
	w, _ := env.do(t, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
	if n := env.spawner.count(); n != 0 {
		t.Errorf("spawn calls = %d, want 0", n)
	}
}

func TestWebhookCheck_NoSideEffects(t *testing.T) {
	env := setupTestServer(t)

	for i := 0; i < 2; i++ {
		w, body := env.do(t, httptest.NewRequest(http.MethodGet, "/webhook", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if body["ok"] != true || body["message"] != "Webhook endpoint active" {
			t.Errorf("body = %v", body)
		}
		if body["timestamp"] != "2026-10-15T12:00:00Z" {
			t.Errorf("timestamp = %v", body["timestamp"])
		}
	}

	if n := env.spawner.count(); n != 0 {
		t.Errorf("spawn calls = %d, want 0", n)
	}
	if recent, _ := env.store.RecentDeliveries(context.Background(), 10); len(recent) != 0 {
		t.Errorf("GET /webhook recorded %d deliveries", len(recent))
	}
	if _, err := os.Stat(env.cfg.Deploy.WrapperDirPath()); !os.IsNotExist(err) {
		t.Error("GET /webhook should not touch the wrapper directory")
	}
}

func TestWebhookCheck_ReportsTriggerProjectPath(t *testing.T) {
	env := setupTestServer(t)

	_, posted := env.do(t, pushRequest(`{"ref":"refs/heads/main"}`, "application/json"))
	_, checked := env.do(t, httptest.NewRequest(http.MethodGet, "/webhook", nil))

	if posted["projectPath"] == nil || posted["projectPath"] != checked["projectPath"] {
		t.Errorf("POST projectPath %v != GET projectPath %v", posted["projectPath"], checked["projectPath"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		opts     []testOption
		database string
	}{
		{"with store", nil, "ok"},
		{"without store", []testOption{withoutStore()}, "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, tt.opts...)
			w, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if body["status"] != "ok" || body["version"] != "test" || body["database"] != tt.database {
				t.Errorf("body = %v, want ok/test/%s", body, tt.database)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		env := setupTestServer(t, withoutStore())
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/status", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})

	t.Run("empty", func(t *testing.T) {
		env := setupTestServer(t)
		w, body := env.do(t, httptest.NewRequest(http.MethodGet, "/status", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if body["latest_delivery"] != nil {
			t.Errorf("latest_delivery = %v, want null", body["latest_delivery"])
		}
		if recent, ok := body["recent_deliveries"].([]interface{}); !ok || len(recent) != 0 {
			t.Errorf("recent_deliveries = %v, want []", body["recent_deliveries"])
		}
	})

	t.Run("after deliveries", func(t *testing.T) {
		env := setupTestServer(t)
		env.do(t, pushRequest(`{"ref":"refs/heads/dev"}`, "application/json"))
		env.do(t, pushRequest(`{"ref":"refs/heads/main"}`, "application/json"))

		_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/status", nil))
		latest, _ := body["latest_delivery"].(map[string]interface{})
		if latest["outcome"] != store.OutcomeTriggered {
			t.Errorf("latest_delivery = %v, want triggered", latest)
		}
		if recent, _ := body["recent_deliveries"].([]interface{}); len(recent) != 2 {
			t.Errorf("recent_deliveries has %d entries, want 2", len(recent))
		}
		if body["branch"] != "main" {
			t.Errorf("branch = %v, want main", body["branch"])
		}
	})
}
