package debugserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
)

func newTestServer(t *testing.T) (*Server, *overlay.Controller) {
	t.Helper()
	reg := prometheus.NewRegistry()
	ctrl := overlay.NewController(overlay.DefaultConfig(),
		overlay.WithClock(clockwork.NewFakeClock()),
		overlay.WithMetrics(overlay.NewMetrics(reg)),
		overlay.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { ctrl.Close() })

	plugins := []*overlay.Descriptor{
		{ID: "audit", Name: "Audit", BuiltIn: true, Init: func(_ context.Context, s *overlay.Surface, _ *event.Channel) error {
			s.SetLines("all clear")
			return nil
		}},
		{ID: "clock", Name: "Clock"},
	}
	if err := ctrl.Initialize(plugins); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := ctrl.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll() error = %v", err)
	}
	return New(ctrl, WithGatherer(reg), WithLogger(zaptest.NewLogger(t))), ctrl
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestState(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /state status = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap struct {
		Hidden  bool `json:"hidden"`
		Plugins []struct {
			ID     string   `json:"id"`
			Status string   `json:"status"`
			Lines  []string `json:"lines"`
		} `json:"plugins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !snap.Hidden {
		t.Error("hidden = false, want true for a fresh controller")
	}
	if len(snap.Plugins) != 2 {
		t.Fatalf("len(plugins) = %d, want 2", len(snap.Plugins))
	}
	if snap.Plugins[0].Status != "ready" {
		t.Errorf("status = %q, want ready", snap.Plugins[0].Status)
	}
	if len(snap.Plugins[0].Lines) != 1 || snap.Plugins[0].Lines[0] != "all clear" {
		t.Errorf("lines = %v, want [all clear]", snap.Plugins[0].Lines)
	}
}

func TestPlugin(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/plugins/clock")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /plugins/clock status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Clock"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/plugins/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /plugins/nope status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestToggle(t *testing.T) {
	s, ctrl := newTestServer(t)

	tests := []struct {
		target     string
		wantStatus int
		wantActive bool
	}{
		{"/plugins/clock/toggle", http.StatusOK, true},
		{"/plugins/clock/toggle?state=true", http.StatusOK, true},
		{"/plugins/clock/toggle?state=false", http.StatusOK, false},
		{"/plugins/clock/toggle?state=maybe", http.StatusBadRequest, false},
		{"/plugins/nope/toggle", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("POST %s status = %d, want %d: %s", tt.target, rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp ToggleResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if resp.Active != tt.wantActive {
				t.Errorf("active = %v, want %v", resp.Active, tt.wantActive)
			}
			st, _ := ctrl.Plugin("clock")
			if st.Active() != tt.wantActive {
				t.Errorf("controller active = %v, want %v", st.Active(), tt.wantActive)
			}
		})
	}
}

func TestToggleAfterClose(t *testing.T) {
	s, ctrl := newTestServer(t)
	ctrl.Close()

	rec := do(t, s, http.MethodPost, "/plugins/clock/toggle")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/plugins/clock/toggle")

	rec := do(t, s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`devbar_plugin_inits_total{result="ready"} 2`,
		`devbar_plugin_toggles_total{direction="on"} 1`,
		"devbar_active_plugins 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServeGracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, ln)
	}()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, body %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
