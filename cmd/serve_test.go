package cmd

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/playout/internal/session"
)

const serveConfig = `
[pacing]
target_queue_length = 2
report_interval = "1s"

[[sessions]]
id = "cam0"
format = "bgra8"
width = 1280
height = 720
fps = 50.0
progressive = true
`

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestAppServesSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playout.toml")
	if err := os.WriteFile(path, []byte(serveConfig), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	addr := freeAddr(t)
	app := NewApp(ServeSettings{ConfigPath: path, Addr: addr, MetricsSSE: true})
	if err := app.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- app.Serve() }()

	var resp *http.Response
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/api/sessions/cam0")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		SessionID         string `json:"session_id"`
		TargetQueueLength int    `json:"target_queue_length"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.SessionID != "cam0" || body.TargetQueueLength != 2 {
		t.Errorf("session = %+v", body)
	}

	if err := app.Stop(); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}

	// Second Stop is a no-op
	if err := app.Stop(); err != nil {
		t.Errorf("second Stop() = %v, want nil", err)
	}
}

func TestAppMissingConfig(t *testing.T) {
	app := NewApp(ServeSettings{ConfigPath: filepath.Join(t.TempDir(), "absent.toml")})
	if err := app.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer app.Stop()

	if n := len(app.pipeline.Registry.List()); n != 0 {
		t.Errorf("sessions = %d, want 0", n)
	}
}

func TestAppInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playout.toml")
	if err := os.WriteFile(path, []byte("[pacing]\ntarget_queue_length = 9\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	app := NewApp(ServeSettings{ConfigPath: path})
	if err := app.Setup(context.Background()); err == nil {
		app.Stop()
		t.Fatal("Setup should fail for an invalid config")
	}
}

func TestAppServeBeforeSetup(t *testing.T) {
	if err := NewApp(ServeSettings{}).Serve(); err == nil {
		t.Error("Serve before Setup should fail")
	}
}

func TestStatusLine(t *testing.T) {
	stats := []session.Stats{
		{ID: "cam0", State: session.StatePlaying},
		{ID: "cam1", State: session.StatePlaying},
		{ID: "cam2", State: session.StateFailed},
	}
	want := "3 sessions: 2 playing, 0 buffering, 1 failed"
	if got := statusLine(stats); got != want {
		t.Errorf("statusLine() = %q, want %q", got, want)
	}
}

func TestAppEmbeddedNATS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playout.toml")
	if err := os.WriteFile(path, []byte(serveConfig), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Port -1 lets the embedded server pick a free port
	app := NewApp(ServeSettings{ConfigPath: path, NATSEnabled: true, NATSPort: -1})
	if err := app.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer app.Stop()

	if app.bridge == nil || !app.bridge.IsConnected() {
		t.Fatal("NATS bridge should be connected to the embedded server")
	}
	n, err := app.pipeline.SetTargetQueueLength(4)
	if err != nil || n != 1 {
		t.Errorf("SetTargetQueueLength(4) = %d, %v", n, err)
	}
}
