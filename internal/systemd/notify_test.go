package systemd

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func listenNotify(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("ListenUnixgram failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func readMessage(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 256)
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return string(buf[:n])
}

func TestNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := NewNotifier(nil)
	if n.Ready() {
		t.Error("Ready() = true without NOTIFY_SOCKET")
	}
}

func TestNotifierMessages(t *testing.T) {
	conn := listenNotify(t)
	n := NewNotifier(nil)

	tests := []struct {
		send func() bool
		want string
	}{
		{n.Ready, "READY=1"},
		{func() bool { return n.Status("2 playing") }, "STATUS=2 playing"},
		{n.Stopping, "STOPPING=1"},
	}
	for _, tt := range tests {
		if !tt.send() {
			t.Fatalf("%s not sent", tt.want)
		}
		if got := readMessage(t, conn); got != tt.want {
			t.Errorf("message = %q, want %q", got, tt.want)
		}
	}
}

func TestRunWatchdog(t *testing.T) {
	conn := listenNotify(t)
	n := NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.runWatchdog(ctx, 10*time.Millisecond, func() string { return "ok" })
		close(done)
	}()

	if got := readMessage(t, conn); got != "WATCHDOG=1" {
		t.Errorf("first beat = %q, want WATCHDOG=1", got)
	}
	if got := readMessage(t, conn); !strings.HasPrefix(got, "STATUS=ok") {
		t.Errorf("status = %q, want STATUS=ok", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop")
	}
}

func TestRunWatchdogDisabled(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	done := make(chan struct{})
	go func() {
		NewNotifier(nil).RunWatchdog(context.Background(), nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWatchdog should return when the watchdog is disabled")
	}
}
