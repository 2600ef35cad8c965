package sweetsession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestWaitReturnsOnLatch(t *testing.T) {
	sess := NewSession()
	go func() {
		time.Sleep(50 * time.Millisecond)
		sess.MarkReceived("test submission")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Wait(ctx, sess); err != nil {
		t.Fatal(err)
	}
}

func TestWaitHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, NewSession()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestWaitLatchedSessionWinsOverCancel(t *testing.T) {
	sess := NewSession()
	sess.MarkReceived("already done")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, sess); err != nil {
		t.Fatalf("a latched session must return immediately, got %v", err)
	}
}

func TestOpenCommandPerOS(t *testing.T) {
	cases := []struct {
		goos string
		name string
	}{
		{"darwin", "open"},
		{"windows", "rundll32"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
	}
	for _, tc := range cases {
		name, args := openCommand(tc.goos, "http://localhost:8765")
		if name != tc.name {
			t.Fatalf("%s: want %q, got %q", tc.goos, tc.name, name)
		}
		if len(args) == 0 || args[len(args)-1] != "http://localhost:8765" {
			t.Fatalf("%s: url must be the last argument, got %v", tc.goos, args)
		}
	}
}

func TestOpenBrowserUsesLauncher(t *testing.T) {
	orig := execCommandContext
	defer func() { execCommandContext = orig }()

	var gotName string
	var gotArgs []string
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, os.Args[0], "-test.run=^$")
	}

	if err := OpenBrowser(context.Background(), "http://localhost:8765"); err != nil {
		t.Fatal(err)
	}

	wantName, _ := openCommand(runtime.GOOS, "http://localhost:8765")
	if gotName != wantName {
		t.Fatalf("want launcher %q, got %q", wantName, gotName)
	}
	if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "http://localhost:8765" {
		t.Fatalf("unexpected launcher args %v", gotArgs)
	}
}

func TestRunBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	err = Run(context.Background(), Options{
		Port:   port,
		Output: filepath.Join(t.TempDir(), "credentials.json"),
		NoOpen: true,
		Out:    io.Discard,
	})
	if err == nil {
		t.Fatal("want bind error on an occupied port")
	}
	if !strings.Contains(err.Error(), "bind port") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	port := freePort(t)
	out := filepath.Join(t.TempDir(), "credentials.json")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, Options{Port: port, Output: out, NoOpen: true, Out: &buf})
	}()

	// Submit as soon as the server answers.
	base := BaseURL(port)
	var resp *http.Response
	var err error
	for i := 0; i < 100; i++ {
		resp, err = http.Post(base+"/save-credentials", "application/json",
			strings.NewReader(`{"session_key":"sk-ant-e2e","organization_id":"org-e"}`))
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if err := <-errCh; err != nil {
		t.Fatal(err)
	}

	creds, err := (&Store{Path: out}).Read()
	if err != nil {
		t.Fatal(err)
	}
	if creds.SessionKey != "sk-ant-e2e" {
		t.Fatalf("unexpected stored key %q", creds.SessionKey)
	}
	if !strings.Contains(buf.String(), base) {
		t.Fatalf("banner must advertise %s, got:\n%s", base, buf.String())
	}
}

func TestRunCancelReleasesPort(t *testing.T) {
	port := freePort(t)
	out := filepath.Join(t.TempDir(), "credentials.json")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, Options{Port: port, Output: out, NoOpen: true, Out: io.Discard})
	}()

	// Cancel once the server answers.
	var err error
	for i := 0; i < 100; i++ {
		var resp *http.Response
		resp, err = http.Get(BaseURL(port) + "/")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("port %d must be free after a cancelled run: %v", port, err)
	}
	_ = ln.Close()

	if _, err := (&Store{Path: out}).Read(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("a cancelled run must not write credentials, got %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}
