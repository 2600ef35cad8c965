package sweetsession

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"github.com/fatih/color"
)

// pollInterval is how often Run rechecks the capture latch while waiting.
const pollInterval = 500 * time.Millisecond

var execCommandContext = exec.CommandContext

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	dimColor  = color.New(color.Faint).SprintFunc()
)

// OpenBrowser opens url with the platform's default-browser helper. Failure
// leaves the run usable; the caller prints the URL for manual navigation.
func OpenBrowser(ctx context.Context, url string) error {
	name, args := openCommand(runtime.GOOS, url)
	cmd := execCommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("sweetsession: %s: %w", name, err)
	}
	// Reap the helper; it exits as soon as the browser takes over.
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos string, url string) (name string, args []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// Wait blocks until sess latches or ctx is cancelled. The latch is polled;
// half a second of slack is nothing against a human-in-the-loop flow.
func Wait(ctx context.Context, sess *Session) error {
	if sess.Received() {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if sess.Received() {
				return nil
			}
		}
	}
}

// Run drives one capture end to end: start the server, open the extraction
// page, wait for a submission, shut down. Cancel ctx (Ctrl-C) to abort.
func Run(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	st := &Store{Path: opts.Output, MirrorKeyring: opts.MirrorKeyring}
	sess := NewSession()
	srv := NewServer(st, sess, opts)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	banner(opts.Out, srv.BaseURL(), opts.Output)

	if !opts.NoOpen {
		if err := OpenBrowser(ctx, srv.BaseURL()); err != nil {
			fmt.Fprintln(opts.Out, warnColor("could not open a browser automatically; visit the URL above"))
		}
	}

	if err := Wait(ctx, sess); err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "%s %s (%s)\n", okColor("✅ credentials saved:"), opts.Output, sess.Outcome())
	return nil
}

func banner(out io.Writer, baseURL, output string) {
	fmt.Fprintf(out, "%s\n", okColor("\U0001F510 sweetsession"))
	fmt.Fprintf(out, "\U0001F4E1 listening on %s\n", baseURL)
	fmt.Fprintf(out, "   credentials will be written to %s\n", output)
	fmt.Fprintln(out, dimColor("   finish the capture in your browser; press Ctrl-C to cancel"))
}
