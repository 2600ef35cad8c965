package sweetsession

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestAutoExtractChromePlaintext(t *testing.T) {
	home := t.TempDir()
	pointBrowserHome(t, home)

	writeChromiumCookieDB(t, chromeCookiesPath(home), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-sid01-abc"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-123"},
		{host: ".claude.ai", name: "cf_clearance", value: "cf-xyz"},
		{host: ".example.com", name: "sessionKey", value: "sk-other-site"},
	})

	res, err := AutoExtract(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Browser != BrowserChrome {
		t.Fatalf("want chrome, got %q (warnings=%v)", res.Browser, res.Warnings)
	}
	if res.Credentials.SessionKey != "sk-ant-sid01-abc" {
		t.Fatalf("unexpected session key %q", res.Credentials.SessionKey)
	}
	if res.Credentials.OrganizationID != "org-123" {
		t.Fatalf("unexpected organization %q", res.Credentials.OrganizationID)
	}
	if res.Credentials.CFClearance != "cf-xyz" {
		t.Fatalf("unexpected cf_clearance %q", res.Credentials.CFClearance)
	}
}

func TestAutoExtractEncryptedStoreStopsWalk(t *testing.T) {
	home := t.TempDir()
	pointBrowserHome(t, home)

	writeChromiumCookieDB(t, chromeCookiesPath(home), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", encrypted: []byte("v10\xde\xad\xbe\xef")},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-123"},
	})

	_, err := AutoExtract(context.Background(), nil)
	var encErr *EncryptedCookieError
	if !errors.As(err, &encErr) {
		t.Fatalf("want EncryptedCookieError, got %v", err)
	}
	if encErr.Browser != BrowserChrome {
		t.Fatalf("want chrome in the error, got %q", encErr.Browser)
	}
}

func TestAutoExtractNothingFound(t *testing.T) {
	pointBrowserHome(t, t.TempDir())

	if _, err := AutoExtract(context.Background(), nil); !errors.Is(err, ErrNoSessionCookie) {
		t.Fatalf("want ErrNoSessionCookie, got %v", err)
	}
}

func TestAutoExtractSkipsIncompleteStore(t *testing.T) {
	// Chrome has a session key but no organization; Firefox has the full
	// set. The walk must move past Chrome and land on Firefox.
	home := t.TempDir()
	pointBrowserHome(t, home)

	writeChromiumCookieDB(t, chromeCookiesPath(home), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-chrome-only"},
	})
	writeFirefoxProfile(t, firefoxRoot(home), []firefoxTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-ff"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-ff"},
	})

	res, err := AutoExtract(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Browser != BrowserFirefox {
		t.Fatalf("want firefox, got %q (warnings=%v)", res.Browser, res.Warnings)
	}
	if res.Credentials.SessionKey != "sk-ant-ff" {
		t.Fatalf("unexpected session key %q", res.Credentials.SessionKey)
	}
}

func TestAutoExtractHonorsBrowserOrder(t *testing.T) {
	home := t.TempDir()
	pointBrowserHome(t, home)

	writeChromiumCookieDB(t, chromeCookiesPath(home), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-chrome"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-c"},
	})
	writeFirefoxProfile(t, firefoxRoot(home), []firefoxTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-ff"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-f"},
	})

	res, err := AutoExtract(context.Background(), []Browser{BrowserFirefox, BrowserChrome})
	if err != nil {
		t.Fatal(err)
	}
	if res.Browser != BrowserFirefox {
		t.Fatalf("caller order must win, got %q", res.Browser)
	}
}

func TestAutoExtractHonorsCancel(t *testing.T) {
	pointBrowserHome(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AutoExtract(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestAutoExtractChromiumProfileFromLocalState(t *testing.T) {
	home := t.TempDir()
	pointBrowserHome(t, home)

	root := chromeUserDataRoot(home)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	localState := `{"profile":{"info_cache":{"Profile 1":{"name":"Work"}}}}`
	if err := os.WriteFile(filepath.Join(root, "Local State"), []byte(localState), 0o644); err != nil {
		t.Fatal(err)
	}
	// Nothing under Default; the store sits in the newer Network subdir of a
	// secondary profile.
	writeChromiumCookieDB(t, filepath.Join(root, "Profile 1", "Network", "Cookies"), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-work"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-work"},
	})

	res, err := AutoExtract(context.Background(), []Browser{BrowserChrome})
	if err != nil {
		t.Fatal(err)
	}
	if res.Credentials.SessionKey != "sk-ant-work" {
		t.Fatalf("unexpected session key %q", res.Credentials.SessionKey)
	}
}

func TestAutoExtractLeavesNoScratchBehind(t *testing.T) {
	home := t.TempDir()
	pointBrowserHome(t, home)
	writeChromiumCookieDB(t, chromeCookiesPath(home), []chromiumTestCookie{
		{host: ".claude.ai", name: "sessionKey", value: "sk-ant-abc"},
		{host: ".claude.ai", name: "lastActiveOrg", value: "org-1"},
	})

	scratch := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("TMP", scratch)
		t.Setenv("TEMP", scratch)
	} else {
		t.Setenv("TMPDIR", scratch)
	}

	if _, err := AutoExtract(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("snapshot scratch leaked: %v", names)
	}
}

func TestEncryptedCookieErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("auto extract: %w", &EncryptedCookieError{Browser: BrowserBrave})
	var encErr *EncryptedCookieError
	if !errors.As(err, &encErr) {
		t.Fatal("errors.As must find EncryptedCookieError through wrapping")
	}
	if !strings.Contains(err.Error(), "Brave") || !strings.Contains(err.Error(), "bookmarklet") {
		t.Fatalf("message should steer to the bookmarklet, got %q", err.Error())
	}
}
