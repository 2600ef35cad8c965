package sweetsession

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTestSQLite opens (creating if needed) an SQLite database for fixtures.
func openTestSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// pointBrowserHome redirects every per-user browser root under dir for the
// duration of the test, so fixture cookie stores are the only ones visible.
func pointBrowserHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("APPDATA", filepath.Join(dir, "AppData", "Roaming"))
	t.Setenv("LOCALAPPDATA", filepath.Join(dir, "AppData", "Local"))
}

// chromeUserDataRoot returns where Chrome keeps its user data under the
// redirected home, matching the per-OS lookup tables.
func chromeUserDataRoot(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data")
	default:
		return filepath.Join(home, ".config", "google-chrome")
	}
}

func chromeCookiesPath(home string) string {
	return filepath.Join(chromeUserDataRoot(home), "Default", "Cookies")
}

func firefoxRoot(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

type chromiumTestCookie struct {
	host      string
	name      string
	value     string
	encrypted []byte
}

func writeChromiumCookieDB(t *testing.T, path string, cookies []chromiumTestCookie) {
	t.Helper()
	db := openTestSQLite(t, path)
	if _, err := db.Exec(`CREATE TABLE cookies(host_key TEXT, name TEXT, path TEXT, value TEXT, encrypted_value BLOB, expires_utc INTEGER, is_secure INTEGER, is_httponly INTEGER, samesite INTEGER)`); err != nil {
		t.Fatal(err)
	}
	expires := timeToChromiumExpiresUTC(time.Now().Add(24 * time.Hour))
	for _, c := range cookies {
		if _, err := db.Exec(
			`INSERT INTO cookies(host_key, name, path, value, encrypted_value, expires_utc, is_secure, is_httponly, samesite) VALUES(?,?,?,?,?,?,?,?,?)`,
			c.host, c.name, "/", c.value, c.encrypted, expires, 1, 1, 0,
		); err != nil {
			t.Fatal(err)
		}
	}
}

// timeToChromiumExpiresUTC converts to Chromium's epoch (1601-01-01, microseconds).
func timeToChromiumExpiresUTC(t time.Time) int64 {
	const unixEpochDiffMicros = int64(11644473600000000)
	return t.UnixMicro() + unixEpochDiffMicros
}

type firefoxTestCookie struct {
	host  string
	name  string
	value string
}

// writeFirefoxProfile lays down a profiles.ini plus one profile with a
// cookies.sqlite holding the given rows.
func writeFirefoxProfile(t *testing.T, root string, cookies []firefoxTestCookie) {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	ini := []byte("[Profile0]\nName=default\nIsRelative=1\nPath=Profiles/abcd.default-release\nDefault=1\n\n")
	if err := os.WriteFile(filepath.Join(root, "profiles.ini"), ini, 0o644); err != nil {
		t.Fatal(err)
	}

	db := openTestSQLite(t, filepath.Join(root, "Profiles", "abcd.default-release", "cookies.sqlite"))
	if _, err := db.Exec(`CREATE TABLE moz_cookies(host TEXT, name TEXT, value TEXT, path TEXT, expiry INTEGER, isSecure INTEGER, isHttpOnly INTEGER, sameSite INTEGER)`); err != nil {
		t.Fatal(err)
	}
	expiry := time.Now().Add(24 * time.Hour).Unix()
	for _, c := range cookies {
		if _, err := db.Exec(
			`INSERT INTO moz_cookies(host, name, value, path, expiry, isSecure, isHttpOnly, sameSite) VALUES(?,?,?,?,?,?,?,?)`,
			c.host, c.name, c.value, "/", expiry, 1, 1, 0,
		); err != nil {
			t.Fatal(err)
		}
	}
}
