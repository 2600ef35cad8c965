package sweetsession

import (
	"context"
	"fmt"
	"log/slog"
)

// ExtractResult is a successful automatic extraction.
type ExtractResult struct {
	// Credentials holds the plaintext session values that were found.
	Credentials Credentials
	// Browser is the store family the values came from.
	Browser Browser
	// Warnings collects non-fatal trouble met along the way.
	Warnings []string
}

// AutoExtract walks browsers in order and reads a claude.ai session straight
// from the first cookie store that holds one in plaintext. Stores that are
// absent, unreadable or missing the session cookies are skipped with a
// warning. An encrypted sessionKey stops the walk with EncryptedCookieError;
// exhausting the list returns ErrNoSessionCookie.
//
// AutoExtract only reads. Persisting the result is the caller's business.
func AutoExtract(ctx context.Context, browsers []Browser) (*ExtractResult, error) {
	if len(browsers) == 0 {
		browsers = DefaultBrowsers()
	}

	var warnings []string
	for _, b := range browsers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		creds, w, err := readBrowserSession(ctx, b)
		for _, warning := range w {
			slog.Debug("cookie store skipped", "browser", b, "reason", warning)
		}
		warnings = append(warnings, w...)
		if err != nil {
			return nil, err
		}
		if creds != nil {
			return &ExtractResult{Credentials: *creds, Browser: b, Warnings: warnings}, nil
		}
	}
	return nil, ErrNoSessionCookie
}

// readBrowserSession reads the claude.ai session cookies from one browser's
// first existing cookie store. nil credentials with nil error means this
// browser has nothing usable and the walk should move on; the only hard error
// is EncryptedCookieError.
func readBrowserSession(ctx context.Context, b Browser) (*Credentials, []string, error) {
	var dbPath string
	switch b {
	case BrowserFirefox:
		dbPath = firstExisting(firefoxCookieDBs())
	case BrowserSafari:
		dbPath = firstExisting(safariCookieFiles())
	case BrowserChrome, BrowserChromium, BrowserBrave, BrowserEdge, BrowserVivaldi, BrowserOpera:
		dbPath = firstExisting(chromiumCookieDBs(b))
	default:
		return nil, []string{fmt.Sprintf("sweetsession: unknown browser %q", b)}, nil
	}
	if dbPath == "" {
		return nil, nil, nil
	}

	snap, cleanup, err := snapshotCookieDB(dbPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("sweetsession: %s: %v", b.Label(), err)}, nil
	}
	defer cleanup()

	// Safari's store is a binary file, not SQLite.
	if b == BrowserSafari {
		rows, err := safariSessionCookies(ctx, snap)
		if err != nil {
			return nil, []string{fmt.Sprintf("sweetsession: read %s cookies: %v", b.Label(), err)}, nil
		}
		return credentialsFromPlainRows(rows), nil, nil
	}

	db, err := openCookieDB(ctx, snap)
	if err != nil {
		return nil, []string{fmt.Sprintf("sweetsession: open %s cookie store: %v", b.Label(), err)}, nil
	}
	defer func() { _ = db.Close() }()

	if b == BrowserFirefox {
		rows, err := firefoxSessionCookies(ctx, db)
		if err != nil {
			return nil, []string{fmt.Sprintf("sweetsession: read %s cookies: %v", b.Label(), err)}, nil
		}
		return credentialsFromPlainRows(rows), nil, nil
	}

	rows, err := chromiumSessionCookies(ctx, db)
	if err != nil {
		return nil, []string{fmt.Sprintf("sweetsession: read %s cookies: %v", b.Label(), err)}, nil
	}
	creds, err := credentialsFromChromium(b, rows)
	return creds, nil, err
}

// credentialsFromPlainRows assembles credentials from a plaintext store
// (Firefox, Safari). Both the session key and the organization are required;
// cf_clearance travels along when present.
func credentialsFromPlainRows(rows map[string]string) *Credentials {
	key := rows[cookieSessionKey]
	org := rows[cookieActiveOrg]
	if key == "" || org == "" {
		return nil
	}
	return &Credentials{
		SessionKey:     key,
		OrganizationID: org,
		CFClearance:    rows[cookieCFClearance],
	}
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return ""
}
