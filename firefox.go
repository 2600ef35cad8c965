package sweetsession

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// firefoxCookieDBs resolves cookies.sqlite candidates from profiles.ini.
// Profiles flagged Default=1 sort first so the everyday profile wins.
func firefoxCookieDBs() []string {
	var defaults, rest []string
	for _, root := range firefoxRoots() {
		cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
		if err != nil {
			continue
		}

		for _, secName := range cfg.SectionStrings() {
			if !strings.HasPrefix(secName, "Profile") {
				continue
			}
			sec := cfg.Section(secName)
			pathStr := filepath.FromSlash(sec.Key("Path").String())
			if pathStr == "" {
				continue
			}
			if sec.Key("IsRelative").String() == "1" {
				pathStr = filepath.Join(root, pathStr)
			}

			dbPath := filepath.Join(pathStr, "cookies.sqlite")
			if sec.Key("Default").String() == "1" {
				defaults = append(defaults, dbPath)
			} else {
				rest = append(rest, dbPath)
			}
		}
	}
	return append(defaults, rest...)
}

// firefoxSessionCookies fetches the claude.ai cookies of interest, keeping
// the freshest row per name. Firefox stores values in plaintext.
func firefoxSessionCookies(ctx context.Context, db *sql.DB) (map[string]string, error) {
	const query = `SELECT name, value FROM moz_cookies ` +
		`WHERE host IN (?, ?) AND name IN (?, ?, ?) ORDER BY expiry DESC`

	rows, err := db.QueryContext(ctx, query,
		targetHost, "."+targetHost,
		cookieSessionKey, cookieActiveOrg, cookieCFClearance)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		if _, seen := out[name]; !seen && value != "" {
			out[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
