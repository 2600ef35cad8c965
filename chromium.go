package sweetsession

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

type chromiumCookieRow struct {
	name           string
	value          string
	encryptedValue []byte
	expiresUTC     int64
}

// chromiumCookieDBs lists candidate cookie databases for b, primary profile
// first. Newer Chromium keeps the store under Network/, older builds at the
// profile root; both are probed.
func chromiumCookieDBs(b Browser) []string {
	var out []string
	for _, root := range chromiumUserDataDirs(b) {
		for _, prof := range chromiumProfileDirs(root) {
			out = append(out,
				filepath.Join(root, prof, "Network", "Cookies"),
				filepath.Join(root, prof, "Cookies"),
			)
		}
	}
	return out
}

// chromiumProfileDirs reads profile.info_cache out of Local State. Default is
// always probed first, whether or not the file mentions it.
func chromiumProfileDirs(userDataDir string) []string {
	dirs := []string{"Default"}
	raw, err := os.ReadFile(filepath.Join(userDataDir, "Local State"))
	if err != nil {
		return dirs
	}
	gjson.GetBytes(raw, "profile.info_cache").ForEach(func(key, _ gjson.Result) bool {
		if dir := key.String(); dir != "" && dir != "Default" {
			dirs = append(dirs, dir)
		}
		return true
	})
	return dirs
}

// chromiumSessionCookies fetches the claude.ai cookies of interest, keeping
// the freshest row per name.
func chromiumSessionCookies(ctx context.Context, db *sql.DB) (map[string]chromiumCookieRow, error) {
	const query = `SELECT name, value, encrypted_value, expires_utc FROM cookies ` +
		`WHERE host_key IN (?, ?) AND name IN (?, ?, ?) ORDER BY expires_utc DESC`

	rows, err := db.QueryContext(ctx, query,
		targetHost, "."+targetHost,
		cookieSessionKey, cookieActiveOrg, cookieCFClearance)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]chromiumCookieRow)
	for rows.Next() {
		var r chromiumCookieRow
		var encrypted []byte
		var expires sql.NullInt64

		if err := rows.Scan(&r.name, &r.value, &encrypted, &expires); err != nil {
			return nil, err
		}
		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		if _, seen := out[r.name]; !seen {
			out[r.name] = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// credentialsFromChromium interprets fetched rows. Encryption is detected,
// never undone: a sessionKey that exists only as ciphertext is a hard stop
// for the automatic path.
func credentialsFromChromium(b Browser, rows map[string]chromiumCookieRow) (*Credentials, error) {
	row, ok := rows[cookieSessionKey]
	if !ok {
		return nil, nil
	}

	key := row.value
	if key == "" && len(row.encryptedValue) > 0 {
		if chromiumValueEncrypted(row.encryptedValue) {
			return nil, &EncryptedCookieError{Browser: b}
		}
		// Old profiles stored plaintext in encrypted_value, without prefix.
		if decoded, ok := chromiumDecodeCookieValue(row.encryptedValue); ok {
			key = decoded
		}
	}
	if key == "" {
		return nil, nil
	}

	org := chromiumPlainValue(rows, cookieActiveOrg)
	if org == "" {
		return nil, nil
	}

	return &Credentials{
		SessionKey:     key,
		OrganizationID: org,
		CFClearance:    chromiumPlainValue(rows, cookieCFClearance),
	}, nil
}

func chromiumPlainValue(rows map[string]chromiumCookieRow, name string) string {
	row, ok := rows[name]
	if !ok {
		return ""
	}
	if row.value != "" {
		return row.value
	}
	if len(row.encryptedValue) > 0 && !chromiumValueEncrypted(row.encryptedValue) {
		if decoded, ok := chromiumDecodeCookieValue(row.encryptedValue); ok {
			return decoded
		}
	}
	return ""
}

// dpapiBlobPrefix is the header Windows DPAPI puts on protected blobs
// (0x01000000D08C9DDF0115D1118C7A00C04FC297EB).
var dpapiBlobPrefix = [...]byte{
	1, 0, 0, 0, 208, 140, 157, 223, 1, 21, 209, 17, 140, 122, 0, 192, 79, 194, 151, 235,
}

// chromiumValueEncrypted reports whether an encrypted_value is actually
// ciphertext: either a v## version prefix (v10/v11 AES, v20 app-bound) or a
// raw DPAPI blob.
func chromiumValueEncrypted(b []byte) bool {
	return hasChromiumVersionPrefix(b) || bytes.HasPrefix(b, dpapiBlobPrefix[:])
}

func hasChromiumVersionPrefix(b []byte) bool {
	if len(b) < 3 {
		return false
	}
	if b[0] != 'v' {
		return false
	}
	return isDigit(b[1]) && isDigit(b[2])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func chromiumDecodeCookieValue(b []byte) (string, bool) {
	b = stripLeadingControlBytes(b)
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func stripLeadingControlBytes(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] < 0x20 {
		i++
	}
	return bytes.Clone(b[i:])
}
