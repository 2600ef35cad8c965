package sweetsession

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists captured credentials to a single JSON file.
type Store struct {
	// Path is the credentials file. Parent directories are created as needed.
	Path string

	// MirrorKeyring additionally places the record in the OS keyring.
	// Keyring trouble surfaces as a warning, not a write failure.
	MirrorKeyring bool
}

// Write validates, normalizes and persists one credential record. The record
// is staged in a temp file next to Path and renamed into place, so a reader
// sees either the previous file or the new one, never a torn hybrid.
func (st *Store) Write(creds Credentials) ([]string, error) {
	creds.SessionKey = strings.TrimSpace(creds.SessionKey)
	creds.OrganizationID = strings.TrimSpace(creds.OrganizationID)
	creds.CFClearance = strings.TrimSpace(creds.CFClearance)
	if creds.SessionKey == "" {
		return nil, ErrMissingCredentials
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sweetsession: encode credentials: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(st.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("sweetsession: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return nil, fmt.Errorf("sweetsession: stage credentials: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op once renamed

	// The file holds a live session key; owner-only, unconditionally.
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("sweetsession: chmod credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("sweetsession: write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("sweetsession: flush credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("sweetsession: close credentials: %w", err)
	}
	if err := os.Rename(tmpPath, st.Path); err != nil {
		return nil, fmt.Errorf("sweetsession: replace %s: %w", st.Path, err)
	}

	var warnings []string
	if st.MirrorKeyring {
		if err := keyringStore(data); err != nil {
			warnings = append(warnings, fmt.Sprintf("sweetsession: keyring mirror: %v", err))
		}
	}
	return warnings, nil
}

// Read loads the current record. A missing file surfaces as os.ErrNotExist.
func (st *Store) Read() (Credentials, error) {
	data, err := os.ReadFile(st.Path)
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("sweetsession: parse %s: %w", st.Path, err)
	}
	return creds, nil
}
