package sweetsession

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring identity of the mirrored record. Consumers read it back with the
// same service/account pair.
const (
	KeyringService = "sweetsession"
	KeyringAccount = "claude.ai"
)

func keyringStore(data []byte) error {
	return keyring.Set(KeyringService, KeyringAccount, string(data))
}

// KeyringCredentials loads the mirrored record from the OS keyring. Absence
// surfaces as keyring.ErrNotFound.
func KeyringCredentials() (Credentials, error) {
	raw, err := keyring.Get(KeyringService, KeyringAccount)
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("sweetsession: parse keyring record: %w", err)
	}
	return creds, nil
}
