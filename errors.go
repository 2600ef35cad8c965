package sweetsession

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials rejects a submission or write with no usable session
// key. The capture server reports it to the page as "Missing credentials".
var ErrMissingCredentials = errors.New("sweetsession: missing credentials")

// ErrNoSessionCookie means every browser store was tried and none held a
// plaintext claude.ai session.
var ErrNoSessionCookie = errors.New("sweetsession: no claude.ai session cookie found in local browsers")

// EncryptedCookieError means a claude.ai session cookie exists but only as
// ciphertext. The automatic reader stops there rather than reaching for OS
// key material; the bookmarklet path still works because the browser itself
// decrypts its own cookies.
type EncryptedCookieError struct {
	Browser Browser
}

func (e *EncryptedCookieError) Error() string {
	label := e.Browser.Label()
	return fmt.Sprintf("sweetsession: %s keeps its cookies encrypted; open claude.ai in %s and use the bookmarklet instead", label, label)
}
