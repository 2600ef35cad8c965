//go:build !darwin || ios

package sweetsession

import "context"

func safariCookieFiles() []string { return nil }

func safariSessionCookies(context.Context, string) (map[string]string, error) {
	return nil, nil
}
