// Package sweetsession captures a claude.ai browser session into a local
// credentials file.
//
// It runs a short-lived localhost server whose extraction page captures the
// session one of three ways (web-storage scan, cookie scan, manual paste),
// can read the cookie stores of locally installed browsers directly, and
// writes the result as an owner-only JSON file for other tools to consume.
//
// This is intended for local tooling (CLI helpers, dev scripts, desktop
// integrations). It reads local browser state, may trigger keyring prompts,
// and should not be used in server contexts.
package sweetsession
