package sweetsession

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPort is the localhost port the capture server binds. It is fixed for
// the life of a run so the bookmarklet and the extraction page agree on where
// to post.
const DefaultPort = 8765

const (
	// targetHost is the origin whose session is being captured.
	targetHost = "claude.ai"

	// tokenMarker is the prefix claude.ai session keys carry.
	tokenMarker = "sk-ant-"

	cookieSessionKey  = "sessionKey"
	cookieActiveOrg   = "lastActiveOrg"
	cookieCFClearance = "cf_clearance"
)

// Browser identifies a local cookie store family.
type Browser string

const (
	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserVivaldi is Vivaldi.
	BrowserVivaldi Browser = "vivaldi"
	// BrowserOpera is Opera.
	BrowserOpera Browser = "opera"
	// BrowserFirefox is Mozilla Firefox.
	BrowserFirefox Browser = "firefox"
	// BrowserSafari is Apple Safari (macOS only).
	BrowserSafari Browser = "safari"
)

// DefaultBrowsers returns the order in which AutoExtract tries local cookie
// stores.
func DefaultBrowsers() []Browser {
	return []Browser{
		BrowserChrome,
		BrowserChromium,
		BrowserBrave,
		BrowserEdge,
		BrowserVivaldi,
		BrowserOpera,
		BrowserFirefox,
		BrowserSafari,
	}
}

// Label returns the user-facing name for b.
func (b Browser) Label() string {
	switch b {
	case BrowserChrome:
		return "Chrome"
	case BrowserChromium:
		return "Chromium"
	case BrowserBrave:
		return "Brave"
	case BrowserEdge:
		return "Microsoft Edge"
	case BrowserVivaldi:
		return "Vivaldi"
	case BrowserOpera:
		return "Opera"
	case BrowserFirefox:
		return "Firefox"
	case BrowserSafari:
		return "Safari"
	default:
		return string(b)
	}
}

// ParseBrowser maps a user-supplied name to a known Browser.
func ParseBrowser(name string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(name)))
	switch b {
	case BrowserChrome, BrowserChromium, BrowserBrave, BrowserEdge,
		BrowserVivaldi, BrowserOpera, BrowserFirefox, BrowserSafari:
		return b, nil
	}
	return "", fmt.Errorf("sweetsession: unknown browser %q", name)
}

// Credentials is the record the capture run produces. SessionKey is the only
// required field; the rest travel along when a source had them.
type Credentials struct {
	SessionKey     string `json:"session_key"`
	OrganizationID string `json:"organization_id,omitempty"`
	CFClearance    string `json:"cf_clearance,omitempty"`
}

// Options configures a capture run. The zero value is usable: default port,
// default output path, default browser order, browser opened automatically.
type Options struct {
	// Port is the localhost port to bind. Zero means DefaultPort.
	Port int

	// Output is the credentials file path. Empty means DefaultOutputPath().
	Output string

	// Browsers is the cookie-store order for automatic extraction. Empty
	// means DefaultBrowsers().
	Browsers []Browser

	// NoOpen suppresses launching the user's browser at startup.
	NoOpen bool

	// MirrorKeyring additionally places the record in the OS keyring.
	MirrorKeyring bool

	// Out receives progress output. Nil means os.Stdout.
	Out io.Writer
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Output == "" {
		o.Output = DefaultOutputPath()
	}
	if len(o.Browsers) == 0 {
		o.Browsers = DefaultBrowsers()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	return o
}

// DefaultOutputPath returns the conventional credentials location,
// ~/.config/claude/credentials.json. The .config directory is used on every
// platform; existing consumers of the file expect it there.
func DefaultOutputPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(home, ".config", "claude", "credentials.json")
}
