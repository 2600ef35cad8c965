package sweetsession

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

// extractorCoreJS is the strategy toolkit shared by the extraction page and
// the bookmarklet: a web-storage scan, an on-origin cookie scan, token
// cleanup, and the POST helper. Placeholders are bound by bindScript so the
// browser-side names stay in lockstep with the Go constants.
const extractorCoreJS = `
var BASE = '__BASE__';
var TARGET = '__HOST__';
var MARKER = '__MARKER__';

function postCredentials(creds, done, fail) {
  fetch(BASE + '/save-credentials', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(creds)
  }).then(function (resp) { return resp.json(); })
    .then(function (data) {
      if (data.success) { done(); } else { fail(data.error || 'save rejected'); }
    })
    .catch(function () { fail('capture server unreachable - is sweetsession still running?'); });
}

function onTargetHost() {
  var host = location.hostname;
  return host === TARGET || host.endsWith('.' + TARGET);
}

function cleanToken(raw) {
  return raw.trim().replace(/^Bearer\s+/i, '');
}

function scanStorages() {
  var stores = [window.localStorage, window.sessionStorage];
  for (var s = 0; s < stores.length; s++) {
    var store = stores[s];
    for (var i = 0; i < store.length; i++) {
      var raw = store.getItem(store.key(i));
      if (!raw) { continue; }
      if (raw.indexOf(MARKER) !== -1) { return { session_key: raw }; }
      try {
        var parsed = JSON.parse(raw);
        var token = parsed.accessToken || parsed.access_token || parsed['__COOKIE_KEY__'];
        if (token) { return { session_key: cleanToken(String(token)) }; }
      } catch (err) { /* not JSON */ }
    }
  }
  return null;
}

function scanCookies() {
  if (!onTargetHost()) { return null; }
  var creds = {};
  var pairs = document.cookie.split(';');
  for (var i = 0; i < pairs.length; i++) {
    var pair = pairs[i].trim();
    var eq = pair.indexOf('=');
    if (eq < 1) { continue; }
    var name = pair.slice(0, eq);
    var value = pair.slice(eq + 1);
    try { value = decodeURIComponent(value); } catch (err) { /* keep raw */ }
    if (name === '__COOKIE_KEY__') { creds.session_key = value; }
    else if (name === '__COOKIE_ORG__') { creds.organization_id = value; }
    else if (name === '__COOKIE_CF__') { creds.cf_clearance = value; }
  }
  return creds.session_key ? creds : null;
}
`

// pageOnlyJS wires the strategies into the served page: scan on load, the
// auto-extract button, and the manual form.
const pageOnlyJS = `
function updateStatus(text, kind) {
  var el = document.getElementById('status');
  el.textContent = text;
  el.className = 'status ' + kind;
}

function extractFromThisPage() {
  var found = scanStorages() || scanCookies();
  if (!found) {
    updateStatus('Nothing on this page holds a session. Use the reader below, the bookmarklet on ' + TARGET + ', or paste a key.', 'info');
    return;
  }
  updateStatus('Session found - saving...', 'loading');
  postCredentials(found, function () {
    updateStatus('Session captured. You can close this tab.', 'success');
  }, function (msg) { updateStatus(msg, 'error'); });
}

function runAutoExtract() {
  updateStatus('Reading local browser cookie stores...', 'loading');
  fetch(BASE + '/auto-extract', { method: 'POST' })
    .then(function (resp) { return resp.json(); })
    .then(function (data) {
      if (data.success) { updateStatus(data.message || 'Session captured. You can close this tab.', 'success'); }
      else { updateStatus(data.error || 'automatic extraction failed', 'error'); }
    })
    .catch(function () { updateStatus('capture server unreachable - is sweetsession still running?', 'error'); });
}

function saveManualEntry() {
  var key = cleanToken(document.getElementById('session-key').value);
  if (!key) { updateStatus('Paste a session key first.', 'error'); return; }
  var creds = { session_key: key };
  var org = document.getElementById('org-id').value.trim();
  if (org) { creds.organization_id = org; }
  postCredentials(creds, function () {
    updateStatus('Session saved. You can close this tab.', 'success');
  }, function (msg) { updateStatus(msg, 'error'); });
}

document.getElementById('auto-extract').addEventListener('click', runAutoExtract);
document.getElementById('save-manual').addEventListener('click', saveManualEntry);
window.setTimeout(extractFromThisPage, 300);
`

// bookmarkletOnlyJS runs the strategy chain on whatever page the bookmark is
// clicked on, falling back to a prompt.
const bookmarkletOnlyJS = `
var found = scanStorages() || scanCookies();
if (!found) {
  var raw = window.prompt('Paste your ' + TARGET + ' session key (' + MARKER + '...):', '');
  if (raw === null) { return; }
  var key = cleanToken(raw);
  if (!key) { return; }
  found = { session_key: key };
}
postCredentials(found, function () {
  window.alert('sweetsession: session captured.');
}, function (msg) {
  window.alert('sweetsession: ' + msg);
});
`

func bindScript(js, baseURL string) string {
	return strings.NewReplacer(
		"__BASE__", baseURL,
		"__HOST__", targetHost,
		"__MARKER__", tokenMarker,
		"__COOKIE_KEY__", cookieSessionKey,
		"__COOKIE_ORG__", cookieActiveOrg,
		"__COOKIE_CF__", cookieCFClearance,
	).Replace(js)
}

func pageScript(baseURL string) string {
	return bindScript(extractorCoreJS+pageOnlyJS, baseURL)
}

// BookmarkletURL returns a javascript: URL that captures a claude.ai session
// from inside the signed-in browser and posts it to the capture server at
// baseURL. Drag it to the bookmarks bar and click it on claude.ai.
func BookmarkletURL(baseURL string) string {
	script := "(function () {" + bindScript(extractorCoreJS+bookmarkletOnlyJS, baseURL) + "})();"
	return "javascript:" + url.PathEscape(script)
}

var pageTemplate = template.Must(template.New("extraction").Parse(pageHTML))

type pageData struct {
	BaseURL     string
	Target      string
	Marker      string
	Bookmarklet template.URL
	Script      template.JS
}

// extractionPage renders the capture page served at GET /.
func extractionPage(baseURL string) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		BaseURL:     baseURL,
		Target:      targetHost,
		Marker:      tokenMarker,
		Bookmarklet: template.URL(BookmarkletURL(baseURL)), //nolint:gosec // built from constants, not user input
		Script:      template.JS(pageScript(baseURL)),      //nolint:gosec // built from constants, not user input
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sweetsession</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #1a1a2e; color: #eee; display: flex; justify-content: center; padding: 40px 16px; }
  main { max-width: 560px; width: 100%; }
  h1 { font-size: 1.5em; margin: 0 0 4px; }
  h2 { font-size: 1.05em; margin: 0 0 8px; }
  p.sub { color: #99a; margin-top: 0; }
  section { background: #22243a; border-radius: 10px; padding: 18px 20px; margin: 14px 0; }
  .status { border-radius: 8px; padding: 12px 14px; margin: 16px 0; background: #22243a; }
  .status.loading { background: #1e3a5f; }
  .status.success { background: #1e4d2b; }
  .status.error { background: #5f1e1e; }
  .status.info { background: #3a3a1e; }
  button { background: #4a7dff; color: #fff; border: 0; border-radius: 8px;
           padding: 10px 16px; font-size: 1em; cursor: pointer; }
  button:hover { background: #3a6aee; }
  input { width: 100%; box-sizing: border-box; background: #161828; color: #eee;
          border: 1px solid #333652; border-radius: 8px; padding: 10px 12px; margin: 6px 0 10px; }
  a { color: #8ab4ff; }
  a.bookmarklet { display: inline-block; background: #333652; border-radius: 8px;
                  padding: 10px 16px; text-decoration: none; }
  code { background: #161828; border-radius: 4px; padding: 1px 5px; }
</style>
</head>
<body>
<main>
  <h1>&#128272; sweetsession</h1>
  <p class="sub">Capture your {{.Target}} session into a local credentials file.</p>
  <div id="status" class="status loading">Scanning this page&hellip;</div>

  <section>
    <h2>1 &middot; Automatic</h2>
    <p>Read the session straight from your browser profiles on disk.</p>
    <button id="auto-extract" type="button">Read browser cookies</button>
  </section>

  <section>
    <h2>2 &middot; Bookmarklet</h2>
    <p>Drag the link to your bookmarks bar, open
       <a href="https://{{.Target}}" target="_blank" rel="noreferrer">{{.Target}}</a>
       while signed in, then click the bookmark.</p>
    <p><a class="bookmarklet" href="{{.Bookmarklet}}">Capture Claude session</a></p>
  </section>

  <section>
    <h2>3 &middot; Manual</h2>
    <p>Paste the <code>sessionKey</code> cookie value (starts with <code>{{.Marker}}</code>).</p>
    <input id="session-key" type="password" placeholder="{{.Marker}}sid01-..." autocomplete="off">
    <input id="org-id" type="text" placeholder="organization ID (optional)" autocomplete="off">
    <button id="save-manual" type="button">Save session key</button>
  </section>

  <p class="sub">Server: <code>{{.BaseURL}}</code> &middot; one capture and it exits.</p>
</main>
<script>{{.Script}}</script>
</body>
</html>
`
