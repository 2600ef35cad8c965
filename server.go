package sweetsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// maxSubmissionBytes caps how much request body the submission routes read.
const maxSubmissionBytes = 1 << 20

// Server is the localhost capture endpoint for one session.
type Server struct {
	store   *Store
	session *Session
	port    int

	// autoExtract is swappable in tests.
	autoExtract func(ctx context.Context) (*ExtractResult, error)

	httpSrv *http.Server
}

// NewServer wires a capture server over st and sess. Browser order and port
// come from opts; zero values fall back to the defaults.
func NewServer(st *Store, sess *Session, opts Options) *Server {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	browsers := opts.Browsers
	s := &Server{
		store:   st,
		session: sess,
		port:    port,
	}
	s.autoExtract = func(ctx context.Context) (*ExtractResult, error) {
		return AutoExtract(ctx, browsers)
	}
	return s
}

// BaseURL is the advertised root of this capture server.
func (s *Server) BaseURL() string { return BaseURL(s.port) }

// BaseURL returns the capture server root for a port. The localhost name is
// used rather than 127.0.0.1 so browsers treat posts from https pages as
// potentially-trustworthy mixed content.
func BaseURL(port int) string { return fmt.Sprintf("http://localhost:%d", port) }

// Start binds the loopback port and serves in the background. A bind failure
// (typically another capture already running) is fatal for the run.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("sweetsession: bind port %d: %w", s.port, err)
	}
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("capture server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the listener, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the route table. Split out so tests can drive it without a
// listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/save-credentials", s.handleSaveCredentials)
	mux.HandleFunc("/auto-extract", s.handleAutoExtract)
	return recovered(mux)
}

// envelope is the JSON body every submission route answers with. Business
// failures ride success=false over HTTP 200, so the page script only ever
// branches on one field.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(e)
}

// corsHeaders marks a response callable from any origin. The page is served
// from localhost but the bookmarklet posts from https://claude.ai.
func corsHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// recovered converts handler panics into the failure envelope so one bad
// request cannot take down the capture run.
func recovered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", v)
				writeEnvelope(w, envelope{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w.Header())
	switch {
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Path == "/":
		page, err := extractionPage(s.BaseURL())
		if err != nil {
			http.Error(w, "render extraction page: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w.Header())
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes))
	if err != nil {
		s.fail(w, "read request body: "+err.Error())
		return
	}

	creds, err := parseSubmission(body)
	if err != nil {
		s.fail(w, submissionErrorText(err))
		return
	}

	warnings, err := s.store.Write(creds)
	s.logWarnings(warnings)
	if err != nil {
		s.fail(w, submissionErrorText(err))
		return
	}

	s.session.MarkReceived(submissionNote(r))
	writeEnvelope(w, envelope{Success: true})
}

func (s *Server) handleAutoExtract(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w.Header())
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.NotFound(w, r)
		return
	}

	res, err := s.autoExtract(r.Context())
	if err != nil {
		s.fail(w, err.Error())
		return
	}

	warnings, err := s.store.Write(res.Credentials)
	s.logWarnings(warnings)
	if err != nil {
		s.fail(w, submissionErrorText(err))
		return
	}

	s.session.MarkReceived("captured from " + res.Browser.Label() + " cookie store")
	writeEnvelope(w, envelope{
		Success: true,
		Message: "Captured claude.ai session from " + res.Browser.Label() + ".",
	})
}

// fail records the attempt and answers with the failure envelope. The session
// stays unlatched so the run keeps waiting for a good submission.
func (s *Server) fail(w http.ResponseWriter, msg string) {
	s.session.MarkFailed(msg)
	writeEnvelope(w, envelope{Error: msg})
}

func (s *Server) logWarnings(warnings []string) {
	for _, warning := range warnings {
		slog.Debug("store warning", "warning", warning)
	}
}

// parseSubmission decodes a submission body. Two shapes are accepted: the
// rich form the extraction page sends and the bare {"token": ...} form older
// bookmarklets used. All fields are trimmed.
func parseSubmission(body []byte) (Credentials, error) {
	if !gjson.ValidBytes(body) {
		return Credentials{}, errors.New("invalid JSON body")
	}
	creds := Credentials{
		SessionKey:     strings.TrimSpace(gjson.GetBytes(body, "session_key").String()),
		OrganizationID: strings.TrimSpace(gjson.GetBytes(body, "organization_id").String()),
		CFClearance:    strings.TrimSpace(gjson.GetBytes(body, "cf_clearance").String()),
	}
	if creds.SessionKey == "" {
		creds.SessionKey = strings.TrimSpace(gjson.GetBytes(body, "token").String())
	}
	if creds.SessionKey == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

func submissionErrorText(err error) string {
	if errors.Is(err, ErrMissingCredentials) {
		return "Missing credentials"
	}
	return err.Error()
}

// submissionNote distinguishes the two clients of the submission route by
// origin: the served page posts from localhost, the bookmarklet from the
// target site itself.
func submissionNote(r *http.Request) string {
	if strings.Contains(r.Header.Get("Origin"), targetHost) {
		return "captured via bookmarklet on " + targetHost
	}
	return "captured via extraction page"
}
