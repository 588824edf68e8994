package instagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"instaapi/pkg/config"
	"instaapi/pkg/logger"
)

const (
	testUsername     = "jane"
	testPassword     = "s3cret"
	landingCSRFToken = "landing-token"
	loginCSRFToken   = "rotated-token"
	testSessionID    = "session-123"
)

// recordedRequest is what the fake server saw for one request
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func (r recordedRequest) form(t *testing.T) url.Values {
	t.Helper()
	values, err := url.ParseQuery(string(r.Body))
	require.NoError(t, err)
	return values
}

// fakeInstagram simulates the web endpoints a Session talks to. Handlers
// registered with handle take precedence over the built-in ones.
type fakeInstagram struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeInstagram(t *testing.T) *fakeInstagram {
	t.Helper()
	f := &fakeInstagram{handlers: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInstagram) URL() string {
	return f.server.URL + "/"
}

func (f *fakeInstagram) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// handleJSON answers path with a fixed status and body
func (f *fakeInstagram) handleJSON(path string, status int, body string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeInstagram) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeInstagram) RequestsTo(path string) []recordedRequest {
	var out []recordedRequest
	for _, r := range f.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeInstagram) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func (f *fakeInstagram) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if ok {
		h(w, r)
		return
	}

	switch r.URL.Path {
	case "/":
		f.landing(w, r)
	case "/" + LoginEndpoint:
		f.login(w, r)
	case "/" + LogoutEndpoint:
		f.logout(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}
}

func (f *fakeInstagram) landing(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: landingCSRFToken, Path: "/"})
	w.Header().Set("Content-Type", "text/html")
	_, _ = io.WriteString(w, "<html><body>Instagram</body></html>")
}

func (f *fakeInstagram) login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost || r.Header.Get("x-csrftoken") == "" {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"CSRF token missing or incorrect","status":"fail"}`)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword {
		_, _ = io.WriteString(w, `{"authenticated":false,"user":true,"status":"ok"}`)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: testSessionID, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: loginCSRFToken, Path: "/"})
	_, _ = io.WriteString(w, `{"authenticated":true,"user":true,"userId":"42","status":"ok"}`)
}

func (f *fakeInstagram) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Instagram.BaseURL = baseURL
	return cfg
}

func newTestSession(t *testing.T, f *fakeInstagram) (*Session, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	s, err := New(testConfig(f.URL()), log)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, log
}

// newLoggedInSession logs in and clears the recorded requests
func newLoggedInSession(t *testing.T, f *fakeInstagram) (*Session, *logger.TestLogger) {
	t.Helper()
	s, log := newTestSession(t, f)
	require.NoError(t, s.Login(context.Background(), testUsername, testPassword))
	f.Reset()
	log.Clear()
	return s, log
}

func edgeJSON(id, shortcode string) string {
	return fmt.Sprintf(`{"node":{"id":%q,"shortcode":%q,"display_url":"https://cdn.example/%s.jpg","is_video":false,"owner":{"id":"42"},"edge_liked_by":{"count":7},"edge_media_to_caption":{"edges":[{"node":{"text":"caption %s"}}]}}}`,
		id, shortcode, id, id)
}

func hashFeedJSON(edges ...string) string {
	return `{"data":{"hashtag":{"name":"love","edge_hashtag_to_media":{"count":2,"edges":[` +
		strings.Join(edges, ",") + `]}}},"status":"ok"}`
}
