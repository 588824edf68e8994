package instagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"instaapi/pkg/auth"
	"instaapi/pkg/config"
	errs "instaapi/pkg/errors"
	"instaapi/pkg/logger"
	"instaapi/pkg/ratelimit"
	"instaapi/pkg/retry"
)

var tracer = otel.Tracer("instaapi/instagram")

const (
	csrfCookie    = "csrftoken"
	sessionCookie = "sessionid"
	csrfHeader    = "x-csrftoken"
)

var csrfScriptRegex = regexp.MustCompile(`"csrf_token"\s*:\s*"([^"]+)"`)

// Session is an authenticated (or not yet authenticated) identity against
// the Instagram web API. It is not safe for concurrent use.
type Session struct {
	client   *resty.Client
	jar      *cookiejar.Jar
	baseURL  *url.URL
	cfg      config.InstagramConfig
	headers  map[string]string
	logger   logger.Logger
	limiter  ratelimit.Limiter
	retry    *retry.Policy
	resolver ShortcodeResolver

	userData *ReelOwner
	last     *Response
}

// New creates a logged out session. A nil cfg uses config.DefaultConfig and
// a nil log uses the global logger.
func New(cfg *config.Config, log logger.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "instagram")

	base, err := url.Parse(cfg.Instagram.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.Instagram.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	jar, err := newCookieJar()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTransport(newTransport(cfg.Instagram))
	client.SetTimeout(cfg.Instagram.Timeout)
	client.SetRedirectPolicy(noRedirectAfterPost())
	client.SetLogger(restyLogger{log: log})

	s := &Session{
		client:   client,
		jar:      jar,
		baseURL:  base,
		cfg:      cfg.Instagram,
		logger:   log,
		limiter:  ratelimit.New(cfg.RateLimit),
		retry:    retry.New(cfg.Retry, log),
		resolver: OfflineResolver,
	}
	s.headers = s.defaultHeaders()
	if cfg.Instagram.ShortcodeLookup == "network" {
		s.resolver = ResolverFunc(s.LookupShortcode)
	}

	log.DebugWithFields("session created", map[string]interface{}{
		"base_url":          base.String(),
		"rate_limited":      cfg.RateLimit.Enabled,
		"retry_attempts":    s.retry.Attempts(),
		"cloudflare_bypass": cfg.Instagram.CloudflareBypass,
	})
	return s, nil
}

func (s *Session) defaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "*/*",
		"Content-type":    "application/x-www-form-urlencoded; charset=UTF-8",
		"Accept-Language": "en-US",
		"referer":         s.baseURL.String(),
		"x-instagram-gis": "x_instagram_gis",
		"User-Agent":      s.cfg.UserAgent,
	}
}

// noRedirectAfterPost returns POST responses as they are, 3xx included.
// GET requests follow redirects as usual.
func noRedirectAfterPost() resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 && via[0].Method == http.MethodPost {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	})
}

// SetHeader sets a header sent with every request
func (s *Session) SetHeader(key, value string) {
	s.headers[key] = value
}

// SetHeaders sets multiple session headers at once
func (s *Session) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		s.headers[key] = value
	}
}

// Headers returns a copy of the session headers
func (s *Session) Headers() map[string]string {
	out := make(map[string]string, len(s.headers))
	for k, v := range s.headers {
		out[k] = v
	}
	return out
}

// SetShortcodeResolver replaces how shortcodes are turned into media ids
func (s *Session) SetShortcodeResolver(r ShortcodeResolver) {
	s.resolver = r
}

// CSRFToken returns the token currently sent as x-csrftoken
func (s *Session) CSRFToken() string {
	return s.headers[csrfHeader]
}

// UserData returns the owner object cached by the last GetUserInfoByID
func (s *Session) UserData() *ReelOwner {
	return s.userData
}

// LastResponse returns the response of the most recent request, failed
// ones included.
func (s *Session) LastResponse() *Response {
	return s.last
}

// IsLoggedIn reports whether the cookie jar holds a session cookie
func (s *Session) IsLoggedIn() bool {
	return s.cookie(sessionCookie) != ""
}

func (s *Session) cookie(name string) string {
	for _, c := range s.jar.Cookies(s.baseURL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *Session) requireLogin(op string) error {
	if s.IsLoggedIn() {
		return nil
	}
	return &errs.AuthenticationError{Op: op, Reason: "login required"}
}

// Login authenticates with username and password
func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if err := s.fetchInitialCSRFToken(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get csrf token")
		return err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := s.Send(ctx, Request{
		Endpoint: LoginEndpoint,
		Form:     form,
		Message:  "Login request sent",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return err
	}
	s.logger.DebugWithFields("login response", map[string]interface{}{
		"username": username,
		"body":     string(resp.Body),
	})

	if !gjson.ValidBytes(resp.Body) {
		err := &errs.DecodeError{Path: "authenticated", Err: errs.ErrInvalidJSON}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	result := gjson.ParseBytes(resp.Body)
	if !result.Get("authenticated").Bool() {
		reason := result.Get("message").String()
		if reason == "" {
			reason = "invalid username or password"
		}
		span.SetStatus(codes.Error, "not authenticated")
		return &errs.AuthenticationError{Op: "login", Reason: reason}
	}

	if !s.IsLoggedIn() {
		span.SetStatus(codes.Error, "no session cookie")
		return &errs.AuthenticationError{Op: "login", Reason: "server did not set a session cookie"}
	}

	s.logger.InfoWithFields("Logged in successfully", map[string]interface{}{"username": username})
	return nil
}

// fetchInitialCSRFToken visits the landing page so the server hands out a
// csrftoken cookie. Pages that only embed the token in inline script data
// are scanned as a fallback.
func (s *Session) fetchInitialCSRFToken(ctx context.Context) error {
	resp, err := s.Send(ctx, Request{Endpoint: LandingEndpoint, Message: "Visit was successful."})
	if err != nil {
		return err
	}

	token := s.cookie(csrfCookie)
	if token == "" {
		token = csrfFromPage(resp.Body)
	}
	if token == "" {
		return &errs.AuthenticationError{Op: "login", Reason: "landing page did not provide a csrf token"}
	}

	s.headers[csrfHeader] = token
	s.logger.DebugWithFields("initial csrf token acquired", map[string]interface{}{
		"from_cookie": s.cookie(csrfCookie) != "",
	})
	return nil
}

func csrfFromPage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var token string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if m := csrfScriptRegex.FindStringSubmatch(sel.Text()); len(m) == 2 {
			token = m[1]
			return false
		}
		return true
	})
	return token
}

// Logout ends the session server side and forgets every cookie. The
// logout endpoint answers with a redirect, which counts as success.
func (s *Session) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	form := url.Values{}
	if token := s.CSRFToken(); token != "" {
		form.Set("csrfmiddlewaretoken", token)
	}

	_, err := s.Send(ctx, Request{
		Endpoint: LogoutEndpoint,
		Form:     form,
		Post:     true,
		Message:  "Logged out successfully",
	})
	if err != nil {
		if status := errs.StatusCode(err); status < 300 || status >= 400 {
			span.RecordError(err)
			span.SetStatus(codes.Error, "logout failed")
			return err
		}
		s.logger.Info("Logged out successfully")
	}

	return s.reset()
}

func (s *Session) reset() error {
	jar, err := newCookieJar()
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s.jar = jar
	s.client.SetCookieJar(jar)
	s.headers = s.defaultHeaders()
	s.userData = nil
	return nil
}

// Close releases idle connections held by the session
func (s *Session) Close() {
	s.client.GetClient().CloseIdleConnections()
}

// Restore loads a previously exported session into the cookie jar
func (s *Session) Restore(account *auth.Account) error {
	if account == nil || account.SessionID == "" {
		return auth.ErrInvalidCredentials
	}

	cookies := []*http.Cookie{{Name: sessionCookie, Value: account.SessionID, Path: "/"}}
	if account.CSRFToken != "" {
		cookies = append(cookies, &http.Cookie{Name: csrfCookie, Value: account.CSRFToken, Path: "/"})
		s.headers[csrfHeader] = account.CSRFToken
	}
	for name, value := range account.Cookies {
		if name == sessionCookie || name == csrfCookie {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	s.jar.SetCookies(s.baseURL, cookies)

	if account.UserAgent != "" {
		s.headers["User-Agent"] = account.UserAgent
	}

	s.logger.InfoWithFields("session restored", map[string]interface{}{
		"username": account.Username,
	})
	return nil
}

// Export captures the logged in session so it can be stored and restored
func (s *Session) Export(username string) (*auth.Account, error) {
	if err := s.requireLogin("export"); err != nil {
		return nil, err
	}

	account := &auth.Account{
		Username:  username,
		UserAgent: s.headers["User-Agent"],
		Cookies:   map[string]string{},
	}
	for _, c := range s.jar.Cookies(s.baseURL) {
		switch c.Name {
		case sessionCookie:
			account.SessionID = c.Value
		case csrfCookie:
			account.CSRFToken = c.Value
		default:
			account.Cookies[c.Name] = c.Value
		}
	}
	if account.CSRFToken == "" {
		account.CSRFToken = s.CSRFToken()
	}
	return account, nil
}

// SessionStore is the part of auth.Manager that LoginWithStore needs
type SessionStore interface {
	Retrieve(username string) (*auth.Account, error)
	Store(account *auth.Account) error
}

// LoginWithStore restores a saved session for username when one exists,
// otherwise logs in with password and saves the new session.
func (s *Session) LoginWithStore(ctx context.Context, store SessionStore, username, password string) error {
	if account, err := store.Retrieve(username); err == nil && account != nil {
		if err := s.Restore(account); err == nil {
			return nil
		}
	}

	if err := s.Login(ctx, username, password); err != nil {
		return err
	}

	account, err := s.Export(username)
	if err != nil {
		return err
	}
	if err := store.Store(account); err != nil {
		s.logger.WithError(err).Warn("failed to save session")
	}
	return nil
}
