package instagram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	errs "instaapi/pkg/errors"
	"instaapi/pkg/logger"
)

func TestSendMethodSelection(t *testing.T) {
	f := newFakeInstagram(t)
	s, _ := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Send(ctx, Request{Endpoint: "a/", Query: url.Values{"x": {"1"}}})
	require.NoError(t, err)
	_, err = s.Send(ctx, Request{Endpoint: "b/", Post: true})
	require.NoError(t, err)
	_, err = s.Send(ctx, Request{Endpoint: "c/", Form: url.Values{"k": {"v"}}})
	require.NoError(t, err)
	_, err = s.Send(ctx, Request{Endpoint: "d/", Body: []byte("raw")})
	require.NoError(t, err)

	reqs := f.Requests()
	require.Len(t, reqs, 4)

	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "1", reqs[0].Query.Get("x"))

	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Empty(t, reqs[1].Body)

	assert.Equal(t, http.MethodPost, reqs[2].Method)
	assert.Equal(t, "k=v", string(reqs[2].Body))

	assert.Equal(t, http.MethodPost, reqs[3].Method)
	assert.Equal(t, "raw", string(reqs[3].Body))
}

func TestSendNon2xx(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newFakeInstagram(t)
			body := `{"message":"` + http.StatusText(status) + `","status":"fail"}`
			f.handleJSON("/web/likes/1/like/", status, body)
			s, log := newTestSession(t, f)

			resp, err := s.Send(context.Background(), Request{Endpoint: LikePath("1"), Post: true, Message: "Liked!"})
			assert.Nil(t, resp)

			var transportErr *errs.TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, status, transportErr.StatusCode)
			assert.Equal(t, body, string(transportErr.Body))
			assert.Equal(t, http.MethodPost, transportErr.Method)
			assert.Equal(t, errs.TypeForStatus(status), errs.TypeOf(err))

			last := s.LastResponse()
			require.NotNil(t, last)
			assert.Equal(t, status, last.StatusCode)
			assert.Equal(t, body, string(last.Body))

			assert.False(t, log.Contains("Liked!"))
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	f := newFakeInstagram(t)
	s, _ := newTestSession(t, f)
	f.server.Close()

	_, err := s.Send(context.Background(), Request{Endpoint: "anything/"})
	var transportErr *errs.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 0, transportErr.StatusCode)
	assert.Error(t, transportErr.Err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
	assert.Nil(t, s.LastResponse())
}

func TestSendLogsMessageOnSuccess(t *testing.T) {
	f := newFakeInstagram(t)
	s, log := newTestSession(t, f)

	resp, err := s.Send(context.Background(), Request{Endpoint: "ok/", Message: "all good"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, resp, s.LastResponse())

	msg, ok := log.Find("all good")
	require.True(t, ok)
	assert.Equal(t, "INFO", msg.Level)
	assert.Equal(t, "ok/", msg.Fields["endpoint"])
	assert.NotEmpty(t, msg.Fields["request_id"])
}

func TestSendHeaderOverridesArePerRequest(t *testing.T) {
	f := newFakeInstagram(t)
	s, _ := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Send(ctx, Request{Endpoint: "one/", Headers: map[string]string{
		"User-Agent": "custom-agent",
		"x-extra":    "1",
	}})
	require.NoError(t, err)
	_, err = s.Send(ctx, Request{Endpoint: "two/"})
	require.NoError(t, err)

	reqs := f.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "custom-agent", reqs[0].Header.Get("User-Agent"))
	assert.Equal(t, "1", reqs[0].Header.Get("x-extra"))

	assert.Equal(t, s.cfg.UserAgent, reqs[1].Header.Get("User-Agent"))
	assert.Empty(t, reqs[1].Header.Get("x-extra"))
	assert.NotContains(t, s.Headers(), "x-extra")
}

func TestSendRedirects(t *testing.T) {
	f := newFakeInstagram(t)
	f.handle("/old/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusFound)
	})
	s, _ := newTestSession(t, f)
	ctx := context.Background()

	resp, err := s.Send(ctx, Request{Endpoint: "old/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, f.RequestsTo("/new/"), 1)

	f.Reset()
	_, err = s.Send(ctx, Request{Endpoint: "old/", Post: true})
	var transportErr *errs.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusFound, transportErr.StatusCode)
	assert.Empty(t, f.RequestsTo("/new/"))
}

func TestSendRotatesCSRFToken(t *testing.T) {
	f := newFakeInstagram(t)
	f.handle("/rotate/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "fresh", Path: "/"})
		_, _ = io.WriteString(w, `{}`)
	})
	s, _ := newLoggedInSession(t, f)
	require.Equal(t, loginCSRFToken, s.CSRFToken())

	_, err := s.Send(context.Background(), Request{Endpoint: "rotate/"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.CSRFToken())

	_, err = s.Send(context.Background(), Request{Endpoint: "after/"})
	require.NoError(t, err)
	after := f.RequestsTo("/after/")
	require.Len(t, after, 1)
	assert.Equal(t, "fresh", after[0].Header.Get("x-csrftoken"))
}

func TestSendRetries(t *testing.T) {
	f := newFakeInstagram(t)
	var calls int32
	f.handle("/flaky/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	cfg := testConfig(f.URL())
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	log := logger.NewTestLogger()
	s, err := New(cfg, log)
	require.NoError(t, err)

	resp, err := s.Send(context.Background(), Request{Endpoint: "flaky/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, log.MessagesAt("WARN"), 2)
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	f := newFakeInstagram(t)
	f.handleJSON("/bad/", http.StatusBadRequest, `{}`)

	cfg := testConfig(f.URL())
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Millisecond
	s, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), Request{Endpoint: "bad/"})
	require.Error(t, err)
	assert.Len(t, f.RequestsTo("/bad/"), 1)
}

func TestSendRateLimited(t *testing.T) {
	f := newFakeInstagram(t)
	cfg := testConfig(f.URL())
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Algorithm = "sliding_window"
	cfg.RateLimit.RequestsPerMinute = 1
	s, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), Request{Endpoint: "first/"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Send(ctx, Request{Endpoint: "second/"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, f.RequestsTo("/second/"))
}

func TestSendRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	f := newFakeInstagram(t)
	f.handleJSON("/missing/", http.StatusNotFound, `{}`)
	s, _ := newTestSession(t, f)

	_, err := s.Send(context.Background(), Request{Endpoint: "missing/"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "http GET", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
}
