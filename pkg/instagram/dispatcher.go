package instagram

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errs "instaapi/pkg/errors"
	"instaapi/pkg/logger"
)

// Request describes one call to an endpoint. It is sent as a GET unless
// it carries a Form, a Body, or Post is set.
type Request struct {
	Endpoint string
	Query    url.Values
	Form     url.Values
	Body     []byte
	Post     bool
	// Headers override session headers for this request only
	Headers map[string]string
	// Message is logged at info level on success
	Message string
}

func (r Request) method() string {
	if r.Post || r.Form != nil || r.Body != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Response is the snapshot of a completed exchange
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Raw        *http.Response
}

// Send dispatches req through the rate limiter and retry policy. Non-2xx
// responses come back as *errors.TransportError and are still recorded as
// the last response.
func (s *Session) Send(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := s.retry.Do(ctx, func() error {
		waitStart := time.Now()
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if waited := time.Since(waitStart); waited > time.Millisecond {
			logger.LogRateLimit(s.logger, req.Endpoint, waited)
		}

		var err error
		resp, err = s.send(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Session) endpointURL(endpoint string) string {
	return s.baseURL.ResolveReference(&url.URL{Path: endpoint}).String()
}

func (s *Session) send(ctx context.Context, req Request) (*Response, error) {
	method := req.method()
	target := s.endpointURL(req.Endpoint)
	requestID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "http "+method, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("instagram.endpoint", req.Endpoint),
		attribute.String("request_id", requestID),
	))
	defer span.End()

	r := s.client.R().
		SetContext(ctx).
		SetHeaders(s.headers).
		SetHeaders(req.Headers)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	switch {
	case req.Body != nil:
		r.SetBody(req.Body)
	case req.Form != nil:
		r.SetBody([]byte(req.Form.Encode()))
	}

	start := time.Now()
	res, err := r.Execute(method, target)
	duration := time.Since(start)
	fields := map[string]interface{}{
		"request_id": requestID,
		"endpoint":   req.Endpoint,
	}

	if err != nil {
		fields["error"] = err.Error()
		logger.LogRequest(s.logger, method, target, 0, duration, fields)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &errs.TransportError{Method: method, URL: target, Err: err}
	}

	s.rotateCSRF(res.RawResponse)
	out := &Response{
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
		Header:     res.Header(),
		Raw:        res.RawResponse,
	}
	s.last = out

	span.SetAttributes(attribute.Int("http.status_code", out.StatusCode))
	logger.LogRequest(s.logger, method, target, out.StatusCode, duration, fields)

	if !res.IsSuccess() {
		terr := &errs.TransportError{
			Method:     method,
			URL:        target,
			StatusCode: out.StatusCode,
			Body:       out.Body,
		}
		span.SetStatus(codes.Error, terr.Error())
		return nil, terr
	}

	if req.Message != "" {
		s.logger.InfoWithFields(req.Message, fields)
	}
	return out, nil
}

// rotateCSRF follows csrftoken cookie updates into the x-csrftoken header
func (s *Session) rotateCSRF(resp *http.Response) {
	if resp == nil {
		return
	}
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookie && c.Value != "" && c.MaxAge >= 0 {
			s.headers[csrfHeader] = c.Value
		}
	}
}
