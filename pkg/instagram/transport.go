package instagram

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"

	"instaapi/pkg/config"
	"instaapi/pkg/logger"
)

func newCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// newTransport builds the round tripper under the resty client. Responses
// are decompressed here because upload requests advertise their own
// accept-encoding, which turns off net/http's transparent gzip.
func newTransport(cfg config.InstagramConfig) http.RoundTripper {
	var rt http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CloudflareBypass {
		rt = cloudflarebp.AddCloudFlareByPass(rt)
	}
	return &decompressingTransport{next: rt}
}

type decompressingTransport struct {
	next http.RoundTripper
}

func (t *decompressingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to decompress response: %w", err)
	}
	return resp, nil
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the pool
func (t *decompressingTransport) CloseIdleConnections() {
	type idleCloser interface{ CloseIdleConnections() }
	if c, ok := t.next.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// decompressResponse swaps resp.Body for a decoding reader. Unknown
// encodings pass through untouched.
func decompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var body *readCloser
	switch encoding {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		body = &readCloser{Reader: zr, closers: []io.Closer{zr, resp.Body}}
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("deflate: %w", err)
		}
		body = &readCloser{Reader: zr, closers: []io.Closer{zr, resp.Body}}
	case "br":
		body = &readCloser{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}
	default:
		return nil
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// restyLogger routes resty's own diagnostics into the session logger
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
