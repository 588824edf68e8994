package instagram

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/tidwall/gjson"

	errs "instaapi/pkg/errors"
)

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ErrEmptyMediaRef is returned for a zero MediaRef
var ErrEmptyMediaRef = errors.New("media reference is empty")

// MediaRef identifies a post either by numeric media id or by shortcode
type MediaRef struct {
	id        string
	shortcode string
}

// MediaID refers to a post by its numeric id
func MediaID(id string) MediaRef {
	return MediaRef{id: id}
}

// Shortcode refers to a post by the code in its URL (instagram.com/p/<code>/)
func Shortcode(code string) MediaRef {
	return MediaRef{shortcode: code}
}

// ParseMediaRef treats an all-digit string as a media id, anything else as
// a shortcode.
func ParseMediaRef(s string) MediaRef {
	s = strings.TrimSpace(s)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return MediaID(s)
	}
	return Shortcode(s)
}

// IsShortcode reports whether the reference still needs resolving
func (m MediaRef) IsShortcode() bool {
	return m.id == "" && m.shortcode != ""
}

func (m MediaRef) String() string {
	if m.id != "" {
		return m.id
	}
	return m.shortcode
}

// ShortcodeResolver turns a shortcode into a numeric media id
type ShortcodeResolver interface {
	ResolveShortcode(ctx context.Context, shortcode string) (string, error)
}

// ResolverFunc adapts a function to ShortcodeResolver
type ResolverFunc func(ctx context.Context, shortcode string) (string, error)

func (f ResolverFunc) ResolveShortcode(ctx context.Context, shortcode string) (string, error) {
	return f(ctx, shortcode)
}

// OfflineResolver decodes shortcodes locally with DecodeShortcode
var OfflineResolver ShortcodeResolver = ResolverFunc(func(_ context.Context, shortcode string) (string, error) {
	return DecodeShortcode(shortcode)
})

// DecodeShortcode reads a shortcode as a base-64 number over Instagram's
// URL alphabet. The result is the media id.
func DecodeShortcode(shortcode string) (string, error) {
	if shortcode == "" {
		return "", ErrEmptyMediaRef
	}

	id := new(big.Int)
	base := big.NewInt(64)
	for _, c := range shortcode {
		idx := strings.IndexRune(shortcodeAlphabet, c)
		if idx < 0 {
			return "", fmt.Errorf("invalid character %q in shortcode %q", c, shortcode)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(idx)))
	}
	return id.String(), nil
}

// LookupShortcode asks the server for the media id behind a shortcode. It
// can be installed with SetShortcodeResolver(ResolverFunc(s.LookupShortcode)).
func (s *Session) LookupShortcode(ctx context.Context, shortcode string) (string, error) {
	resp, err := s.Send(ctx, Request{
		Endpoint: ShortcodePath(shortcode),
		Query:    JSONQuery(),
		Message:  "Shortcode resolved",
	})
	if err != nil {
		return "", err
	}

	const path = "graphql.shortcode_media.id"
	if !gjson.ValidBytes(resp.Body) {
		return "", &errs.DecodeError{Path: path, Err: errs.ErrInvalidJSON}
	}
	id := gjson.GetBytes(resp.Body, path)
	if !id.Exists() || id.String() == "" {
		return "", &errs.DecodeError{Path: path, Err: errs.ErrMissingField}
	}
	return id.String(), nil
}

// resolveMedia returns the numeric id for ref
func (s *Session) resolveMedia(ctx context.Context, ref MediaRef) (string, error) {
	switch {
	case ref.id != "":
		return ref.id, nil
	case ref.shortcode != "":
		id, err := s.resolver.ResolveShortcode(ctx, ref.shortcode)
		if err != nil {
			return "", fmt.Errorf("resolve shortcode %s: %w", ref.shortcode, err)
		}
		return id, nil
	default:
		return "", ErrEmptyMediaRef
	}
}
