package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/h2non/filetype"
	random "github.com/mazen160/go-random"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errs "instaapi/pkg/errors"
)

// DefaultCaption is used when PostPhoto is called with an empty caption
const DefaultCaption = "No caption"

// ErrNotImage is returned when the upload file is not a recognised image
var ErrNotImage = errors.New("file is not an image")

func newBoundary() (string, error) {
	suffix, err := random.String(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	return "----WebKitFormBoundary" + suffix, nil
}

// photoForm encodes the phase one multipart body
func photoForm(boundary, uploadID, mimeType string, photo []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, err
	}

	if err := w.WriteField("upload_id", uploadID); err != nil {
		return nil, err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(photo); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Session) uploadHeaders(contentType, refererPath string) map[string]string {
	return map[string]string{
		"accept-encoding":  "gzip, deflate, br",
		"accept-language":  "en-US,en;q=0.9",
		"x-requested-with": "XMLHttpRequest",
		"User-Agent":       s.cfg.MobileUserAgent,
		"x-instagram-ajax": instagramAjaxVersion,
		"Content-type":     contentType,
		"referer":          s.endpointURL(refererPath),
	}
}

// PostPhoto uploads the image at path and publishes it with caption
func (s *Session) PostPhoto(ctx context.Context, path, caption string) (*UploadResult, error) {
	if err := s.requireLogin("PostPhoto"); err != nil {
		return nil, err
	}
	if caption == "" {
		caption = DefaultCaption
	}

	photo, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if !filetype.IsImage(photo) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	kind, _ := filetype.Match(photo)

	ctx, span := tracer.Start(ctx, "PostPhoto", trace.WithAttributes(
		attribute.String("mime", kind.MIME.Value),
		attribute.Int("size", len(photo)),
	))
	defer span.End()

	uploadID, err := s.uploadPhoto(ctx, kind.MIME.Value, photo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("upload_id", uploadID))

	result, err := s.configurePhoto(ctx, uploadID, caption)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "configure failed")
		return nil, err
	}
	return result, nil
}

func (s *Session) uploadPhoto(ctx context.Context, mimeType string, photo []byte) (string, error) {
	boundary, err := newBoundary()
	if err != nil {
		return "", err
	}
	body, err := photoForm(boundary, strconv.FormatInt(time.Now().UnixMilli(), 10), mimeType, photo)
	if err != nil {
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}

	resp, err := s.Send(ctx, Request{
		Endpoint: UploadEndpoint,
		Body:     body,
		Headers:  s.uploadHeaders("multipart/form-data; boundary="+boundary, uploadRefererPath),
		Message:  "Photo uploaded",
	})
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(resp.Body) {
		return "", &errs.DecodeError{Path: "upload_id", Err: errs.ErrInvalidJSON}
	}
	id := gjson.GetBytes(resp.Body, "upload_id")
	if !id.Exists() || id.String() == "" {
		return "", &errs.DecodeError{Path: "upload_id", Err: errs.ErrMissingField}
	}
	return id.String(), nil
}

func (s *Session) configurePhoto(ctx context.Context, uploadID, caption string) (*UploadResult, error) {
	form := url.Values{}
	form.Set("upload_id", uploadID)
	form.Set("caption", caption)

	resp, err := s.Send(ctx, Request{
		Endpoint: ConfigureEndpoint,
		Form:     form,
		Headers:  s.uploadHeaders("application/x-www-form-urlencoded", configureRefererPath),
		Message:  "Photo published",
	})
	if err != nil {
		return nil, err
	}

	result := &UploadResult{UploadID: uploadID, Raw: json.RawMessage(resp.Body)}
	if gjson.ValidBytes(resp.Body) {
		media := gjson.GetBytes(resp.Body, "media")
		result.MediaID = media.Get("pk").String()
		if result.MediaID == "" {
			result.MediaID = media.Get("id").String()
		}
		result.Code = media.Get("code").String()
	}
	return result, nil
}
