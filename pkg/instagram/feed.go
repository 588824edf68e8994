package instagram

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errs "instaapi/pkg/errors"
)

const hashFeedEdgesPath = "data.hashtag.edge_hashtag_to_media.edges"

// ErrEmptyHashtag is returned when the hashtag is blank after normalizing
var ErrEmptyHashtag = errors.New("hashtag is empty")

func hashFeedVariables(hashtag string, first int) (string, error) {
	vars, err := sjson.Set("{}", "tag_name", hashtag)
	if err != nil {
		return "", err
	}
	return sjson.Set(vars, "first", first)
}

// GetHashFeed returns the recent media edges for a hashtag. pages <= 0
// asks for DefaultHashFeedPages items.
func (s *Session) GetHashFeed(ctx context.Context, hashtag string, pages int) ([]Edge, error) {
	if err := s.requireLogin("GetHashFeed"); err != nil {
		return nil, err
	}

	hashtag = NormalizeHashtag(hashtag)
	if hashtag == "" {
		return nil, ErrEmptyHashtag
	}
	if pages <= 0 {
		pages = DefaultHashFeedPages
	}

	ctx, span := tracer.Start(ctx, "GetHashFeed", trace.WithAttributes(
		attribute.String("hashtag", hashtag),
		attribute.Int("pages", pages),
	))
	defer span.End()

	variables, err := hashFeedVariables(hashtag, pages)
	if err != nil {
		return nil, err
	}

	resp, err := s.Send(ctx, Request{
		Endpoint: GraphQLEndpoint,
		Query:    GraphQLQuery(HashtagQueryHash, variables),
		Message:  "Hashtag feed received",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash feed request failed")
		return nil, err
	}

	if !gjson.ValidBytes(resp.Body) {
		s.logger.DebugWithFields("incomplete JSON in hashtag feed", map[string]interface{}{
			"hashtag":     hashtag,
			"body_length": len(resp.Body),
		})
		err := &errs.DecodeError{Path: hashFeedEdgesPath, Err: errs.ErrInvalidJSON}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tag := gjson.GetBytes(resp.Body, "data.hashtag")
	if !tag.Exists() || tag.Type == gjson.Null {
		span.SetStatus(codes.Error, "invalid hashtag")
		return nil, &errs.InvalidHashtagError{Hashtag: hashtag}
	}

	edges := tag.Get("edge_hashtag_to_media.edges")
	if !edges.IsArray() {
		err := &errs.DecodeError{Path: hashFeedEdgesPath, Err: errs.ErrMissingField}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := edgesFromJSON(edges)
	span.SetAttributes(attribute.Int("edges", len(result)))
	return result, nil
}
