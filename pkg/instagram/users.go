package instagram

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errs "instaapi/pkg/errors"
)

func userInfoVariables(userID string) (string, error) {
	vars := "{}"
	fields := []struct {
		key   string
		value interface{}
	}{
		{"user_id", userID},
		{"include_chaining", true},
		{"include_reel", true},
		{"include_suggested_users", false},
		{"include_logged_out_extras", false},
		{"include_highlight_reels", false},
	}
	for _, f := range fields {
		var err error
		if vars, err = sjson.Set(vars, f.key, f.value); err != nil {
			return "", err
		}
	}
	return vars, nil
}

// GetUserInfo fetches a public profile by username
func (s *Session) GetUserInfo(ctx context.Context, username string) (*User, error) {
	if err := s.requireLogin("GetUserInfo"); err != nil {
		return nil, err
	}

	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, fmt.Errorf("invalid username: %q", username)
	}

	ctx, span := tracer.Start(ctx, "GetUserInfo", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	resp, err := s.Send(ctx, Request{
		Endpoint: UserInfoPath(username),
		Query:    JSONQuery(),
		Message:  "User info received",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user info request failed")
		return nil, err
	}

	const path = "graphql.user"
	if !gjson.ValidBytes(resp.Body) {
		return nil, &errs.DecodeError{Path: path, Err: errs.ErrInvalidJSON}
	}
	user := gjson.GetBytes(resp.Body, path)
	if !user.IsObject() {
		return nil, &errs.DecodeError{Path: path, Err: errs.ErrMissingField}
	}
	return userFromJSON(user), nil
}

// GetUserInfoByID fetches reel and chaining data for a user id. The reel
// owner is cached and available from UserData afterwards.
func (s *Session) GetUserInfoByID(ctx context.Context, userID string) (*UserByID, error) {
	if err := s.requireLogin("GetUserInfoByID"); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	ctx, span := tracer.Start(ctx, "GetUserInfoByID", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	variables, err := userInfoVariables(userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.Send(ctx, Request{
		Endpoint: GraphQLEndpoint,
		Query:    GraphQLQuery(UserInfoQueryHash, variables),
		Message:  "User info received",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user info request failed")
		return nil, err
	}

	const path = "data.user.reel.owner"
	if !gjson.ValidBytes(resp.Body) {
		return nil, &errs.DecodeError{Path: path, Err: errs.ErrInvalidJSON}
	}
	owner := gjson.GetBytes(resp.Body, path)
	if !owner.IsObject() {
		return nil, &errs.DecodeError{Path: path, Err: errs.ErrMissingField}
	}

	s.userData = reelOwnerFromJSON(owner)
	return &UserByID{Owner: s.userData, Raw: json.RawMessage(resp.Body)}, nil
}
