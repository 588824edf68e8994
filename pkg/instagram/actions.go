package instagram

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Like likes a post
func (s *Session) Like(ctx context.Context, media MediaRef) error {
	return s.mediaAction(ctx, "Like", media, LikePath, "Liked!")
}

// Unlike removes a like from a post
func (s *Session) Unlike(ctx context.Context, media MediaRef) error {
	return s.mediaAction(ctx, "Unlike", media, UnlikePath, "Unliked!")
}

// DeletePost deletes one of the logged in user's posts
func (s *Session) DeletePost(ctx context.Context, media MediaRef) error {
	return s.mediaAction(ctx, "DeletePost", media, DeletePath, "Post deleted")
}

func (s *Session) mediaAction(ctx context.Context, op string, media MediaRef, path func(string) string, message string) error {
	if err := s.requireLogin(op); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("media", media.String())))
	defer span.End()

	id, err := s.resolveMedia(ctx, media)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve media failed")
		return err
	}

	if _, err := s.Send(ctx, Request{Endpoint: path(id), Post: true, Message: message}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}
	return nil
}

// FollowByID follows a user by numeric id
func (s *Session) FollowByID(ctx context.Context, userID string) error {
	return s.userAction(ctx, "Follow", userID, FollowPath, "Followed!")
}

// UnfollowByID unfollows a user by numeric id
func (s *Session) UnfollowByID(ctx context.Context, userID string) error {
	return s.userAction(ctx, "Unfollow", userID, UnfollowPath, "Unfollowed!")
}

// Follow follows a user by username
func (s *Session) Follow(ctx context.Context, username string) error {
	id, err := s.userIDFor(ctx, "Follow", username)
	if err != nil {
		return err
	}
	return s.FollowByID(ctx, id)
}

// FollowByName is an alias for Follow
func (s *Session) FollowByName(ctx context.Context, username string) error {
	return s.Follow(ctx, username)
}

// UnfollowByName unfollows a user by username
func (s *Session) UnfollowByName(ctx context.Context, username string) error {
	id, err := s.userIDFor(ctx, "Unfollow", username)
	if err != nil {
		return err
	}
	return s.UnfollowByID(ctx, id)
}

func (s *Session) userIDFor(ctx context.Context, op, username string) (string, error) {
	if err := s.requireLogin(op); err != nil {
		return "", err
	}
	user, err := s.GetUserInfo(ctx, username)
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("user %s has no id", username)
	}
	return user.ID, nil
}

func (s *Session) userAction(ctx context.Context, op, userID string, path func(string) string, message string) error {
	if err := s.requireLogin(op); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("%s: user id is required", op)
	}

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if _, err := s.Send(ctx, Request{Endpoint: path(userID), Post: true, Message: message}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}
	return nil
}
