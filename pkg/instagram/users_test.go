package instagram

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	errs "instaapi/pkg/errors"
)

func TestGetUserInfo(t *testing.T) {
	f := newFakeInstagram(t)
	f.handleJSON("/jane/", http.StatusOK, janeProfile)
	s, log := newLoggedInSession(t, f)

	user, err := s.GetUserInfo(context.Background(), " @jane/ ")
	require.NoError(t, err)

	assert.Equal(t, "42", user.ID)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, "Jane Doe", user.FullName)
	assert.Equal(t, int64(10), user.FollowerCount)
	assert.Equal(t, int64(3), user.FollowingCount)
	assert.Equal(t, "42", gjson.GetBytes(user.Raw, "id").String())

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "1", reqs[0].Query.Get("__a"))
	assert.True(t, log.Contains("User info received"))
}

func TestGetUserInfoErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid username", func(t *testing.T) {
		f := newFakeInstagram(t)
		s, _ := newLoggedInSession(t, f)

		_, err := s.GetUserInfo(ctx, "bad name!")
		assert.Error(t, err)
		assert.Empty(t, f.Requests())
	})

	t.Run("missing user object", func(t *testing.T) {
		f := newFakeInstagram(t)
		f.handleJSON("/jane/", http.StatusOK, `{"graphql":{}}`)
		s, _ := newLoggedInSession(t, f)

		_, err := s.GetUserInfo(ctx, "jane")
		var decodeErr *errs.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "graphql.user", decodeErr.Path)
	})

	t.Run("html instead of json", func(t *testing.T) {
		f := newFakeInstagram(t)
		f.handleJSON("/jane/", http.StatusOK, `<html>login</html>`)
		s, _ := newLoggedInSession(t, f)

		_, err := s.GetUserInfo(ctx, "jane")
		assert.ErrorIs(t, err, errs.ErrInvalidJSON)
	})
}

func TestGetUserInfoByID(t *testing.T) {
	body := `{"data":{"user":{"reel":{"id":"42","owner":{"id":"42","username":"jane","profile_pic_url":"https://cdn.example/jane.jpg"}},"edge_chaining":{"edges":[]}}},"status":"ok"}`
	f := newFakeInstagram(t)
	f.handleJSON("/"+GraphQLEndpoint, http.StatusOK, body)
	s, _ := newLoggedInSession(t, f)

	require.Nil(t, s.UserData())

	info, err := s.GetUserInfoByID(context.Background(), "42")
	require.NoError(t, err)
	assert.JSONEq(t, body, string(info.Raw))
	assert.Equal(t, "jane", info.Owner.Username)

	owner := s.UserData()
	require.NotNil(t, owner)
	assert.Equal(t, "42", owner.ID)
	assert.Equal(t, "https://cdn.example/jane.jpg", owner.ProfilePicURL)

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, UserInfoQueryHash, reqs[0].Query.Get("query_hash"))

	vars := reqs[0].Query.Get("variables")
	assert.Equal(t, "42", gjson.Get(vars, "user_id").String())
	assert.True(t, gjson.Get(vars, "include_chaining").Bool())
	assert.True(t, gjson.Get(vars, "include_reel").Bool())
	for _, key := range []string{"include_suggested_users", "include_logged_out_extras", "include_highlight_reels"} {
		v := gjson.Get(vars, key)
		assert.True(t, v.Exists(), key)
		assert.False(t, v.Bool(), key)
	}
}

func TestGetUserInfoByIDWithoutReel(t *testing.T) {
	f := newFakeInstagram(t)
	f.handleJSON("/"+GraphQLEndpoint, http.StatusOK, `{"data":{"user":{"reel":null}}}`)
	s, _ := newLoggedInSession(t, f)

	_, err := s.GetUserInfoByID(context.Background(), "42")
	assert.ErrorIs(t, err, errs.ErrMissingField)
	assert.Nil(t, s.UserData())
}
