package instagram

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Edge wraps a single media node of a GraphQL connection. Raw is the edge
// exactly as the server sent it.
type Edge struct {
	Node Node            `json:"node"`
	Raw  json.RawMessage `json:"-"`
}

// Node represents a single media item (photo or video)
type Node struct {
	ID          string `json:"id"`
	Shortcode   string `json:"shortcode"`
	DisplayURL  string `json:"display_url"`
	IsVideo     bool   `json:"is_video"`
	OwnerID     string `json:"owner_id"`
	Caption     string `json:"caption"`
	LikeCount   int64  `json:"like_count"`
	TakenAtUnix int64  `json:"taken_at_timestamp"`
}

// User is the profile returned by GetUserInfo
type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	Biography      string          `json:"biography"`
	ProfilePicURL  string          `json:"profile_pic_url"`
	IsPrivate      bool            `json:"is_private"`
	IsVerified     bool            `json:"is_verified"`
	FollowerCount  int64           `json:"follower_count"`
	FollowingCount int64           `json:"following_count"`
	Raw            json.RawMessage `json:"-"`
}

// ProfileURL returns the public profile link
func (u *User) ProfileURL() string {
	return GetUserProfileURL(u.Username)
}

// ReelOwner is the data.user.reel.owner object cached by GetUserInfoByID
type ReelOwner struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	ProfilePicURL string          `json:"profile_pic_url"`
	Raw           json.RawMessage `json:"-"`
}

// UserByID is the decoded GetUserInfoByID response
type UserByID struct {
	Owner *ReelOwner
	Raw   json.RawMessage
}

// UploadResult describes a published photo
type UploadResult struct {
	UploadID string
	MediaID  string
	Code     string
	Raw      json.RawMessage
}

// PostURL returns the public link to the published post, if the server
// reported its shortcode.
func (r *UploadResult) PostURL() string {
	return GetPostURL(r.Code)
}

func nodeFromJSON(v gjson.Result) Node {
	return Node{
		ID:          v.Get("id").String(),
		Shortcode:   v.Get("shortcode").String(),
		DisplayURL:  v.Get("display_url").String(),
		IsVideo:     v.Get("is_video").Bool(),
		OwnerID:     v.Get("owner.id").String(),
		Caption:     v.Get("edge_media_to_caption.edges.0.node.text").String(),
		LikeCount:   v.Get("edge_liked_by.count").Int(),
		TakenAtUnix: v.Get("taken_at_timestamp").Int(),
	}
}

func edgesFromJSON(v gjson.Result) []Edge {
	edges := make([]Edge, 0, len(v.Array()))
	v.ForEach(func(_, edge gjson.Result) bool {
		edges = append(edges, Edge{
			Node: nodeFromJSON(edge.Get("node")),
			Raw:  json.RawMessage(edge.Raw),
		})
		return true
	})
	return edges
}

func userFromJSON(v gjson.Result) *User {
	return &User{
		ID:             v.Get("id").String(),
		Username:       v.Get("username").String(),
		FullName:       v.Get("full_name").String(),
		Biography:      v.Get("biography").String(),
		ProfilePicURL:  v.Get("profile_pic_url").String(),
		IsPrivate:      v.Get("is_private").Bool(),
		IsVerified:     v.Get("is_verified").Bool(),
		FollowerCount:  v.Get("edge_followed_by.count").Int(),
		FollowingCount: v.Get("edge_follow.count").Int(),
		Raw:            json.RawMessage(v.Raw),
	}
}

func reelOwnerFromJSON(v gjson.Result) *ReelOwner {
	return &ReelOwner{
		ID:            v.Get("id").String(),
		Username:      v.Get("username").String(),
		ProfilePicURL: v.Get("profile_pic_url").String(),
		Raw:           json.RawMessage(v.Raw),
	}
}
