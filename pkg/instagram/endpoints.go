package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints are relative to the session base URL, which always ends in "/".
const (
	LandingEndpoint   = ""
	LoginEndpoint     = "accounts/login/ajax/"
	LogoutEndpoint    = "accounts/logout/"
	GraphQLEndpoint   = "graphql/query/"
	UploadEndpoint    = "create/upload/photo/"
	ConfigureEndpoint = "create/configure/"

	uploadRefererPath    = "create/style/"
	configureRefererPath = "create/details/"
)

const (
	// HashtagQueryHash selects the hashtag media GraphQL query
	HashtagQueryHash = "f92f56d47dc7a55b606908374b43a314"

	// UserInfoQueryHash selects the user reel/chaining GraphQL query
	UserInfoQueryHash = "7c16654f22c819fb63d1183034a5162f"

	// DefaultHashFeedPages is used when GetHashFeed is called with pages <= 0
	DefaultHashFeedPages = 4

	// instagramAjaxVersion is sent as x-instagram-ajax on uploads
	instagramAjaxVersion = "43b4c36c01b8"
)

// PublicBaseURL is used to build links for humans, independent of the
// configured API base URL.
const PublicBaseURL = "https://www.instagram.com"

func LikePath(mediaID string) string {
	return fmt.Sprintf("web/likes/%s/like/", mediaID)
}

func UnlikePath(mediaID string) string {
	return fmt.Sprintf("web/likes/%s/unlike/", mediaID)
}

func FollowPath(userID string) string {
	return fmt.Sprintf("web/friendships/%s/follow/", userID)
}

func UnfollowPath(userID string) string {
	return fmt.Sprintf("web/friendships/%s/unfollow/", userID)
}

func DeletePath(mediaID string) string {
	return fmt.Sprintf("create/%s/delete/", mediaID)
}

// UserInfoPath is fetched with JSONQuery()
func UserInfoPath(username string) string {
	return url.PathEscape(username) + "/"
}

// ShortcodePath is fetched with JSONQuery()
func ShortcodePath(shortcode string) string {
	return fmt.Sprintf("p/%s/", url.PathEscape(shortcode))
}

// JSONQuery asks a page endpoint for its JSON form
func JSONQuery() url.Values {
	return url.Values{"__a": {"1"}}
}

// GraphQLQuery builds the query string for a GraphQL GET
func GraphQLQuery(queryHash, variables string) url.Values {
	return url.Values{
		"query_hash": {queryHash},
		"variables":  {variables},
	}
}

// GetPostURL constructs the public URL for a post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", PublicBaseURL, shortcode)
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", PublicBaseURL, username)
}

// IsValidUsername checks a username against Instagram's rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// letters, numbers, periods and underscores only
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @, surrounding spaces and trailing slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// NormalizeHashtag strips whitespace and a leading #
func NormalizeHashtag(hashtag string) string {
	return strings.TrimPrefix(strings.TrimSpace(hashtag), "#")
}
