package curiouscat

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the public CuriousCat host
	DefaultBaseURL = "https://curiouscat.live"

	// ProfileEndpoint returns one page of a user's answered questions
	ProfileEndpoint = "/api/v2.1/profile"

	// MaxUsernameLength bounds accepted usernames
	MaxUsernameLength = 64
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ProfileURL constructs the URL for the page of posts older than maxTimestamp
func ProfileURL(baseURL, username string, maxTimestamp int64) string {
	params := url.Values{}
	params.Set("username", username)
	params.Set("max_timestamp", strconv.FormatInt(maxTimestamp, 10))

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), ProfileEndpoint, params.Encode())
}

// SanitizeUsername strips the decorations people paste along with a handle:
// surrounding spaces, a leading "@" and trailing slashes.
func SanitizeUsername(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimRight(s, "/ ")
	return s
}

// IsValidUsername checks a sanitized username before it is used in a URL or
// as a cache file name.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > MaxUsernameLength {
		return false
	}
	if username == "." || username == ".." {
		return false
	}
	return usernamePattern.MatchString(username)
}
