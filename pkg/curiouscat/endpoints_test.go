package curiouscat

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileURL(t *testing.T) {
	raw := ProfileURL("https://curiouscat.live/", "alice", 1699999999)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "curiouscat.live", u.Host)
	assert.Equal(t, ProfileEndpoint, u.Path)
	assert.Equal(t, "alice", u.Query().Get("username"))
	assert.Equal(t, "1699999999", u.Query().Get("max_timestamp"))
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice", "alice"},
		{"  @alice ", "alice"},
		{"alice/", "alice"},
		{"@alice// ", "alice"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.input), "input %q", tt.input)
	}
}

func TestIsValidUsername(t *testing.T) {
	valid := []string{"alice", "bob_99", "a.b-c"}
	invalid := []string{"", ".", "..", "../etc", "al ice", "a/b", "ali?ce"}

	for _, u := range valid {
		assert.True(t, IsValidUsername(u), "expected %q to be valid", u)
	}
	for _, u := range invalid {
		assert.False(t, IsValidUsername(u), "expected %q to be invalid", u)
	}
}
