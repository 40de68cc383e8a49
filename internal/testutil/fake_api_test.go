package testutil

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestFakeAPIServesScriptThenEmpty(t *testing.T) {
	api := NewFakeAPI()
	defer api.Close()

	api.AddPosts("alice", Post{Question: "q", Answer: "a", Timestamp: 100})

	status, body := get(t, api.URL()+"/api/v2.1/profile?username=alice&max_timestamp=999")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"posts":[{"type":"post","post":{"comment":"q","reply":"a","timestamp":100}}]}`, body)

	_, body = get(t, api.URL()+"/api/v2.1/profile?username=alice&max_timestamp=99")
	assert.JSONEq(t, `{"posts":[]}`, body)

	assert.Equal(t, []int64{999, 99}, api.Cursors("alice"))
	assert.Equal(t, 2, api.RequestCount())
}

func TestFakeAPIFailAfter(t *testing.T) {
	api := NewFakeAPI()
	defer api.Close()

	api.AddPosts("bob", Post{Timestamp: 5})
	api.FailAfter("bob", 1, http.StatusServiceUnavailable, "down")

	status, _ := get(t, api.URL()+"/api/v2.1/profile?username=bob&max_timestamp=10")
	assert.Equal(t, http.StatusOK, status)

	status, body := get(t, api.URL()+"/api/v2.1/profile?username=bob&max_timestamp=4")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "down", body)
}
