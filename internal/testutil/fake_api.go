package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// FakeAPI simulates the CuriousCat profile endpoint. Each username gets a
// script of pages served in request order; once the script runs out every
// further request receives an empty page.
type FakeAPI struct {
	server       *httptest.Server
	mu           sync.Mutex
	pages        map[string][]string
	served       map[string]int
	cursors      map[string][]int64
	failures     map[string]failure
	requestCount int32
}

type failure struct {
	afterRequests int
	status        int
	body          string
}

// NewFakeAPI starts a fake API server. Close it when done.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		pages:    make(map[string][]string),
		served:   make(map[string]int),
		cursors:  make(map[string][]int64),
		failures: make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2.1/profile", f.handleProfile)
	f.server = httptest.NewServer(mux)
	return f
}

func (f *FakeAPI) handleProfile(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.requestCount, 1)

	username := r.URL.Query().Get("username")
	cursor, err := strconv.ParseInt(r.URL.Query().Get("max_timestamp"), 10, 64)
	if err != nil {
		http.Error(w, "bad max_timestamp", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	call := f.served[username]
	f.served[username] = call + 1
	f.cursors[username] = append(f.cursors[username], cursor)
	fail, failing := f.failures[username]
	var body string
	if call < len(f.pages[username]) {
		body = f.pages[username][call]
	} else {
		body = `{"posts":[]}`
	}
	f.mu.Unlock()

	if failing && call >= fail.afterRequests {
		w.WriteHeader(fail.status)
		fmt.Fprint(w, fail.body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

// AddPage appends a raw JSON page to username's script
func (f *FakeAPI) AddPage(username, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[username] = append(f.pages[username], body)
}

// AddPosts appends a page holding the given posts
func (f *FakeAPI) AddPosts(username string, posts ...Post) {
	entries := make([]interface{}, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, p.entry())
	}
	body, _ := json.Marshal(map[string]interface{}{"posts": entries})
	f.AddPage(username, string(body))
}

// FailAfter makes every request for username after the first n respond
// with status and body.
func (f *FakeAPI) FailAfter(username string, n, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[username] = failure{afterRequests: n, status: status, body: body}
}

// Cursors returns the max_timestamp of every request made for username
func (f *FakeAPI) Cursors(username string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cursors[username]...)
}

// RequestCount returns the total number of requests served
func (f *FakeAPI) RequestCount() int {
	return int(atomic.LoadInt32(&f.requestCount))
}

// URL returns the base URL to configure the client with
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// Close shuts the server down
func (f *FakeAPI) Close() {
	f.server.Close()
}

// Post describes one entry of a scripted page. An empty Type means "post".
type Post struct {
	Type      string
	Question  string
	Answer    string
	Timestamp int64
}

func (p Post) entry() map[string]interface{} {
	kind := p.Type
	if kind == "" {
		kind = "post"
	}
	body := map[string]interface{}{"timestamp": p.Timestamp}
	if p.Question != "" {
		body["comment"] = p.Question
	}
	if p.Answer != "" {
		body["reply"] = p.Answer
	}
	return map[string]interface{}{"type": kind, "post": body}
}
