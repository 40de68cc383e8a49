package curiouscat

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// KindPost is the discriminant of entries that carry a question and answer.
const KindPost = "post"

// Timestamp is a Unix timestamp in seconds. The API has been seen to send it
// both as a number and as a numeric string.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*t = Timestamp(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", data, err)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("invalid timestamp %q: out of range", data)
	}
	*t = Timestamp(f)
	return nil
}

// PostBody is the nested record of a "post" entry.
type PostBody struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Comment   *string         `json:"comment"`
	Reply     *string         `json:"reply"`
	Timestamp Timestamp       `json:"timestamp"`
}

// Key identifies a post across fetches: its id when the API sent one,
// otherwise timestamp plus question text.
func (p *PostBody) Key() string {
	if len(p.ID) > 0 && !bytes.Equal(p.ID, []byte("null")) {
		return "id:" + string(p.ID)
	}
	comment := ""
	if p.Comment != nil {
		comment = *p.Comment
	}
	return fmt.Sprintf("ts:%d:%s", p.Timestamp, comment)
}

// Entry is one element of the API's posts array. Exactly one of the cases
// applies, decided by Type when the entry is decoded: Post is non-nil for
// "post" entries (empty when the API omitted the body), and every other kind
// is kept only as Raw.
type Entry struct {
	Type string
	Post *PostBody
	// Raw is the entry exactly as received; it is what gets persisted.
	Raw json.RawMessage
}

// IsPost reports whether the entry is the "post" case.
func (e Entry) IsPost() bool {
	return e.Type == KindPost && e.Post != nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string          `json:"type"`
		Post json.RawMessage `json:"post"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	e.Type = head.Type
	e.Raw = append(json.RawMessage(nil), data...)
	e.Post = nil

	if head.Type != KindPost {
		return nil
	}
	var body PostBody
	if len(head.Post) > 0 && !bytes.Equal(head.Post, []byte("null")) {
		if err := json.Unmarshal(head.Post, &body); err != nil {
			return fmt.Errorf("decode post: %w", err)
		}
	}
	e.Post = &body
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	out := map[string]interface{}{"type": e.Type}
	if e.Post != nil {
		out["post"] = e.Post
	}
	return json.Marshal(out)
}

// noiseTimestamp returns the smallest timestamp carried by a non-post entry,
// either at top level or under "post".
func (e Entry) noiseTimestamp() (Timestamp, bool) {
	var fields struct {
		timestampField
		Post *timestampField `json:"post"`
	}
	if err := json.Unmarshal(e.Raw, &fields); err != nil {
		return 0, false
	}

	candidates := []*Timestamp{fields.Timestamp}
	if fields.Post != nil {
		candidates = append(candidates, fields.Post.Timestamp)
	}

	var oldest Timestamp
	found := false
	for _, ts := range candidates {
		if ts != nil && *ts > 0 && (!found || *ts < oldest) {
			oldest = *ts
			found = true
		}
	}
	return oldest, found
}

type timestampField struct {
	Timestamp *Timestamp `json:"timestamp"`
}

// Snapshot is a profile document: metadata fields plus the posts array.
// Metadata keys other than "posts" are preserved verbatim.
type Snapshot struct {
	Metadata map[string]json.RawMessage
	Posts    []Entry
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Metadata: map[string]json.RawMessage{}, Posts: []Entry{}}
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	metadata, posts, _, err := splitDocument(data)
	if err != nil {
		return err
	}
	s.Metadata = metadata
	s.Posts = posts
	return nil
}

// splitDocument separates the posts array from the remaining fields and
// reports whether a posts key was present at all.
func splitDocument(data []byte) (map[string]json.RawMessage, []Entry, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, false, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	posts := []Entry{}
	raw, present := fields["posts"]
	if present && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &posts); err != nil {
			return nil, nil, false, fmt.Errorf("decode posts: %w", err)
		}
	}
	delete(fields, "posts")
	return fields, posts, present, nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Metadata)+1)
	for k, v := range s.Metadata {
		out[k] = v
	}
	posts := s.Posts
	if posts == nil {
		posts = []Entry{}
	}
	out["posts"] = posts
	return json.Marshal(out)
}

// UpdateMetadata overwrites same-named metadata keys with those in m.
func (s *Snapshot) UpdateMetadata(m map[string]json.RawMessage) {
	if s.Metadata == nil {
		s.Metadata = map[string]json.RawMessage{}
	}
	for k, v := range m {
		s.Metadata[k] = v
	}
}

// OldestTimestamp returns the smallest positive timestamp among the
// snapshot's posts. Missing or zero timestamps would restart the walk at the
// epoch, so they are ignored.
func (s *Snapshot) OldestTimestamp() (Timestamp, bool) {
	var oldest Timestamp
	found := false
	for _, e := range s.Posts {
		if !e.IsPost() || e.Post.Timestamp <= 0 {
			continue
		}
		if !found || e.Post.Timestamp < oldest {
			oldest = e.Post.Timestamp
			found = true
		}
	}
	return oldest, found
}

// Cursor returns where a backward walk resumes: the oldest saved post's
// timestamp, or now when nothing has been saved.
func (s *Snapshot) Cursor(now int64) int64 {
	if oldest, ok := s.OldestTimestamp(); ok {
		return int64(oldest)
	}
	return now
}

// Page is one decoded API response.
type Page struct {
	// Entries holds every item of the posts array, posts and noise alike.
	Entries  []Entry
	Metadata map[string]json.RawMessage
}

// Exhausted is true exactly when the API returned an empty posts array.
func (p *Page) Exhausted() bool {
	return len(p.Entries) == 0
}

// Posts returns only the "post" entries, in received order.
func (p *Page) Posts() []Entry {
	posts := make([]Entry, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.IsPost() {
			posts = append(posts, e)
		}
	}
	return posts
}

// Noise returns the number of non-post entries.
func (p *Page) Noise() int {
	n := 0
	for _, e := range p.Entries {
		if !e.IsPost() {
			n++
		}
	}
	return n
}

// UnmarshalJSON rejects documents without a posts key: an API response
// missing it is malformed, not an empty page.
func (p *Page) UnmarshalJSON(data []byte) error {
	metadata, posts, present, err := splitDocument(data)
	if err != nil {
		return err
	}
	if !present {
		return errMissingPosts
	}
	p.Entries = posts
	p.Metadata = metadata
	return nil
}

var errMissingPosts = errors.New("response has no posts field")
