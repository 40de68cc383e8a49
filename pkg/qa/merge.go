package qa

import (
	"curiousqa/pkg/curiouscat"
)

// Merger accumulates fetched pages onto a snapshot seeded from the cache
type Merger struct {
	snap  *curiouscat.Snapshot
	dedup bool
	seen  map[string]struct{}
}

// NewMerger starts from snap. With dedup, posts whose key is already present
// (in snap or an earlier page) are skipped.
func NewMerger(snap *curiouscat.Snapshot, dedup bool) *Merger {
	if snap == nil {
		snap = curiouscat.NewSnapshot()
	}
	m := &Merger{snap: snap, dedup: dedup}
	if dedup {
		m.seen = make(map[string]struct{}, len(snap.Posts))
		for _, e := range snap.Posts {
			if e.IsPost() {
				m.seen[e.Post.Key()] = struct{}{}
			}
		}
	}
	return m
}

// Add appends the page's posts in received order, drops its noise entries
// and overwrites same-named metadata. It returns how many posts were added.
func (m *Merger) Add(page *curiouscat.Page) int {
	m.snap.UpdateMetadata(page.Metadata)

	added := 0
	for _, e := range page.Posts() {
		if m.dedup {
			key := e.Post.Key()
			if _, dup := m.seen[key]; dup {
				continue
			}
			m.seen[key] = struct{}{}
		}
		m.snap.Posts = append(m.snap.Posts, e)
		added++
	}
	return added
}

// Snapshot returns the accumulated snapshot
func (m *Merger) Snapshot() *curiouscat.Snapshot {
	return m.snap
}
