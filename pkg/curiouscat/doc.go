// Package curiouscat is a client for the public CuriousCat profile API.
//
// The API serves a user's answered questions newest first, one page per
// request, bounded by a max_timestamp cursor:
//
//	GET {base}/api/v2.1/profile?username={u}&max_timestamp={t}
//
// Each element of the returned posts array is decoded as an Entry whose
// type decides its case. Only "post" entries carry a question (comment) and
// an answer (reply); everything else is kept raw and treated as noise.
//
// Example usage:
//
//	client := curiouscat.NewClient(cfg.CuriousCat, log)
//	p := curiouscat.NewPaginator(client, cfg.CuriousCat.PageDelay, log)
//
//	result, err := p.Walk(ctx, "alice", time.Now().Unix()-1,
//	    func(page *curiouscat.Page, cursor int64) error {
//	        posts = append(posts, page.Posts()...)
//	        return nil
//	    })
//
// Walk stops at the first empty page. Cursors strictly decrease from one
// request to the next, so a walk always terminates against a well-behaved
// API. Upstream failures are returned as *errors.Error values from
// curiousqa/pkg/errors.
package curiouscat
