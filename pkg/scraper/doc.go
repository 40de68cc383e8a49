// Package scraper orchestrates one export request.
//
// For a username, the Scraper:
//
//  1. loads the cached snapshot (an empty one if none exists)
//  2. walks the profile API backward from just before the oldest cached post
//  3. appends every page's posts to the snapshot
//  4. extracts question/answer records from all "post" entries
//  5. renders them as a workbook (Export only)
//
// Upstream errors abort the request; callers never receive a partial
// workbook. Saving the merged snapshot back to the cache is opt-in through
// Options.WriteBack; when on, requests for the same username are
// serialized and re-fetched posts are deduplicated.
package scraper
