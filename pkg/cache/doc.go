// Package cache loads and saves per-user profile snapshots.
//
// A missing snapshot is not an error: Load returns an empty snapshot so the
// caller starts walking from the present. Two backends are available, chosen
// by cache.backend:
//
//   - file: {directory}/{username}.json, written atomically
//   - sqlite: one row per username in cache.sqlite_path (pure Go driver)
//
// Both store the same JSON document, in the shape the profile API returns.
package cache
