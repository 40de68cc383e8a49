// Package qa merges fetched pages into a profile snapshot and turns the
// result into question/answer records.
package qa
