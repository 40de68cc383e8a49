// Package batch exports several profiles concurrently and saves each
// workbook to disk.
package batch
