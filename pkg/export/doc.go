// Package export renders question/answer records as an .xlsx workbook.
//
// The workbook has a single sheet, Sheet1, whose first row is the
// Question/Answer header. It is built entirely in memory; callers stream the
// returned buffer to the client or to disk.
package export
