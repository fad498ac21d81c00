// Package pdftext turns uploaded files into ordered page texts.
//
// PDFs are decoded page by page; plain text files are split on form feeds.
// The result feeds core.BuildPages, which lays the pages out back to back
// with cumulative offsets.
package pdftext
