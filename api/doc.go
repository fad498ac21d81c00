// Package api serves ingestion, audit, extraction and question answering
// over HTTP.
package api
