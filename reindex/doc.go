// Package reindex rebuilds the embedding index from stored documents.
//
// Documents are walked in ID order in batches. Each page is encoded with
// retry and exponential backoff, normalized to unit length, and added to the
// embedding provider with its document ID, page number and offsets as
// metadata. After every batch the ID of the last document is saved as the
// "indexer" checkpoint so an interrupted run can resume.
//
// The ingestion pipeline uses the same BatchProcessor for newly stored
// documents.
package reindex
