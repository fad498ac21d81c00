// Package ingestion provides pipeline orchestration for storing contracts.
//
// The Pipeline type manages the ingestion workflow for documents, including:
//   - Validating page layout and storing documents
//   - Skipping documents whose text is already stored
//   - Encoding pages into the embedding index asynchronously
//   - Auditing documents and notifying a sink asynchronously
//
// Processing is performed concurrently using worker pools.
// Errors during async processing are logged but do not fail the ingestion operation.
package ingestion
