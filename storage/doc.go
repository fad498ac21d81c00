// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for clausemark.
//
// This package defines repository interfaces that decouple storage implementation
// from the audit, extraction and retrieval engines. Two backends exist:
//
//   - storage/badger: BadgerDB key-value store, also hosting the persistent
//     vector index used by the embedding provider
//   - storage/sqlite: a single-file SQLite database (pure Go driver)
//
// # Architecture
//
//   - DocumentSource: read-consistent snapshots for retrieval
//   - DocumentRepository: document CRUD, ID sequences and content hashes
//   - CheckpointRepository: progress markers for resumable reindexing
//
// Documents are serialized with mus-go (see core/records_mus.go) in the
// badger backend and as columns plus a JSON page list in the sqlite backend.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	docs, err := badger.NewDocumentRepository(backend)
//
// Use in tests with in-memory storage:
//
//	docs, checkpoints, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
