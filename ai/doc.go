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


// Package ai provides the embedding abstractions used by clausemark.
//
// # Design
//
// Three interfaces split the concern:
//
//   - Encoder: turns text into fixed-dimension vectors
//   - Index: stores vectors and answers k-nearest-neighbour queries
//   - EmbeddingProvider: the single surface ingestion and retrieval use
//
// LazyProvider implements EmbeddingProvider by probing once, on first use,
// for three facilities: numeric array support, an encoder, and an index.
// When all three are present it serves requests from them. When any is
// missing it substitutes NullProvider, which returns zero vectors, stores
// nothing, and reports no neighbours, so callers keep working with degraded
// results instead of failing.
//
// # Implementation Packages
//
//   - ai/openai: Encoder backed by OpenAI-compatible embedding APIs
//   - storage/badger: persistent flat L2 Index (VectorIndex)
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	provider, err := ai.NewLazyProvider(probe, ai.WithFallbackDimension(32))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Encode(ctx, []string{"termination for convenience"})
//	distances, indices, err := provider.Search(ctx, vectors, 5)
package ai
