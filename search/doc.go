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

// Package search answers free-text questions with page and offset anchored
// citations over a snapshot of stored documents.
//
// A Retriever always attempts the vector path first: the question is encoded
// and searched against the embedding provider's index. That path is
// observational only. Its neighbours are reported to the QueryMonitor and
// logged, and any failure is swallowed. The citations returned come from the
// keyword ranking, which always runs:
//
//   - the question is split into lowercase word tokens longer than two runes
//   - a document scores the summed case-insensitive occurrence counts of the tokens
//   - the anchor is the first occurrence of the first token, in question order,
//     that the document contains
//   - the citation window is [anchor-80, anchor+200) clipped to the text
//
// Documents scoring zero are dropped. Results are ordered by descending score,
// keeping snapshot order among ties, and truncated to k.
package search
