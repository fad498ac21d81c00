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

package reindex

import (
	"context"

	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/storage"
)

const (
	// DefaultBatchSize is the default number of documents to fetch in each batch
	DefaultBatchSize = 25
)

// DocumentIterator walks stored documents in ascending ID order, in batches.
type DocumentIterator struct {
	repo      storage.DocumentRepository
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents to fetch in each batch (defaults when <= 0)
func NewDocumentIterator(repo storage.DocumentRepository, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each batch of documents whose ID is greater than
// afterID. Iteration stops on the first error from fn.
// Context cancellation is checked between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, afterID core.ID, fn func([]*core.Document) error) error {
	cursor := afterID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := it.repo.ListDocumentIDs(ctx, cursor, it.batchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		docs, err := it.repo.GetDocuments(ctx, ids...)
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			if err := fn(docs); err != nil {
				return err
			}
		}

		cursor = ids[len(ids)-1]
		if len(ids) < it.batchSize {
			return nil
		}
	}
}
