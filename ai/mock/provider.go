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


package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/clausemark/ai"
)

// MockProvider is a test double for ai.EmbeddingProvider.
// It delegates to a MockEncoder and MockIndex unless a Func field is set.
type MockProvider struct {
	EncodeFunc func(ctx context.Context, texts []string) ([][]float32, error)
	AddFunc    func(ctx context.Context, vectors [][]float32, metadata []map[string]string) error
	SearchFunc func(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error)

	encoder   *MockEncoder
	index     *MockIndex
	callCount atomic.Int64
}

var _ ai.EmbeddingProvider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with dim-length vectors.
// Note: Returns concrete type to allow test assertions.
func NewMockProvider(dim int) *MockProvider {
	return &MockProvider{
		encoder: NewMockEncoder(dim),
		index:   NewMockIndex(),
	}
}

func (p *MockProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	p.callCount.Add(1)
	if p.EncodeFunc != nil {
		return p.EncodeFunc(ctx, texts)
	}
	return p.encoder.EncodeTexts(ctx, texts)
}

func (p *MockProvider) Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error {
	p.callCount.Add(1)
	if p.AddFunc != nil {
		return p.AddFunc(ctx, vectors, metadata)
	}
	return p.index.Add(ctx, vectors, metadata)
}

func (p *MockProvider) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	p.callCount.Add(1)
	if p.SearchFunc != nil {
		return p.SearchFunc(ctx, queries, k)
	}
	return p.index.Search(ctx, queries, k)
}

func (p *MockProvider) Dim() int {
	return p.encoder.Dimension()
}

func (p *MockProvider) Close() error {
	return p.index.Close()
}

// CallCount returns the number of Encode, Add and Search calls.
func (p *MockProvider) CallCount() int {
	return int(p.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (p *MockProvider) Reset() {
	p.callCount.Store(0)
	p.EncodeFunc = nil
	p.AddFunc = nil
	p.SearchFunc = nil
}

// GetMockIndex returns the underlying index for assertions.
func (p *MockProvider) GetMockIndex() *MockIndex {
	return p.index
}

// CompleteProbe returns a probe that always reports every facility present,
// backed by a fresh MockEncoder and MockIndex.
func CompleteProbe(dim int) ai.ProbeFunc {
	return func(context.Context) ai.Capabilities {
		return ai.Capabilities{
			Arrays:  true,
			Encoder: NewMockEncoder(dim),
			Index:   NewMockIndex(),
		}
	}
}
