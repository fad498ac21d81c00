// Package mock provides test double implementations of the ai interfaces.
//
// This package contains mock implementations of ai.Encoder, ai.Index and
// ai.EmbeddingProvider for use in unit tests. The mocks allow tests to run
// without an embedding service and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// A probe that always finds every facility
//	provider, err := ai.NewLazyProvider(mock.CompleteProbe(16))
//
//	// Custom behavior injection
//	p := mock.NewMockProvider(16)
//	p.SearchFunc = func(ctx context.Context, q [][]float32, k int) ([][]float32, [][]int64, error) {
//	    return nil, nil, errors.New("index offline")
//	}
//
//	// Check call counts
//	count := p.CallCount()
//
// # Default Behavior
//
//   - MockEncoder: Returns deterministic unit vectors based on text hash
//   - MockIndex: Exact in-memory squared-L2 search with -1/+Inf padding
//   - MockProvider: Combines a MockEncoder and a MockIndex
package mock
