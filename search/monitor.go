package search

import (
	"github.com/poiesic/clausemark/core"
)

// QueryMonitor provides hooks to observe a retrieval query.
// Implement this interface to track intermediate steps and results.
type QueryMonitor interface {
	Start(question string, k int)
	AfterVectorSearch(distances [][]float32, indices [][]int64, err error)
	AfterTokenize(tokens []string)
	AfterSnapshot(docs []*core.Document)
	DocumentScored(doc *core.Document, score int, anchor int)
	Finish(results []core.RetrievalResult)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                                 {}
func (n *noopMonitor) AfterVectorSearch(_ [][]float32, _ [][]int64, _ error) {}
func (n *noopMonitor) AfterTokenize(_ []string)                              {}
func (n *noopMonitor) AfterSnapshot(_ []*core.Document)                      {}
func (n *noopMonitor) DocumentScored(_ *core.Document, _ int, _ int)         {}
func (n *noopMonitor) Finish(_ []core.RetrievalResult)                       {}
