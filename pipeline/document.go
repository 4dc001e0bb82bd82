// Package pipeline provides the built-in document processing components:
// a searchable document source, a score-filter transform, and a
// collecting sink. They are the reference implementations of the three
// component variants and back the example binary and the end-to-end
// tests.
package pipeline

import "github.com/openscripts/carrot2/capability"

// Well-known attribute keys shared by the document components.
const (
	// KeyQuery is the caller's query string
	KeyQuery = "core.query"
	// KeyRequestedResults bounds how many documents the source returns
	KeyRequestedResults = "core.requested-results"
	// KeyStartAt is the zero-based offset into the match list
	KeyStartAt = "core.start-at"
	// KeyDocuments carries the document list between components
	KeyDocuments = "core.documents"
	// KeyTotalMatched reports how many documents matched before paging
	KeyTotalMatched = "core.total-matched"
	// KeyMinScore is the score-filter threshold
	KeyMinScore = "core.min-score"
)

// DefaultRequestedResults is applied when the caller does not bound the
// result list.
const DefaultRequestedResults = 100

// Capability tags declared by the document components.
const (
	// CapProducesDocuments marks a component that writes KeyDocuments
	CapProducesDocuments = capability.Capability("produces:documents")
	// CapConsumesDocuments marks a component that reads KeyDocuments
	CapConsumesDocuments = capability.Capability("consumes:documents")
)

// TypeDocuments is the named attribute type for []Document values.
const TypeDocuments = "documents"

// Document is one retrievable item flowing through a document chain.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
}
