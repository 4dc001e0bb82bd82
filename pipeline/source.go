package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/errors"
)

// SearchSource is a lifecycle-capable source component that matches
// documents from an in-memory index against the caller's query. The
// index is sealed in Start and released in Stop; matching is a
// case-insensitive substring test over title and snippet, ordered by
// score.
type SearchSource struct {
	mu      sync.Mutex
	index   []Document
	started bool
}

// NewSearchSource creates a source over the given document set.
func NewSearchSource(index []Document) *SearchSource {
	docs := make([]Document, len(index))
	copy(docs, index)
	return &SearchSource{index: docs}
}

// Name implements component.Component
func (s *SearchSource) Name() string {
	return "search-source"
}

// Kind implements component.Component
func (s *SearchSource) Kind() component.Kind {
	return component.Source
}

// Capabilities implements component.Component
func (s *SearchSource) Capabilities() capability.Set {
	return capability.NewSet(CapProducesDocuments, capability.Lifecycle)
}

// SuccessorCapabilities implements component.Component
func (s *SearchSource) SuccessorCapabilities() capability.Set {
	return capability.NewSet(CapConsumesDocuments)
}

// Inputs implements component.Component
func (s *SearchSource) Inputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:           KeyQuery,
			Type:          attribute.TypeString,
			Direction:     attribute.Input,
			CacheRelevant: true,
			Doc:           attribute.Doc{Label: "Query", Description: "Search query string"},
		},
		{
			Key:           KeyRequestedResults,
			Type:          attribute.TypeInt,
			Default:       DefaultRequestedResults,
			Direction:     attribute.Input,
			CacheRelevant: true,
			Doc:           attribute.Doc{Label: "Requested results", Advanced: true},
		},
		{
			Key:           KeyStartAt,
			Type:          attribute.TypeInt,
			Default:       0,
			Direction:     attribute.Input,
			CacheRelevant: true,
			Doc:           attribute.Doc{Label: "Start at", Advanced: true},
		},
	}
}

// Outputs implements component.Component
func (s *SearchSource) Outputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:       KeyDocuments,
			Type:      TypeDocuments,
			Direction: attribute.Output,
			Doc:       attribute.Doc{Label: "Documents"},
		},
		{
			Key:       KeyTotalMatched,
			Type:      attribute.TypeInt,
			Direction: attribute.Output,
			Doc:       attribute.Doc{Label: "Total matched", Advanced: true},
		},
	}
}

// Start implements component.Lifecycle
func (s *SearchSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.ErrAlreadyStarted
	}
	s.started = true
	return nil
}

// Stop implements component.Lifecycle
func (s *SearchSource) Stop(_ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.ErrNotStarted
	}
	s.started = false
	return nil
}

// Process implements component.Component
func (s *SearchSource) Process(_ context.Context, attrs *attribute.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.ErrNotStarted
	}
	index := s.index
	s.mu.Unlock()

	query, _ := attrs.GetString(KeyQuery)
	requested, _ := attrs.GetInt(KeyRequestedResults)
	startAt, _ := attrs.GetInt(KeyStartAt)

	matched := match(index, query)

	end := min(len(matched), startAt+requested)
	page := []Document{}
	if startAt < end {
		page = matched[startAt:end]
	}

	attrs.Set(KeyDocuments, page)
	attrs.Set(KeyTotalMatched, len(matched))
	return nil
}

// match returns the documents whose title or snippet contains the query,
// best score first. An empty query matches everything.
func match(index []Document, query string) []Document {
	needle := strings.ToLower(strings.TrimSpace(query))

	var matched []Document
	for _, doc := range index {
		if needle == "" ||
			strings.Contains(strings.ToLower(doc.Title), needle) ||
			strings.Contains(strings.ToLower(doc.Snippet), needle) {
			matched = append(matched, doc)
		}
	}

	// Stable order: score descending, then ID for ties
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}
