package pipeline

import (
	"context"
	"fmt"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/component"
)

// ScoreFilter is a transform component that drops documents scoring
// below a threshold. It both consumes and produces documents, so it can
// sit anywhere between a source and a sink.
type ScoreFilter struct{}

// NewScoreFilter creates a score filter. The threshold is read from the
// KeyMinScore attribute at request time, defaulting to zero.
func NewScoreFilter() *ScoreFilter {
	return &ScoreFilter{}
}

// Name implements component.Component
func (f *ScoreFilter) Name() string {
	return "score-filter"
}

// Kind implements component.Component
func (f *ScoreFilter) Kind() component.Kind {
	return component.Transform
}

// Capabilities implements component.Component
func (f *ScoreFilter) Capabilities() capability.Set {
	return capability.NewSet(CapConsumesDocuments, CapProducesDocuments)
}

// SuccessorCapabilities implements component.Component
func (f *ScoreFilter) SuccessorCapabilities() capability.Set {
	return capability.NewSet(CapConsumesDocuments)
}

// Inputs implements component.Component
func (f *ScoreFilter) Inputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:       KeyDocuments,
			Type:      TypeDocuments,
			Direction: attribute.InputOutput,
			Doc:       attribute.Doc{Label: "Documents"},
		},
		{
			Key:           KeyMinScore,
			Type:          attribute.TypeFloat,
			Default:       0.0,
			Direction:     attribute.Input,
			CacheRelevant: true,
			Doc:           attribute.Doc{Label: "Minimum score", Advanced: true},
		},
	}
}

// Outputs implements component.Component
func (f *ScoreFilter) Outputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:       KeyDocuments,
			Type:      TypeDocuments,
			Direction: attribute.InputOutput,
			Doc:       attribute.Doc{Label: "Documents"},
		},
	}
}

// Process implements component.Component
func (f *ScoreFilter) Process(_ context.Context, attrs *attribute.Context) error {
	raw, _ := attrs.Get(KeyDocuments)
	docs, ok := raw.([]Document)
	if !ok {
		return fmt.Errorf("attribute %s: expected []Document, got %T", KeyDocuments, raw)
	}

	minScore := 0.0
	if v, ok := attrs.Get(KeyMinScore); ok {
		if threshold, ok := v.(float64); ok {
			minScore = threshold
		}
	}

	kept := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Score >= minScore {
			kept = append(kept, doc)
		}
	}
	attrs.Set(KeyDocuments, kept)
	return nil
}
