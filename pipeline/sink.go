package pipeline

import (
	"context"
	"fmt"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/component"
)

// CollectorSink is the terminal component of a document chain. It bounds
// the final document list and republishes it as an output attribute for
// the frozen result, alongside a collected-count.
type CollectorSink struct {
	maxDocuments int
}

// NewCollectorSink creates a sink keeping at most maxDocuments documents.
// A non-positive bound keeps everything.
func NewCollectorSink(maxDocuments int) *CollectorSink {
	return &CollectorSink{maxDocuments: maxDocuments}
}

// Name implements component.Component
func (s *CollectorSink) Name() string {
	return "collector-sink"
}

// Kind implements component.Component
func (s *CollectorSink) Kind() component.Kind {
	return component.Sink
}

// Capabilities implements component.Component
func (s *CollectorSink) Capabilities() capability.Set {
	return capability.NewSet(CapConsumesDocuments)
}

// SuccessorCapabilities implements component.Component
func (s *CollectorSink) SuccessorCapabilities() capability.Set {
	return capability.NewSet()
}

// Inputs implements component.Component
func (s *CollectorSink) Inputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:       KeyDocuments,
			Type:      TypeDocuments,
			Direction: attribute.InputOutput,
			Doc:       attribute.Doc{Label: "Documents"},
		},
	}
}

// Outputs implements component.Component
func (s *CollectorSink) Outputs() []attribute.Descriptor {
	return []attribute.Descriptor{
		{
			Key:       KeyDocuments,
			Type:      TypeDocuments,
			Direction: attribute.InputOutput,
			Doc:       attribute.Doc{Label: "Documents"},
		},
		{
			Key:       KeyTotalMatched,
			Type:      attribute.TypeInt,
			Direction: attribute.InputOutput,
			Doc:       attribute.Doc{Label: "Total matched", Advanced: true},
		},
	}
}

// Process implements component.Component
func (s *CollectorSink) Process(_ context.Context, attrs *attribute.Context) error {
	raw, _ := attrs.Get(KeyDocuments)
	docs, ok := raw.([]Document)
	if !ok {
		return fmt.Errorf("attribute %s: expected []Document, got %T", KeyDocuments, raw)
	}

	if s.maxDocuments > 0 && len(docs) > s.maxDocuments {
		docs = docs[:s.maxDocuments]
	}
	attrs.Set(KeyDocuments, docs)
	return nil
}
