package pipeline

import (
	"fmt"

	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/errors"
)

// Factory names for the built-in document components.
const (
	FactorySearchSource  = "search-source"
	FactoryScoreFilter   = "score-filter"
	FactoryCollectorSink = "collector-sink"
)

// Register registers the document component factories with the registry.
func Register(registry *component.Registry) error {
	if err := registry.RegisterFactory(FactorySearchSource, &component.Registration{
		Name:        FactorySearchSource,
		Kind:        component.Source,
		Description: "Matches documents from an in-memory index against a query",
		Version:     "1.0.0",
		Schema: component.ConfigSchema{
			Properties: map[string]component.PropertySchema{
				"documents": {
					Type:        "any",
					Description: "Document index served by the source",
				},
			},
		},
		Factory: newSearchSourceFromParams,
	}); err != nil {
		return errors.Wrap(err, "pipeline", "Register", "search-source registration")
	}

	if err := registry.RegisterFactory(FactoryScoreFilter, &component.Registration{
		Name:        FactoryScoreFilter,
		Kind:        component.Transform,
		Description: "Drops documents scoring below a threshold",
		Version:     "1.0.0",
		Factory: func(_ map[string]any) (component.Component, error) {
			return NewScoreFilter(), nil
		},
	}); err != nil {
		return errors.Wrap(err, "pipeline", "Register", "score-filter registration")
	}

	if err := registry.RegisterFactory(FactoryCollectorSink, &component.Registration{
		Name:        FactoryCollectorSink,
		Kind:        component.Sink,
		Description: "Bounds and republishes the final document list",
		Version:     "1.0.0",
		Schema: component.ConfigSchema{
			Properties: map[string]component.PropertySchema{
				"max_documents": {
					Type:        "int",
					Description: "Upper bound on returned documents, 0 keeps everything",
					Default:     0,
				},
			},
		},
		Factory: newCollectorSinkFromParams,
	}); err != nil {
		return errors.Wrap(err, "pipeline", "Register", "collector-sink registration")
	}

	return nil
}

// newSearchSourceFromParams builds a SearchSource from constructor
// parameters. The "documents" parameter accepts []Document directly or
// the []any/map form produced by configuration decoding.
func newSearchSourceFromParams(params map[string]any) (component.Component, error) {
	raw, ok := params["documents"]
	if !ok {
		return NewSearchSource(nil), nil
	}

	switch docs := raw.(type) {
	case []Document:
		return NewSearchSource(docs), nil
	case []any:
		index := make([]Document, 0, len(docs))
		for i, item := range docs {
			doc, err := documentFromMap(item)
			if err != nil {
				return nil, fmt.Errorf("documents[%d]: %w", i, err)
			}
			index = append(index, doc)
		}
		return NewSearchSource(index), nil
	default:
		return nil, fmt.Errorf("documents: expected []Document or list, got %T", raw)
	}
}

// newCollectorSinkFromParams builds a CollectorSink from constructor
// parameters.
func newCollectorSinkFromParams(params map[string]any) (component.Component, error) {
	maxDocuments := 0
	if v, ok := params["max_documents"]; ok {
		n, ok := v.(int)
		if !ok {
			return nil, fmt.Errorf("max_documents: expected int, got %T", v)
		}
		maxDocuments = n
	}
	return NewCollectorSink(maxDocuments), nil
}

// documentFromMap decodes one document from configuration form.
func documentFromMap(item any) (Document, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("expected mapping, got %T", item)
	}

	var doc Document
	if v, ok := m["id"].(string); ok {
		doc.ID = v
	}
	if v, ok := m["title"].(string); ok {
		doc.Title = v
	}
	if v, ok := m["snippet"].(string); ok {
		doc.Snippet = v
	}
	if v, ok := m["url"].(string); ok {
		doc.URL = v
	}
	switch v := m["score"].(type) {
	case float64:
		doc.Score = v
	case int:
		doc.Score = float64(v)
	}
	if doc.ID == "" && doc.Title == "" {
		return Document{}, fmt.Errorf("document needs at least an id or a title")
	}
	return doc, nil
}
