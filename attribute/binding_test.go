package attribute

import (
	goerrors "errors"
	"testing"

	"github.com/openscripts/carrot2/errors"
)

func TestBindMaterializesDefaults(t *testing.T) {
	ctx := FromMap(map[string]any{"core.query": "salsa"})
	inputs := []Descriptor{
		{Key: "core.query", Type: TypeString, Direction: Input},
		{Key: "core.requested-results", Type: TypeInt, Default: 100, Direction: Input},
	}

	if err := Bind(ctx, "source", inputs); err != nil {
		t.Fatalf("Unexpected bind error: %v", err)
	}
	if v, _ := ctx.Get("core.requested-results"); v != 100 {
		t.Errorf("Expected default 100 materialized, got %v", v)
	}
}

func TestBindMissingRequired(t *testing.T) {
	ctx := NewContext()
	inputs := []Descriptor{
		{Key: "core.query", Type: TypeString, Direction: Input},
	}

	err := Bind(ctx, "source", inputs)
	var berr *errors.AttributeBindingError
	if !goerrors.As(err, &berr) {
		t.Fatalf("Expected AttributeBindingError, got %T: %v", err, err)
	}
	if berr.Component != "source" {
		t.Errorf("Component = %q, want source", berr.Component)
	}
	if len(berr.Missing) != 1 || berr.Missing[0] != "core.query" {
		t.Errorf("Missing = %v, want [core.query]", berr.Missing)
	}
}

func TestBindTypeMismatch(t *testing.T) {
	ctx := FromMap(map[string]any{
		"core.query":             42,
		"core.requested-results": "ten",
	})
	inputs := []Descriptor{
		{Key: "core.query", Type: TypeString, Direction: Input},
		{Key: "core.requested-results", Type: TypeInt, Direction: Input},
	}

	err := Bind(ctx, "source", inputs)
	var berr *errors.AttributeBindingError
	if !goerrors.As(err, &berr) {
		t.Fatalf("Expected AttributeBindingError, got %T: %v", err, err)
	}
	if len(berr.Mismatched) != 2 {
		t.Errorf("Mismatched = %v, want both keys", berr.Mismatched)
	}
}

func TestBindNoCoercion(t *testing.T) {
	ctx := FromMap(map[string]any{"threshold": 1})
	inputs := []Descriptor{
		{Key: "threshold", Type: TypeFloat, Direction: Input},
	}

	if err := Bind(ctx, "filter", inputs); err == nil {
		t.Error("Expected an int to fail a float descriptor, no coercion")
	}
}

func TestBindSkipsOutputDescriptors(t *testing.T) {
	ctx := NewContext()
	inputs := []Descriptor{
		{Key: "core.documents", Type: "documents", Direction: Output},
	}

	if err := Bind(ctx, "source", inputs); err != nil {
		t.Errorf("Output-direction descriptors must not be bound: %v", err)
	}
}

func TestCollectAbsentOutputIsNotAnError(t *testing.T) {
	ctx := NewContext()
	outputs := []Descriptor{
		{Key: "core.documents", Type: "documents", Direction: Output},
	}

	if err := Collect("source", outputs, ctx); err != nil {
		t.Errorf("An unproduced output must not fail collection: %v", err)
	}
}

func TestCollectTypeMismatch(t *testing.T) {
	ctx := FromMap(map[string]any{"core.total-matched": "many"})
	outputs := []Descriptor{
		{Key: "core.total-matched", Type: TypeInt, Direction: Output},
	}

	err := Collect("source", outputs, ctx)
	var berr *errors.AttributeBindingError
	if !goerrors.As(err, &berr) {
		t.Fatalf("Expected AttributeBindingError, got %T: %v", err, err)
	}
	if len(berr.Mismatched) != 1 || berr.Mismatched[0] != "core.total-matched" {
		t.Errorf("Mismatched = %v", berr.Mismatched)
	}
}
