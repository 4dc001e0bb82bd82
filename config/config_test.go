package config

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openscripts/carrot2/errors"
)

const validConfig = `
controller:
  cache_capacity: 8
  wait_timeout: 5s
  shutdown_grace: 2s
  stop_timeout: 1s
chains:
  - name: documents
    terminal: ["consumes:documents"]
    components:
      - name: search-source
        params:
          documents: []
      - name: collector-sink
        params:
          max_documents: 10
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}

	if cfg.Controller.CacheCapacity != 8 {
		t.Errorf("CacheCapacity = %d, want 8", cfg.Controller.CacheCapacity)
	}
	if cfg.Controller.WaitTimeout != 5*time.Second {
		t.Errorf("WaitTimeout = %v, want 5s", cfg.Controller.WaitTimeout)
	}
	if cfg.Controller.ShutdownGrace != 2*time.Second {
		t.Errorf("ShutdownGrace = %v, want 2s", cfg.Controller.ShutdownGrace)
	}

	chain, ok := cfg.Chain("documents")
	if !ok {
		t.Fatal("Expected chain 'documents'")
	}
	if len(chain.Components) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(chain.Components))
	}
	if chain.Components[1].Params["max_documents"] != 10 {
		t.Errorf("Component params lost: %+v", chain.Components[1].Params)
	}
	if len(chain.Terminal) != 1 || chain.Terminal[0] != "consumes:documents" {
		t.Errorf("Terminal = %v", chain.Terminal)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
chains:
  - name: minimal
    components:
      - name: search-source
`))
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}

	if cfg.Controller.CacheCapacity != DefaultCacheCapacity {
		t.Errorf("CacheCapacity = %d, want default %d", cfg.Controller.CacheCapacity, DefaultCacheCapacity)
	}
	if cfg.Controller.WaitTimeout != DefaultWaitTimeout {
		t.Errorf("WaitTimeout = %v, want default %v", cfg.Controller.WaitTimeout, DefaultWaitTimeout)
	}
	if cfg.Controller.StopTimeout != DefaultStopTimeout {
		t.Errorf("StopTimeout = %v, want default %v", cfg.Controller.StopTimeout, DefaultStopTimeout)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
controller:
  cache_capacityy: 8
chains:
  - name: documents
    components:
      - name: search-source
`))
	if err == nil {
		t.Fatal("Expected a schema violation for a misspelled field")
	}
	if !errors.IsInvalid(err) {
		t.Errorf("Expected an invalid-class error, got %v", err)
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte(`
controller:
  wait_timeout: "five seconds"
chains:
  - name: documents
    components:
      - name: search-source
`))
	if err == nil {
		t.Fatal("Expected an unparseable duration to fail")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "duplicate chain names",
			yaml: `
chains:
  - name: documents
    components:
      - name: search-source
  - name: documents
    components:
      - name: search-source
`,
		},
		{
			name: "chain without components",
			yaml: `
chains:
  - name: documents
    components: []
`,
		},
		{
			name: "zero cache capacity",
			yaml: `
controller:
  cache_capacity: 0
chains:
  - name: documents
    components:
      - name: search-source
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o600); err != nil {
		t.Fatalf("Writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected load error: %v", err)
	}
	if len(cfg.Chains) != 1 {
		t.Errorf("Expected 1 chain, got %d", len(cfg.Chains))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !goerrors.Is(err, errors.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestChainLookup(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, ok := cfg.Chain("documents"); !ok {
		t.Error("Expected to find chain 'documents'")
	}
	if _, ok := cfg.Chain("missing"); ok {
		t.Error("Did not expect to find chain 'missing'")
	}
}
