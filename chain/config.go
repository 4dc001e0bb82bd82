package chain

import (
	"fmt"

	"github.com/openscripts/carrot2/capability"
	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/config"
	"github.com/openscripts/carrot2/errors"
)

// AssembleFromConfig resolves a chain configuration against the component
// registry and assembles the resulting components. Factory names and
// constructor parameters are resolved exactly once, here, before any
// component starts.
func AssembleFromConfig(reg *component.Registry, cfg config.ChainConfig) (*Chain, error) {
	if len(cfg.Components) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyChain, "chain", "AssembleFromConfig", "component list validation")
	}

	components := make([]component.Component, 0, len(cfg.Components))
	for i, cc := range cfg.Components {
		comp, err := reg.Create(cc.Name, cc.Params)
		if err != nil {
			return nil, errors.Wrap(err, "chain", "AssembleFromConfig",
				fmt.Sprintf("create component %d (%s)", i, cc.Name))
		}
		components = append(components, comp)
	}

	terminal := capability.NewSet()
	for _, c := range cfg.Terminal {
		terminal.Add(capability.Capability(c))
	}

	return Assemble(cfg.Name, components, terminal)
}
