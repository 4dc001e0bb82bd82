package attribute

import "github.com/openscripts/carrot2/errors"

// Bind prepares the context for a component by materializing its declared
// Input and InputOutput attributes: present values are checked against the
// declared type, absent values fall back to the descriptor default. A
// required input that is absent with no default, or a value failing its
// declared type, fails with an AttributeBindingError naming every
// offending key. Unknown context keys are ignored. No implicit coercion is
// performed.
func Bind(ctx *Context, componentName string, inputs []Descriptor) error {
	bindErr := &errors.AttributeBindingError{Component: componentName}

	for _, desc := range inputs {
		if desc.Direction == Output {
			continue
		}

		value, present := ctx.Get(desc.Key)
		if !present {
			if desc.Default != nil {
				ctx.Set(desc.Key, desc.Default)
				continue
			}
			bindErr.Missing = append(bindErr.Missing, desc.Key)
			continue
		}

		if !desc.Type.Accepts(value) {
			bindErr.Mismatched = append(bindErr.Mismatched, desc.Key)
		}
	}

	if len(bindErr.Missing) > 0 || len(bindErr.Mismatched) > 0 {
		return bindErr
	}
	return nil
}

// Collect verifies the Output and InputOutput attributes a component wrote
// back into the context. A produced value failing its declared type fails
// with an AttributeBindingError; an output the component chose not to
// produce is not an error (the result simply omits it).
func Collect(componentName string, outputs []Descriptor, ctx *Context) error {
	bindErr := &errors.AttributeBindingError{Component: componentName}

	for _, desc := range outputs {
		if desc.Direction == Input {
			continue
		}
		value, present := ctx.Get(desc.Key)
		if !present {
			continue
		}
		if !desc.Type.Accepts(value) {
			bindErr.Mismatched = append(bindErr.Mismatched, desc.Key)
		}
	}

	if len(bindErr.Mismatched) > 0 {
		return bindErr
	}
	return nil
}
