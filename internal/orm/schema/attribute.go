package schema

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conduit-lang/mapper/internal/orm/transform"
)

// AttributeOptions declares a persisted attribute
type AttributeOptions struct {
	Type      Type
	Transform transform.Transform // overrides the type's transform
	// Validate is an expr rule evaluated with `value` and `name` in scope,
	// e.g. "value == nil || len(value) <= 64".
	Validate string
	Default  interface{}
}

// Attribute is a declared attribute of a record type
type Attribute struct {
	Name      string
	Type      Type
	Transform transform.Transform
	Rule      string
	Default   interface{}
	Owner     *RecordType

	program *vm.Program
}

func newAttribute(owner *RecordType, name string, opts AttributeOptions) (*Attribute, error) {
	if opts.Type == TypeNone {
		return nil, ErrMissingType
	}

	t := opts.Transform
	if t == nil {
		var err error
		if t, err = opts.Type.Transform(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownType, err)
		}
	}

	attr := &Attribute{
		Name:      name,
		Type:      opts.Type,
		Transform: t,
		Rule:      opts.Validate,
		Default:   opts.Default,
		Owner:     owner,
	}

	if opts.Validate != "" {
		program, err := expr.Compile(opts.Validate,
			expr.Env(map[string]interface{}{}),
			expr.AllowUndefinedVariables(),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		attr.program = program
	}

	return attr, nil
}

// Check evaluates the attribute's validation rule against a normalized value
func (a *Attribute) Check(value interface{}) error {
	if a.program == nil {
		return nil
	}

	out, err := expr.Run(a.program, map[string]interface{}{
		"value": value,
		"name":  a.Name,
	})
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrRuleViolation, a.Rule, err)
	}
	if ok, _ := out.(bool); !ok {
		return fmt.Errorf("%w %q", ErrRuleViolation, a.Rule)
	}
	return nil
}

// AttributeReader exposes attribute values to computed properties
type AttributeReader interface {
	Get(name string) interface{}
}

// Computed is a read-only property derived from other attributes
type Computed struct {
	Name string
	Type Type
	Get  func(r AttributeReader) interface{}
}
