package record

import (
	"fmt"
)

// Normalize converts raw input or a stored document into typed attribute
// values. Missing attributes take their default or the transform's value
// for nil. The returned map is complete even when validation fails; the
// error is then a *ValidationError listing every failing field.
func (c *Class) Normalize(raw map[string]interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	var fieldErrors []FieldError

	for _, attr := range c.Type.Attributes() {
		value, ok := raw[attr.Name]
		if !ok {
			value = attr.Default
		}

		normalized, err := attr.Transform.Normalize(value)
		if err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: attr.Name, Message: err.Error()})
			continue
		}
		if err := attr.Check(normalized); err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: attr.Name, Message: err.Error()})
		}
		values[attr.Name] = normalized
	}

	if t, _ := values["type"].(string); t == "" {
		values["type"] = c.Name()
	}

	if len(fieldErrors) > 0 {
		return values, &ValidationError{Errors: fieldErrors}
	}
	return values, nil
}

// Recoverize normalizes only the attributes present in raw, for partial
// updates
func (c *Class) Recoverize(raw map[string]interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(raw))
	var fieldErrors []FieldError

	for name, value := range raw {
		attr, ok := c.Type.Attribute(name)
		if !ok {
			continue
		}
		normalized, err := attr.Transform.Normalize(value)
		if err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: name, Message: err.Error()})
			continue
		}
		if err := attr.Check(normalized); err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: name, Message: err.Error()})
		}
		values[name] = normalized
	}

	if len(fieldErrors) > 0 {
		return values, &ValidationError{Errors: fieldErrors}
	}
	return values, nil
}

// Serialize converts a record into its storage document
func (c *Class) Serialize(r *Record) (map[string]interface{}, error) {
	return c.serializeValues(r.values)
}

func (c *Class) serializeValues(values map[string]interface{}) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	for _, attr := range c.Type.Attributes() {
		v, err := attr.Transform.Serialize(values[attr.Name])
		if err != nil {
			return nil, fmt.Errorf("serialize %s.%s: %w", c.Name(), attr.Name, err)
		}
		doc[attr.Name] = v
	}
	return doc, nil
}

// Objectize converts a record into plain data for external consumers
func (c *Class) Objectize(r *Record) map[string]interface{} {
	obj := make(map[string]interface{})
	for _, attr := range c.Type.Attributes() {
		obj[attr.Name] = attr.Transform.Objectize(r.values[attr.Name])
	}
	return obj
}

// MakeSnapshot captures every attribute and computed property as plain data
func (c *Class) MakeSnapshot(r *Record) map[string]interface{} {
	snapshot := c.Objectize(r)
	for name, computed := range c.Type.Computeds() {
		value := computed.Get(r)
		if t, err := computed.Type.Transform(); err == nil {
			value = t.Objectize(value)
		}
		snapshot[name] = value
	}
	return snapshot
}
