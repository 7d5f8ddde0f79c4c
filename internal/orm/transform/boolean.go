package transform

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Boolean coerces values with a permissive truthiness rule: nil is false,
// numbers are true unless zero, and strings are true unless they spell a
// false value ("", "0", "false", "no", "off", "null").
type Boolean struct{}

func (Boolean) Schema() Schema { return Schema{Kind: "boolean", Nullable: true} }

func (b Boolean) Normalize(value interface{}) (interface{}, error) {
	return b.coerce(value)
}

func (b Boolean) Serialize(value interface{}) (interface{}, error) {
	return b.coerce(value)
}

func (b Boolean) Objectize(value interface{}) interface{} {
	v, err := b.coerce(value)
	if err != nil {
		return false
	}
	return v
}

func (Boolean) coerce(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalid("boolean", value)
		}
		return f != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "off", "null":
			return false, nil
		}
		return true, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	}
	return nil, invalid("boolean", value)
}
