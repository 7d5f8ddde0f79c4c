package transform

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// String holds string and text attributes
type String struct{}

func (String) Schema() Schema { return Schema{Kind: "string", Nullable: true} }

func (String) Normalize(value interface{}) (interface{}, error) {
	return toString(value)
}

func (String) Serialize(value interface{}) (interface{}, error) {
	return toString(value)
}

func (String) Objectize(value interface{}) interface{} {
	v, err := toString(value)
	if err != nil {
		return nil
	}
	return v
}

func toString(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return nil, invalid("string", value)
}

// PrimaryKey holds record identifiers. Strings and integers are kept as they
// are; anything printable (uuid.UUID for instance) becomes its string form.
type PrimaryKey struct{}

func (PrimaryKey) Schema() Schema { return Schema{Kind: "primary_key", Nullable: true} }

func (p PrimaryKey) Normalize(value interface{}) (interface{}, error) {
	return p.coerce(value)
}

func (p PrimaryKey) Serialize(value interface{}) (interface{}, error) {
	return p.coerce(value)
}

func (p PrimaryKey) Objectize(value interface{}) interface{} {
	v, err := p.coerce(value)
	if err != nil {
		return nil
	}
	return v
}

func (PrimaryKey) coerce(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, string, int64:
		return value, nil
	case uint64:
		// ids above the int64 range stay unsigned
		if v > math.MaxInt64 {
			return v, nil
		}
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return uint64(v), nil
		}
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u, nil
		}
		return toInt(v)
	case int, int32, uint32, float64:
		return toInt(value)
	}
	return toString(value)
}

// Binary holds []byte in memory and base64 text in storage
type Binary struct{}

func (Binary) Schema() Schema { return Schema{Kind: "binary", Nullable: true} }

func (Binary) Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return b, nil
	}
	return nil, invalid("binary", value)
}

func (b Binary) Serialize(value interface{}) (interface{}, error) {
	v, err := b.Normalize(value)
	if err != nil || v == nil {
		return v, err
	}
	return base64.StdEncoding.EncodeToString(v.([]byte)), nil
}

func (b Binary) Objectize(value interface{}) interface{} {
	v, err := b.Serialize(value)
	if err != nil {
		return nil
	}
	return v
}
