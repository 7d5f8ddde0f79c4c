package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Number holds number, float and decimal attributes as float64
type Number struct{}

func (Number) Schema() Schema { return Schema{Kind: "number", Nullable: true} }

func (Number) Normalize(value interface{}) (interface{}, error) {
	return toFloat(value)
}

func (Number) Serialize(value interface{}) (interface{}, error) {
	return toFloat(value)
}

func (Number) Objectize(value interface{}) interface{} {
	v, err := toFloat(value)
	if err != nil {
		return nil
	}
	return v
}

// Integer holds integer attributes as int64, truncating fractional input
type Integer struct{}

func (Integer) Schema() Schema { return Schema{Kind: "integer", Nullable: true} }

func (Integer) Normalize(value interface{}) (interface{}, error) {
	return toInt(value)
}

func (Integer) Serialize(value interface{}) (interface{}, error) {
	return toInt(value)
}

func (Integer) Objectize(value interface{}) interface{} {
	v, err := toInt(value)
	if err != nil {
		return nil
	}
	return v
}

func toFloat(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalid("number", value)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, invalid("number", value)
		}
		return f, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, invalid("number", value)
}

func toInt(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, invalid("integer", value)
		}
		return truncate(f, value)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid("integer", value)
		}
		return truncate(f, value)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows integer", ErrInvalidValue, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return truncate(rv.Float(), value)
	}
	return nil, invalid("integer", value)
}

// truncate drops the fraction of f; values outside the int64 range fail
func truncate(f float64, value interface{}) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, invalid("integer", value)
	}
	return int64(math.Trunc(f)), nil
}
