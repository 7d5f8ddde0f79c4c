package transform

import (
	"encoding/json"
	"reflect"
	"time"
)

// Object holds hash and json attributes as map[string]interface{}.
// nil becomes an empty map. Normalize turns nested ISO strings into times
// and nested json.Number values into float64; Serialize/Objectize turn
// nested times back into ISO strings.
type Object struct{}

func (Object) Schema() Schema { return Schema{Kind: "object", Nullable: true} }

func (Object) Normalize(value interface{}) (interface{}, error) {
	m, err := toMap(value)
	if err != nil {
		return nil, err
	}
	return walk(m, inflate).(map[string]interface{}), nil
}

func (Object) Serialize(value interface{}) (interface{}, error) {
	m, err := toMap(value)
	if err != nil {
		return nil, err
	}
	return walk(m, flattenTimes).(map[string]interface{}), nil
}

func (o Object) Objectize(value interface{}) interface{} {
	v, err := o.Serialize(value)
	if err != nil {
		return map[string]interface{}{}
	}
	return v
}

// Array holds array attributes as []interface{}, converting nested values the
// same way Object does.
type Array struct{}

func (Array) Schema() Schema { return Schema{Kind: "array", Nullable: true} }

func (Array) Normalize(value interface{}) (interface{}, error) {
	s, err := toSlice(value)
	if err != nil {
		return nil, err
	}
	return walk(s, inflate), nil
}

func (Array) Serialize(value interface{}) (interface{}, error) {
	s, err := toSlice(value)
	if err != nil {
		return nil, err
	}
	return walk(s, flattenTimes), nil
}

func (a Array) Objectize(value interface{}) interface{} {
	v, err := a.Serialize(value)
	if err != nil {
		return []interface{}{}
	}
	return v
}

func toMap(value interface{}) (map[string]interface{}, error) {
	if value == nil {
		return map[string]interface{}{}, nil
	}
	if m, ok := value.(map[string]interface{}); ok {
		return m, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, invalid("object", value)
	}
	m := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, nil
}

func toSlice(value interface{}) ([]interface{}, error) {
	if value == nil {
		return []interface{}{}, nil
	}
	if s, ok := value.([]interface{}); ok {
		return s, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, invalid("array", value)
	}
	s := make([]interface{}, rv.Len())
	for i := range s {
		s[i] = rv.Index(i).Interface()
	}
	return s, nil
}

func inflate(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if IsISOTime(val) {
			if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return t
			}
		}
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
	}
	return v
}

func flattenTimes(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatTime(*t)
	}
	return v
}

// walk copies nested maps and slices, applying leaf to every other value
func walk(v interface{}, leaf func(interface{}) interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = walk(item, leaf)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = walk(item, leaf)
		}
		return out
	default:
		return leaf(v)
	}
}
