package transform

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// ISOLayout is the storage and transport layout for dates (UTC, milliseconds)
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// Date holds date, datetime, time and timestamp attributes as time.Time.
// Numbers are read as unix milliseconds.
type Date struct{}

func (Date) Schema() Schema { return Schema{Kind: "date", Nullable: true} }

func (Date) Normalize(value interface{}) (interface{}, error) {
	t, err := toTime(value)
	if err != nil || t == nil {
		return nil, err
	}
	return *t, nil
}

func (Date) Serialize(value interface{}) (interface{}, error) {
	t, err := toTime(value)
	if err != nil || t == nil {
		return nil, err
	}
	return FormatTime(*t), nil
}

func (d Date) Objectize(value interface{}) interface{} {
	v, err := d.Serialize(value)
	if err != nil {
		return nil
	}
	return v
}

// FormatTime renders t in ISOLayout
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// IsISOTime reports whether s looks like an ISO-8601 timestamp
func IsISOTime(s string) bool {
	return isoPattern.MatchString(s)
}

func toTime(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		return v, nil
	case json.Number:
		ms, err := toInt(v)
		if err != nil {
			return nil, invalid("date", value)
		}
		t := time.UnixMilli(ms.(int64)).UTC()
		return &t, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t, nil
			}
		}
		return nil, invalid("date", value)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		t := time.UnixMilli(rv.Int()).UTC()
		return &t, nil
	case reflect.Float32, reflect.Float64:
		t := time.UnixMilli(int64(rv.Float())).UTC()
		return &t, nil
	}
	return nil, invalid("date", value)
}
