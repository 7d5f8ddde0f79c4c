package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Adapter stores documents grouped by collection name. Documents are keyed
// by DocumentKey of their "id" field.
type Adapter interface {
	Push(ctx context.Context, collection string, doc map[string]interface{}) error
	Override(ctx context.Context, collection string, id interface{}, doc map[string]interface{}) error
	Remove(ctx context.Context, collection string, id interface{}) error
	Take(ctx context.Context, collection string, id interface{}) (map[string]interface{}, error)
	// Query returns every document of the collection ordered by key
	Query(ctx context.Context, collection string) ([]map[string]interface{}, error)
	Includes(ctx context.Context, collection string, id interface{}) (bool, error)
}

// IndexSpec describes a secondary index on document fields
type IndexSpec struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique"`
	// Sparse skips documents missing the indexed fields. Only adapters that
	// keep index metadata honour it.
	Sparse bool   `json:"sparse,omitempty"`
	Type   string `json:"type,omitempty"`
}

// SchemaAdapter is implemented by adapters that manage collections and
// indexes explicitly
type SchemaAdapter interface {
	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error
	RenameCollection(ctx context.Context, oldName, newName string) error
	AddIndex(ctx context.Context, collection string, index IndexSpec) error
	RemoveIndex(ctx context.Context, collection, name string) error
	RenameIndex(ctx context.Context, collection, oldName, newName string) error
}

// DocumentKey renders an id as the string key used by adapters
func DocumentKey(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func encodeDocument(doc map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// decodeDocument keeps numbers as json.Number so integers beyond 2^53 survive
func decodeDocument(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// keyLess orders document keys: integer keys numerically and ahead of all
// other keys, which compare as strings
func keyLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

func copyDocument(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
