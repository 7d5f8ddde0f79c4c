package collection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_Documents(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	require.NoError(t, m.Push(ctx, "books", map[string]interface{}{"id": "b", "title": "Dune"}))
	require.NoError(t, m.Push(ctx, "books", map[string]interface{}{"id": "a", "title": "Emma"}))

	err := m.Push(ctx, "books", map[string]interface{}{"id": "a"})
	assert.ErrorIs(t, err, ErrDuplicate)

	doc, err := m.Take(ctx, "books", "a")
	require.NoError(t, err)
	assert.Equal(t, "Emma", doc["title"])

	docs, err := m.Query(ctx, "books")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0]["id"])
	assert.Equal(t, "b", docs[1]["id"])

	require.NoError(t, m.Override(ctx, "books", "a", map[string]interface{}{"id": "a", "title": "Persuasion"}))
	doc, err = m.Take(ctx, "books", "a")
	require.NoError(t, err)
	assert.Equal(t, "Persuasion", doc["title"])

	assert.ErrorIs(t, m.Override(ctx, "books", "z", map[string]interface{}{}), ErrNotFound)

	require.NoError(t, m.Remove(ctx, "books", "a"))
	assert.ErrorIs(t, m.Remove(ctx, "books", "a"), ErrNotFound)

	_, err = m.Take(ctx, "books", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAdapter_DocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	doc := map[string]interface{}{"id": "a", "tags": []interface{}{"x"}}
	require.NoError(t, m.Push(ctx, "books", doc))
	doc["tags"] = nil

	stored, err := m.Take(ctx, "books", "a")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x"}, stored["tags"])
}

func TestMemoryAdapter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemoryAdapter()
	assert.ErrorIs(t, m.Push(ctx, "books", map[string]interface{}{"id": 1}), context.Canceled)
	_, err := m.Query(ctx, "books")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryAdapter_Schema(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	require.NoError(t, m.CreateCollection(ctx, "books"))
	require.NoError(t, m.Push(ctx, "books", map[string]interface{}{"id": 1}))
	require.NoError(t, m.AddIndex(ctx, "books", IndexSpec{Name: "by_title", Fields: []string{"title"}}))
	assert.ErrorIs(t, m.AddIndex(ctx, "books", IndexSpec{Name: "by_title"}), ErrDuplicate)

	require.NoError(t, m.RenameCollection(ctx, "books", "novels"))
	assert.Equal(t, []string{"novels"}, m.Collections())

	ok, err := m.Includes(ctx, "novels", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.RenameIndex(ctx, "novels", "by_title", "title_idx"))
	assert.Equal(t, []IndexSpec{{Name: "title_idx", Fields: []string{"title"}}}, m.Indexes("novels"))

	require.NoError(t, m.RemoveIndex(ctx, "novels", "title_idx"))
	assert.ErrorIs(t, m.RemoveIndex(ctx, "novels", "title_idx"), ErrNotFound)

	require.NoError(t, m.DropCollection(ctx, "novels"))
	assert.Empty(t, m.Collections())
	assert.ErrorIs(t, m.RenameCollection(ctx, "novels", "books"), ErrNotFound)
}

func TestMemoryAdapter_QueryOrdersIntegerKeysNumerically(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	for _, id := range []interface{}{10, "b", 9, 2, "a", 11} {
		require.NoError(t, m.Push(ctx, "books", map[string]interface{}{"id": id}))
	}

	docs, err := m.Query(ctx, "books")
	require.NoError(t, err)
	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = DocumentKey(doc["id"])
	}
	assert.Equal(t, []string{"2", "9", "10", "11", "a", "b"}, keys)
}

func TestMemoryAdapter_KeepsLargeIntegers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	require.NoError(t, m.Push(ctx, "books", map[string]interface{}{"id": "a", "copies": int64(9007199254740993)}))
	doc, err := m.Take(ctx, "books", "a")
	require.NoError(t, err)
	n, err := doc["copies"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), n)
}
