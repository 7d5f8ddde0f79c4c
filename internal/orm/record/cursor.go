package record

import (
	"context"
	"sync"
)

// Cursor iterates records produced by a query. Records are materialized as
// they are read.
type Cursor interface {
	HasNext() bool
	Next(ctx context.Context) (*Record, error)
	First(ctx context.Context) (*Record, error)
	ToArray(ctx context.Context) ([]*Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Materializer turns a stored document into a record
type Materializer func(doc map[string]interface{}) (*Record, error)

type documentCursor struct {
	mu          sync.Mutex
	docs        []map[string]interface{}
	pos         int
	closed      bool
	materialize Materializer
}

// NewDocumentCursor returns a cursor over already fetched documents
func NewDocumentCursor(docs []map[string]interface{}, materialize Materializer) Cursor {
	return &documentCursor{docs: docs, materialize: materialize}
}

// EmptyCursor returns a cursor without records
func EmptyCursor() Cursor {
	return &documentCursor{}
}

func (c *documentCursor) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.pos < len(c.docs)
}

// Next returns the next record, or nil when the cursor is exhausted
func (c *documentCursor) Next(ctx context.Context) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed || c.pos >= len(c.docs) {
		return nil, nil
	}
	doc := c.docs[c.pos]
	c.pos++
	return c.materialize(doc)
}

// First returns the first unread record, or nil, and closes the cursor
func (c *documentCursor) First(ctx context.Context) (*Record, error) {
	defer c.Close()
	return c.Next(ctx)
}

// ToArray reads all remaining records and closes the cursor
func (c *documentCursor) ToArray(ctx context.Context) ([]*Record, error) {
	defer c.Close()

	records := make([]*Record, 0, c.remaining())
	for c.HasNext() {
		r, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Count returns the number of unread records
func (c *documentCursor) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.remaining(), nil
}

func (c *documentCursor) remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	return len(c.docs) - c.pos
}

func (c *documentCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.docs = nil
	return nil
}
