package collection

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator assigns ids to pushed documents that have none
type IDGenerator interface {
	NextID() interface{}
}

// UUIDGenerator generates random UUID strings
type UUIDGenerator struct{}

// NextID returns a new UUID
func (UUIDGenerator) NextID() interface{} {
	return uuid.NewString()
}

// SequenceGenerator generates increasing integer ids starting at 1
type SequenceGenerator struct {
	last atomic.Int64
}

// NewSequenceGenerator creates a generator whose first id is start+1
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.last.Store(start)
	return g
}

// NextID returns the next integer id
func (g *SequenceGenerator) NextID() interface{} {
	return g.last.Add(1)
}
