// Package sink stores encoded per-state documents.
package sink

import (
	"context"
)

// Object describes one stored output
type Object struct {
	Name     string // logical name, e.g. "New_York.json"
	Location string // where the bytes ended up
	Size     int64  // bytes written
}

// Sink stores named outputs. Put overwrites any previous output of the
// same name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (Object, error)
}

// Discard accepts every output and stores nothing. It backs dry runs.
type Discard struct{}

// Put implements Sink
func (Discard) Put(ctx context.Context, name string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	return Object{Name: name, Size: int64(len(data))}, nil
}

var (
	_ Sink = (*Local)(nil)
	_ Sink = (*Memory)(nil)
	_ Sink = Discard{}
)
