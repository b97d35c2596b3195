package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/uidriver/internal/uitree"
)

// ErrNoTree is returned by TreeSource before the first Set.
var ErrNoTree = errors.New("no widget tree published")

// TreeSource is an in-memory widget tree source. Each Set publishes a new
// snapshot with the next sequence number.
type TreeSource struct {
	mu    sync.Mutex
	app   string
	seq   uint64
	snap  *uitree.Snapshot
	calls int
}

// NewTreeSource returns a source for app, optionally seeded with root.
func NewTreeSource(app string, root *uitree.Node) *TreeSource {
	s := &TreeSource{app: app}
	if root != nil {
		s.Set(root)
	}
	return s
}

// Set publishes root as the latest snapshot.
func (s *TreeSource) Set(root *uitree.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.snap = &uitree.Snapshot{Seq: s.seq, App: s.app, Root: root}
}

// Update applies fn to a copy of the current root and publishes the result
// as a new snapshot. Snapshots already handed out are left untouched.
func (s *TreeSource) Update(fn func(root *uitree.Node)) {
	s.mu.Lock()
	var root *uitree.Node
	if s.snap != nil {
		root = s.snap.Root.Clone()
	}
	s.mu.Unlock()
	fn(root)
	s.Set(root)
}

// Snapshot implements locator.Source.
func (s *TreeSource) Snapshot(ctx context.Context) (*uitree.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.snap == nil {
		return nil, ErrNoTree
	}
	return s.snap, nil
}

// Calls returns how many times Snapshot has been called.
func (s *TreeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
