package locator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joeycumines/uidriver/internal/uitree"
)

// Source provides the current widget tree of one application.
type Source interface {
	Snapshot(ctx context.Context) (*uitree.Snapshot, error)
}

// Handle is a resolved reference to one live widget. It is only valid for
// the operation that obtained it: Node is a copy taken from snapshot Seq,
// and the widget may have changed or vanished since.
type Handle struct {
	Locator Locator
	Node    uitree.Node
	Seq     uint64
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s@%d", h.Locator, h.Seq)
}

// Resolver resolves locators against a [Source]. It keeps no state between
// calls.
type Resolver struct {
	src    Source
	logger *slog.Logger
}

// NewResolver returns a Resolver reading from src.
func NewResolver(src Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{src: src, logger: logger}
}

// Resolve returns the single widget matched by l. It fails with a
// *ResolveError wrapping ErrNotFound or ErrAmbiguous otherwise.
func (r *Resolver) Resolve(ctx context.Context, l Locator) (*Handle, error) {
	snap, nodes, err := r.match(ctx, l)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, &ResolveError{Locator: l, Err: ErrNotFound}
	case 1:
		return &Handle{Locator: l, Node: nodes[0].Shallow(), Seq: snap.Seq}, nil
	default:
		return nil, &ResolveError{Locator: l, Matches: len(nodes), Err: ErrAmbiguous}
	}
}

// FindAll returns every widget matched by l in document order. No matches
// is not an error.
func (r *Resolver) FindAll(ctx context.Context, l Locator) ([]*Handle, error) {
	snap, nodes, err := r.match(ctx, l)
	if err != nil {
		return nil, err
	}
	handles := make([]*Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = &Handle{Locator: l, Node: n.Shallow(), Seq: snap.Seq}
	}
	return handles, nil
}

// Exists reports whether l currently resolves to exactly one widget. An
// ambiguous locator is reported as an error rather than false.
func (r *Resolver) Exists(ctx context.Context, l Locator) (bool, error) {
	_, nodes, err := r.match(ctx, l)
	if err != nil {
		return false, err
	}
	if len(nodes) > 1 {
		return false, &ResolveError{Locator: l, Matches: len(nodes), Err: ErrAmbiguous}
	}
	return len(nodes) == 1, nil
}

func (r *Resolver) match(ctx context.Context, l Locator) (*uitree.Snapshot, []*uitree.Node, error) {
	if l.IsZero() {
		return nil, nil, fmt.Errorf("%w: zero locator", ErrSyntax)
	}
	snap, err := r.src.Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read widget tree: %w", err)
	}
	nodes := Match(snap, l)
	r.logger.Debug("resolved locator",
		slog.String("locator", l.String()),
		slog.Uint64("seq", snap.Seq),
		slog.Int("matches", len(nodes)))
	return snap, nodes, nil
}

// Match returns the nodes of snap matched by l, deduplicated and in
// document order. The snapshot root stands for the application itself and
// is the context of the first segment; it is never matched.
//
// Only effectively visible widgets (the widget and all its ancestors
// visible) match a segment, unless that segment has its own "visible"
// predicate.
func Match(snap *uitree.Snapshot, l Locator) []*uitree.Node {
	if snap == nil || snap.Root == nil || l.IsZero() {
		return nil
	}
	if l.app != AnyApp && l.app != snap.App {
		return nil
	}

	idx := newTreeIndex(snap.Root)
	current := []*uitree.Node{snap.Root}
	for _, seg := range l.segments {
		seen := make(map[*uitree.Node]bool)
		var next []*uitree.Node
		add := func(n *uitree.Node) {
			if !seen[n] && idx.matches(seg, n) {
				seen[n] = true
				next = append(next, n)
			}
		}
		for _, c := range current {
			if seg.Axis == Descendant {
				for _, child := range c.Children {
					child.Walk(func(n, _ *uitree.Node) bool {
						add(n)
						return true
					})
				}
			} else {
				for _, child := range c.Children {
					add(child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		sort.Slice(next, func(i, j int) bool {
			return idx.order[next[i]] < idx.order[next[j]]
		})
		current = next
	}
	return current
}

type treeIndex struct {
	order   map[*uitree.Node]int
	visible map[*uitree.Node]bool
}

func newTreeIndex(root *uitree.Node) *treeIndex {
	idx := &treeIndex{
		order:   make(map[*uitree.Node]int),
		visible: make(map[*uitree.Node]bool),
	}
	root.Walk(func(n, parent *uitree.Node) bool {
		if n == nil {
			return false
		}
		idx.order[n] = len(idx.order)
		vis := n.IsVisible()
		if parent != nil {
			vis = vis && idx.visible[parent]
		}
		idx.visible[n] = vis
		return true
	})
	return idx
}

func (idx *treeIndex) matches(seg Segment, n *uitree.Node) bool {
	if n == nil {
		return false
	}
	if seg.Type != "" && seg.Type != n.Type {
		return false
	}
	if !idx.visible[n] && !seg.hasPred("visible") {
		return false
	}
	for _, p := range seg.Preds {
		v, ok := n.Property(p.Name)
		if !ok || !p.Match(v) {
			return false
		}
	}
	return true
}
