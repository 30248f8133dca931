package rcheap

import "testing"

func TestMarkSharedPromotesWholeTree(t *testing.T) {
	left := &Block{Header: Header{Refcount: 0}}
	right := &Block{Header: Header{Refcount: 0}}
	root := &Block{
		Header: Header{Refcount: 0, ScanFsize: 2},
		Fields: []Box{BoxBlock(left), BoxBlock(right)},
	}
	ctx := NewContext()
	MarkShared(root, ctx)

	for _, b := range []*Block{root, left, right} {
		if !b.Header.ThreadShared {
			t.Fatal("expected every reachable block to be thread-shared")
		}
		if b.Header.Refcount < RCShared {
			t.Fatalf("expected refcount to be promoted into the shared range, got %x", b.Header.Refcount)
		}
	}
}

func TestMarkSharedMemoizesAlreadySharedSubtree(t *testing.T) {
	shared := &Block{Header: Header{Refcount: RCShared, ThreadShared: true}}
	before := shared.Header.Refcount

	root := &Block{
		Header: Header{Refcount: 0, ScanFsize: 1},
		Fields: []Box{BoxBlock(shared)},
	}
	ctx := NewContext()
	MarkShared(root, ctx)

	if shared.Header.Refcount != before {
		t.Fatalf("already-shared subtree must not be re-promoted: got %x, want %x", shared.Header.Refcount, before)
	}
}

func TestMarkSharedDAGVisitedOnce(t *testing.T) {
	// Two parents sharing one child: the child must end up thread-shared
	// exactly once (memoization stops the second path from re-entering).
	child := &Block{Header: Header{Refcount: 1}}
	left := &Block{Header: Header{Refcount: 0, ScanFsize: 1}, Fields: []Box{BoxBlock(child)}}
	right := &Block{Header: Header{Refcount: 0, ScanFsize: 1}, Fields: []Box{BoxBlock(child)}}
	root := &Block{
		Header: Header{Refcount: 0, ScanFsize: 2},
		Fields: []Box{BoxBlock(left), BoxBlock(right)},
	}
	ctx := NewContext()
	MarkShared(root, ctx)

	if child.Header.Refcount != RCShared+2 {
		t.Fatalf("refcount = %x, want %x (one promotion of a 2-referenced child)", child.Header.Refcount, RCShared+2)
	}
}

func TestMarkSharedDeepRecursionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic once mark_shared recursion depth is exceeded")
		}
	}()

	// A tree deep enough that real (non-tail-call) recursion must exceed
	// MaxRecurseDepth: each level's first field nests the next level, its
	// second field is a disposable leaf.
	var node *Block
	for i := 0; i < 2*MaxRecurseDepth; i++ {
		leaf := &Block{Header: Header{Refcount: 0}}
		b := &Block{Header: Header{Refcount: 0, ScanFsize: 1}, Fields: []Box{BoxBlock(leaf)}}
		if node != nil {
			b.Header.ScanFsize = 2
			b.Fields = []Box{BoxBlock(node), BoxBlock(leaf)}
		}
		node = b
	}
	MarkShared(node, NewContext())
}
