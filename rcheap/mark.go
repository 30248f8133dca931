package rcheap

// Shared-mark engine (C5). Grounded 1:1 on kklib's kk_block_mark_shared_rec /
// kk_block_mark_shared / kk_box_mark_shared. Structure mirrors the drop
// engine: tail-call on single-child blocks, bounded recursion on wider ones.
// A block already thread_shared terminates its subtree immediately
// (memoization) — this is what keeps mark_shared linear instead of
// exponential on DAGs with shared substructure.

// MarkShared promotes b and every block transitively reachable from it to
// the thread-shared state.
func MarkShared(b *Block, ctx *Context) {
	if !b.Header.ThreadShared {
		markSharedRec(b, 0, ctx)
	}
}

// MarkSharedBox promotes the block held by v, if any.
func MarkSharedBox(v Box, ctx *Context) {
	if v.IsPtr() {
		MarkShared(v.Block(), ctx)
	}
}

// markSharedRec is the depth-overflow-is-fatal traversal spec.md §9 records
// as an open question: the original's kk_assert(false) TODO is carried
// forward verbatim rather than inventing an untested delayed-work scheme for
// a path with no coverage upstream.
func markSharedRec(b *Block, depth int, ctx *Context) {
	for {
		if b.Header.ThreadShared {
			return
		}

		MakeShared(b)
		start, count := b.EffectiveScan()
		switch {
		case count == 0:
			return
		case count == 1:
			v := b.Fields[start]
			if v.IsPtr() {
				b = v.Block()
				continue // tail call
			}
			return
		default:
			if depth >= MaxRecurseDepth {
				panic("rcheap: mark_shared recursion depth exceeded")
			}

			for i := start; i < start+count-1; i++ {
				v := b.Fields[i]
				if v.IsPtr() {
					markSharedRec(v.Block(), depth+1, ctx)
				}
			}

			last := b.Fields[start+count-1]
			if last.IsPtr() {
				b = last.Block()
				continue // tail call
			}
			return
		}
	}
}
