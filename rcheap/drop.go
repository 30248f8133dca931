package rcheap

// Recursive drop engine (C4).
//
// Grounded 1:1 on kklib's kk_block_drop_free_rec / kk_block_push_delayed_drop_free
// / kk_block_drop_free_delayed (original_source/kklib/src/refcount.c). A list of
// length N must be freeable without O(N) native stack: a block with exactly one
// child slot is freed and the loop continues on the child with no added frame
// (tail call); a block with more than one child slot recurses into each child up
// to MaxRecurseDepth, deferring to ctx.DelayedFree past that bound so the top
// level traversal still terminates, with the delayed list drained by a fixpoint
// loop afterward. Siblings are visited left to right: every child but the last
// is freed (recursively) before its parent, the parent is freed next, and the
// last child is handled afterwards by the tail-call continuation rather than
// recursion. Blocks deferred to the delayed list are freed after the traversal
// that deferred them.
//
// Ordering rationale for the relaxed atomics used along this path (see
// atomic.go): a block only reaches this engine after its refcount provably hit
// zero (unique path) or RC_SHARED-with-thread_shared (shared path dropping
// down to exactly RC_SHARED). Payload of a thread-shared block is immutable
// by construction, so no
// reader needs happens-before on the payload via the refcount word itself —
// only the publishing synchronization (channel send, lock release) that made
// the block visible to another thread in the first place needs to carry
// release/acquire semantics, and that is the host program's responsibility,
// not this package's.

// dropFree frees b and recursively drops its children. b's own refcount is
// already 0.
func dropFree(b *Block, ctx *Context) {
	start, count := b.EffectiveScan()
	if count == 0 {
		freeBlock(b, ctx)
		return
	}

	dropFreeRec(b, start, count, 0, ctx)
	drainDelayed(ctx)
}

// dropFreeRec frees b (whose effective scan range is [start, start+count))
// and its children, tail-calling into the last child when it also reaches
// zero, and recursing (bounded by depth < MaxRecurseDepth) into the rest.
func dropFreeRec(b *Block, start, count int, depth int, ctx *Context) {
	for {
		if count == 0 {
			freeBlock(b, ctx)
			return
		}

		if count == 1 {
			v := b.Fields[start]
			freeBlock(b, ctx)
			if v.IsPtr() {
				child := v.Block()
				if decrefNoFree(child) {
					b = child
					start, count = b.EffectiveScan()
					continue // tail call, no added stack frame
				}
			}
			return
		}

		if depth < MaxRecurseDepth {
			for i := start; i < start+count-1; i++ {
				v := b.Fields[i]
				if v.IsPtr() {
					child := v.Block()
					if decrefNoFree(child) {
						cs, cc := child.EffectiveScan()
						dropFreeRec(child, cs, cc, depth+1, ctx)
					}
				}
			}

			last := b.Fields[start+count-1]
			freeBlock(b, ctx)
			if last.IsPtr() {
				child := last.Block()
				if decrefNoFree(child) {
					b = child
					start, count = b.EffectiveScan()
					continue // tail call
				}
			}
			return
		}

		pushDelayed(b, ctx)
		return
	}
}

// decrefNoFree decrements b's refcount without freeing it, reporting whether
// the block has no more references (and so must be descended into).
// Grounded on kk_block_decref_no_free / block_check_decref_no_free.
func decrefNoFree(b *Block) bool {
	rc := b.Header.Refcount
	if rc == 0 {
		return true
	}
	if rc >= RCShared {
		return atomicDecrNoFree(b)
	}
	b.Header.Refcount = rc - 1
	return false
}

func atomicDecrNoFree(b *Block) bool {
	rc := atomicDecr(&b.Header.Refcount)
	if rc == RCShared && b.Header.ThreadShared {
		b.Header.Refcount = 0
		b.Header.ThreadShared = false
		return true
	}
	if rc+1 >= RCStickyLo {
		atomicIncr(&b.Header.Refcount) // sticky: undo, never free
	}
	return false
}

// pushDelayed queues b (refcount already 0) onto ctx.DelayedFree. Unlike the
// original's header-punning (refcount+tag encode the next pointer, a 48/56-bit
// address-width assumption), this uses the explicitly-permitted alternative
// from spec.md §9: a dedicated, otherwise-unused field. The block is not
// externally reachable while queued (Invariant 5): nothing outside this file
// ever reads delayedNext.
func pushDelayed(b *Block, ctx *Context) {
	b.delayedNext = ctx.DelayedFree
	ctx.DelayedFree = b
}

// drainDelayed processes the delayed-free list until it is empty. Descending
// into a delayed block may itself push further blocks onto the list (if that
// subtree is also wide and deep), hence the outer fixpoint loop rather than a
// single pass.
func drainDelayed(ctx *Context) {
	for ctx.DelayedFree != nil {
		delayed := ctx.DelayedFree
		ctx.DelayedFree = nil
		for delayed != nil {
			b := delayed
			delayed = b.delayedNext
			b.delayedNext = nil
			start, count := b.EffectiveScan()
			dropFreeRec(b, start, count, 0, ctx)
		}
	}
}

// freeBlock reclaims a single block: if its tag is raw, the registered
// finalizer runs first (kk_block_free_raw), then the backing memory is
// returned to whichever arena minted it, if any.
func freeBlock(b *Block, ctx *Context) {
	if IsRaw(b.Header.Tag) && b.RawFinalizer != nil {
		b.RawFinalizer(b, ctx)
	}
	if b.arena != nil {
		b.arena.Reclaim(b)
	}
}
