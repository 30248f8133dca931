package rcheap

// Dup returns b with one added reference. Grounded on kklib's kk_dup_... /
// kk_block_check_dup fast-path split: below RC_SHARED the increment is a
// plain field write (single-threaded, non-atomic); at or above it the
// refcount is only ever touched atomically, because the block may already be
// visible to another thread.
func Dup(b *Block) *Block {
	rc := b.Header.Refcount
	if rc < RCShared {
		b.Header.Refcount = rc + 1
		return b
	}
	return checkDup(b, rc)
}

// checkDup is the slow path of Dup: rc0 >= RC_SHARED.
func checkDup(b *Block, rc0 uint32) *Block {
	if rc0 < RCStickyHi {
		atomicIncr(&b.Header.Refcount)
	}
	// else: sticky, no longer increments (or decrements)
	return b
}

// Drop removes one reference from b, freeing (and recursively dropping its
// children) when the count reaches zero.
func Drop(b *Block, ctx *Context) {
	rc := b.Header.Refcount
	if rc > 0 && rc < RCShared {
		b.Header.Refcount = rc - 1
		return
	}
	checkDrop(b, rc, ctx)
}

// checkDrop is the slow path of Drop: rc0 == 0 or rc0 >= RC_SHARED.
func checkDrop(b *Block, rc0 uint32, ctx *Context) {
	switch {
	case rc0 == 0:
		dropFree(b, ctx)
	case rc0 >= RCStickyLo:
		// sticky: decrements suppressed
	default:
		rc := atomicDecr(&b.Header.Refcount)
		if rc == RCShared && b.Header.ThreadShared {
			b.Header.Refcount = 0
			b.Header.ThreadShared = false
			dropFree(b, ctx)
		}
	}
}

// ReuseToken is the opaque handle returned by DropReuse when a drop would
// have freed the block: the caller may reinitialize it via Reinit instead of
// letting the arena reclaim the memory. A zero ReuseToken is invalid (Valid
// reports false) and carries no block.
type ReuseToken struct{ block *Block }

// Valid reports whether t carries a reusable block.
func (t ReuseToken) Valid() bool { return t.block != nil }

// Reinit consumes t, writing a fresh header and returning a live Block ready
// for use. The new scan_fsize/tag MUST describe a layout no larger than what
// the original block could hold (same invariant the original spec places on
// reuse tokens); this module does not re-validate slot capacity, matching
// kklib's "caller re-initializes the block" contract.
func Reinit(t ReuseToken, tag Tag, scanFsize uint8, fields []Box) *Block {
	debugAssert(t.Valid(), "Reinit called with an invalid reuse token")
	b := t.block
	b.Header = Header{Tag: tag, ScanFsize: scanFsize}
	b.Fields = fields
	b.Payload = nil
	return b
}

// DropReuse behaves like Drop, but if the block would be freed on the unique
// path, its children are dropped individually and the (now-empty) block is
// handed back as a ReuseToken instead of being reclaimed. Shared and sticky
// paths behave exactly like Drop and return an invalid token.
func DropReuse(b *Block, ctx *Context) ReuseToken {
	rc := b.Header.Refcount
	if rc > 0 && rc < RCShared {
		b.Header.Refcount = rc - 1
		return ReuseToken{}
	}
	return checkDropReuse(b, rc, ctx)
}

func checkDropReuse(b *Block, rc0 uint32, ctx *Context) ReuseToken {
	if rc0 != 0 {
		checkDrop(b, rc0, ctx)
		return ReuseToken{}
	}

	start, count := b.EffectiveScan()
	for i := start; i < start+count; i++ {
		dropBox(b.Fields[i], ctx)
	}
	b.Header = Header{}
	b.Fields = nil
	b.Payload = nil
	return ReuseToken{block: b}
}

// Decref behaves like Drop, but on reaching zero frees only the block itself
// without traversing children — for callers that have already consumed (or
// otherwise accounted for) the children themselves.
func Decref(b *Block, ctx *Context) {
	rc := b.Header.Refcount
	if rc > 0 && rc < RCShared {
		b.Header.Refcount = rc - 1
		return
	}
	checkDecref(b, rc, ctx)
}

func checkDecref(b *Block, rc0 uint32, ctx *Context) {
	switch {
	case rc0 == 0:
		freeBlock(b, ctx)
	case rc0 >= RCStickyLo:
	default:
		rc := atomicDecr(&b.Header.Refcount)
		if rc == RCShared && b.Header.ThreadShared {
			b.Header.Refcount = 0
			b.Header.ThreadShared = false
			freeBlock(b, ctx)
		}
	}
}

// MakeShared promotes b to the thread-shared range, folding any existing
// local count into it. Idempotent-guarded by the caller (calling it twice on
// an already-shared block double-promotes the count); MarkShared (mark.go)
// is the safe transitive entry point that checks ThreadShared first.
func MakeShared(b *Block) {
	b.Header.ThreadShared = true
	atomicAdd(&b.Header.Refcount, RCShared+1)
}

// dropBox drops v if it holds a child reference; a plain boxed integer needs
// no release.
func dropBox(v Box, ctx *Context) {
	if v.IsPtr() {
		Drop(v.Block(), ctx)
	}
}
