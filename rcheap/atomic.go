package rcheap

import "sync/atomic"

// atomicIncr/atomicDecr/atomicAdd operate on the refcount word. sync/atomic's
// add family is already the relaxed primitive on every platform Go targets:
// there is no separate "relaxed" mode to opt into, and no additional fence is
// warranted here (see the ordering rationale in the file comment of drop.go).

func atomicIncr(p *uint32) uint32 { return atomic.AddUint32(p, 1) }

func atomicDecr(p *uint32) uint32 { return atomic.AddUint32(p, ^uint32(0)) }

func atomicAdd(p *uint32, delta uint32) uint32 { return atomic.AddUint32(p, delta) }
