// Package arena supplies the concrete backing allocator spec.md treats as an
// external collaborator (the `alloc`/`free`/`alloc_as` contract of rcheap's
// §6). It is grounded on lldb.Allocator/lldb.flt (lldb/falloc.go, lldb/flt.go):
// a bucketed free list keyed by power-of-two size class, reused here to pool
// freed Block payloads instead of file atoms. Pooling is pure amortization —
// a zero-value Arena is still a fully correct, if simplistic, allocator.
package arena

import (
	"sync"

	"github.com/cznic/mathutil"
	"github.com/golang/snappy"

	"github.com/cznic/rcheap"
)

// bucketSizes mirrors lldb/flt.go's FLTPowersOf2 table verbatim (1, 2, 4, ...,
// 4096), extended with one more doubling to comfortably cover Bytes buffers
// well past SmallMax without forcing every large allocation into one bucket.
var bucketSizes = []int{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192}

func bucketFor(capacity int) int {
	for i, sz := range bucketSizes {
		if capacity <= sz {
			return i
		}
	}
	return len(bucketSizes) - 1
}

// coldEntry is a pooled payload buffer, optionally compressed.
type coldEntry struct {
	buf        []byte // live (uncompressed) form, or nil if compressed is set
	compressed []byte // snappy-compressed form, or nil if buf is set
	origLen    int
}

// Arena mints and reclaims rcheap.Block values. The zero Arena is ready to
// use: pooling is an optimization layered on top of plain Go allocation, not
// a correctness requirement.
type Arena struct {
	mu      sync.Mutex
	buckets [][]*coldEntry // indexed by bucketFor(capacity)

	// Compress enables CompactCold: payload buffers of at least compressThreshold
	// bytes that sit idle in the pool are snappy-compressed (ported from
	// lldb.Allocator.Compress / falloc.go's makeUsedBlock "only keep the
	// compressed form if it saves at least one size-class step" policy).
	Compress bool
}

const compressThreshold = 4096

// debugAssert panics with a package-prefixed message when cond is false.
// See rcheap's identically-shaped helper: Go has no NDEBUG-style release
// strip, so this invariant is checked unconditionally rather than compiled
// out.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("arena: " + msg)
	}
}

// NewBlock mints a scanned block (the alloc_as analogue) with fieldCount
// field slots, all initially nil (unboxed zero / no child).
func (a *Arena) NewBlock(tag rcheap.Tag, scanFsize uint8, fieldCount int) *rcheap.Block {
	debugAssert(fieldCount >= 0, "NewBlock called with a negative fieldCount")
	b := &rcheap.Block{
		Header: rcheap.Header{Tag: tag, ScanFsize: scanFsize},
		Fields: make([]rcheap.Box, fieldCount),
	}
	b.SetArena(a)
	return b
}

// NewPayload mints a raw leaf block (the alloc analogue, for e.g. Bytes) with
// at least `capacity` bytes of backing storage, drawing from the matching
// size-class bucket when a pooled buffer is available.
func (a *Arena) NewPayload(tag rcheap.Tag, capacity int) *rcheap.Block {
	debugAssert(capacity >= 0, "NewPayload called with a negative capacity")

	buf := a.drawPooled(capacity)
	if buf == nil {
		buf = make([]byte, capacity)
	} else {
		buf = buf[:capacity]
		for i := range buf {
			buf[i] = 0
		}
	}

	b := &rcheap.Block{
		Header:  rcheap.Header{Tag: tag, ScanFsize: 0},
		Payload: buf,
	}
	b.SetArena(a)
	return b
}

func (a *Arena) drawPooled(capacity int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	ix := bucketFor(capacity)
	if ix >= len(a.buckets) || len(a.buckets[ix]) == 0 {
		return nil
	}

	bucket := a.buckets[ix]
	e := bucket[len(bucket)-1]
	a.buckets[ix] = bucket[:len(bucket)-1]

	if e.buf != nil {
		return growTo(e.buf, capacity)
	}
	buf, err := snappy.Decode(make([]byte, 0, e.origLen), e.compressed)
	if err != nil {
		return nil // corrupt pool entry: fall back to a fresh allocation
	}
	return growTo(buf, capacity)
}

func growTo(buf []byte, capacity int) []byte {
	if cap(buf) < capacity {
		return make([]byte, capacity)
	}
	return buf[:capacity]
}

// Reclaim returns b's backing payload to the pool (scanned blocks carry no
// reusable payload and are simply left for the Go garbage collector).
// Reclaim implements the reclaimer interface rcheap.Block.SetArena expects.
func (a *Arena) Reclaim(b *rcheap.Block) {
	if b.Payload == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ix := bucketFor(cap(b.Payload))
	for len(a.buckets) <= ix {
		a.buckets = append(a.buckets, nil)
	}

	entry := &coldEntry{buf: b.Payload, origLen: len(b.Payload)}
	a.buckets[ix] = append(a.buckets[ix], entry)
	b.Payload = nil
}

// CompactCold snappy-compresses every idle pooled buffer at or above
// compressThreshold bytes, keeping the compressed form only when it would
// let the entry drop at least one size-class bucket on its next draw — the
// same "only pay for compression if it buys a whole atom" rule
// lldb/falloc.go's makeUsedBlock applies to on-disk blocks, ported here to an
// in-memory cold pool. No-op unless a.Compress is set.
func (a *Arena) CompactCold() {
	if !a.Compress {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, bucket := range a.buckets {
		for _, e := range bucket {
			if e.buf == nil || len(e.buf) < compressThreshold {
				continue
			}

			compressed := snappy.Encode(nil, e.buf)
			before := bucketFor(mathutil.Max(len(e.buf), 1))
			after := bucketFor(mathutil.Max(len(compressed), 1))
			if after < before {
				e.compressed = compressed
				e.origLen = len(e.buf)
				e.buf = nil
			}
		}
	}
}
