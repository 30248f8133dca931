// Package rbytes implements the Bytes datatype (C6 of the heap spec): a
// small/normal byte-buffer value built entirely on top of package rcheap's
// refcount primitives. Every operation that can mutate in place does so only
// after checking uniqueness via the rc state machine; rbytes never reaches
// into rcheap's drop engine directly (spec.md: "C6 consumes C3 operations
// exclusively; it never touches C4 directly").
//
// Semantics are grounded line-for-line on original_source/kklib/src/bytes.c.
package rbytes

import (
	"github.com/cznic/mathutil"

	"github.com/cznic/rcheap"
	"github.com/cznic/rcheap/arena"
)

// Tag values for the two Bytes variants.
const (
	TagBytesSmall rcheap.Tag = iota + 1
	TagBytes
)

// Bytes is a handle to a refcounted byte buffer. The zero Bytes is not
// valid; use Empty for the canonical empty value.
type Bytes struct {
	b *rcheap.Block
}

// emptyBlock is the shared static empty-bytes sentinel: sticky-high so Dup
// and Drop are both no-ops on it, and never allocated through an Arena.
var emptyBlock = &rcheap.Block{
	Header:  rcheap.Header{Tag: TagBytes, ScanFsize: 0, Refcount: rcheap.RCStickyHi, ThreadShared: true},
	Payload: []byte{0},
}

// Empty is the canonical empty Bytes value.
var Empty = Bytes{b: emptyBlock}

// Block exposes the underlying heap block, for interop with rcheap directly
// (e.g. storing a Bytes value inside a scanned container's field slots).
func (s Bytes) Block() *rcheap.Block { return s.b }

// FromBlock wraps an existing block as a Bytes handle. b must have been
// produced by this package (Alloc, Cat, ...) or be rbytes.Empty's block.
func FromBlock(b *rcheap.Block) Bytes { return Bytes{b: b} }

// Len returns the buffer's length, excluding the trailing terminator.
func (s Bytes) Len() int { return len(s.b.Payload) - 1 }

// Data returns the buffer's content, excluding the trailing terminator. The
// returned slice aliases the block's storage and must not be retained past
// any subsequent in-place mutation of s.
func (s Bytes) Data() []byte { return s.b.Payload[:len(s.b.Payload)-1] }

func (s Bytes) isUniqueNormal() bool {
	return s.b.Header.Refcount == 0 && s.b.Header.Tag == TagBytes
}

func tagFor(length int) rcheap.Tag {
	if length <= rcheap.SmallMax {
		return TagBytesSmall
	}
	return TagBytes
}

// Alloc allocates a Bytes of length bytes. If source is non-nil, up to
// min(length, len(source)) bytes are copied from it; the rest (and the
// trailing terminator) are zero-filled. The writable raw buffer is returned
// alongside the handle for callers that want to fill it directly (grounded
// on kk_bytes_alloc_len's buf out-parameter).
func Alloc(a *arena.Arena, length int, source []byte, ctx *rcheap.Context) (Bytes, []byte) {
	if length == 0 {
		return Empty, emptyBlock.Payload[:0]
	}

	b := a.NewPayload(tagFor(length), length+1)
	n := mathutil.Min(length, len(source))
	if n > 0 {
		copy(b.Payload, source[:n])
	}
	b.Payload[length] = 0
	return Bytes{b: b}, b.Payload[:length]
}

func allocCopy(a *arena.Arena, length int, source []byte, ctx *rcheap.Context) Bytes {
	s, _ := Alloc(a, length, source, ctx)
	return s
}

// AdjustLength returns a Bytes of exactly newLen bytes, reusing s's storage
// when that is cheap and safe to do (grounded on kk_bytes_adjust_length).
func AdjustLength(a *arena.Arena, s Bytes, newLen int, ctx *rcheap.Context) Bytes {
	if newLen == 0 {
		rcheap.Drop(s.b, ctx)
		return Empty
	}

	length := s.Len()
	if length == newLen {
		return s
	}

	if length > newLen && 3*length < 4*newLen && s.isUniqueNormal() {
		// 0.75*length < newLen < length, unique normal block: shrink in place.
		s.b.Payload = s.b.Payload[:newLen+1]
		s.b.Payload[newLen] = 0
		return s
	}

	if newLen < length {
		t := allocCopy(a, newLen, s.Data(), ctx)
		rcheap.Drop(s.b, ctx)
		return t
	}

	t, buf := Alloc(a, newLen, nil, ctx)
	copy(buf, s.Data())
	for i := length; i < newLen; i++ {
		buf[i] = 0
	}
	rcheap.Drop(s.b, ctx)
	return t
}

// Cmp lexicographically compares b1 and b2; when one is a prefix of the
// other, the shorter one sorts first. The return value's sign matches
// bytes.Compare's convention (spec.md only requires the sign be correct).
func Cmp(b1, b2 Bytes) int {
	if b1.b == b2.b {
		return 0
	}

	d1, d2 := b1.Data(), b2.Data()
	n := mathutil.Min(len(d1), len(d2))
	for i := 0; i < n; i++ {
		if d1[i] != d2[i] {
			if d1[i] < d2[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(d1) > len(d2):
		return 1
	case len(d1) < len(d2):
		return -1
	default:
		return 0
	}
}

// Cat allocates and returns the concatenation of b1 and b2, dropping both
// inputs.
func Cat(a *arena.Arena, b1, b2 Bytes, ctx *rcheap.Context) Bytes {
	d1, d2 := b1.Data(), b2.Data()
	t, buf := Alloc(a, len(d1)+len(d2), nil, ctx)
	copy(buf, d1)
	copy(buf[len(d1):], d2)
	rcheap.Drop(b1.b, ctx)
	rcheap.Drop(b2.b, ctx)
	return t
}

// CatFromBuf concatenates a plain, non-refcounted byte slice onto b1,
// dropping b1. Supplemented from kk_bytes_cat_from_buf (present upstream,
// dropped by the spec's distillation): it avoids allocating an intermediate
// Bytes handle just to immediately drop it.
func CatFromBuf(a *arena.Arena, b1 Bytes, extra []byte, ctx *rcheap.Context) Bytes {
	if len(extra) == 0 {
		return b1
	}
	d1 := b1.Data()
	t, buf := Alloc(a, len(d1)+len(extra), nil, ctx)
	copy(buf, d1)
	copy(buf[len(d1):], extra)
	rcheap.Drop(b1.b, ctx)
	return t
}

// memmem returns the index of the first occurrence of pat in s, or -1.
// Naive O(len(s)*len(pat)) scan (spec.md explicitly permits this; Boyer-Moore
// / KMP are noted only as optional optimizations).
func memmem(s, pat []byte) int {
	if len(pat) == 0 || len(pat) > len(s) {
		return -1
	}
	end := len(s) - len(pat) + 1
	for i := 0; i < end; i++ {
		if bytesEqual(s[i:i+len(pat)], pat) {
			return i
		}
	}
	return -1
}

func bytesEqual(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CountPattern returns the number of non-overlapping occurrences of pat in
// s. An empty pattern returns s.Len().
func CountPattern(s, pat Bytes) int {
	p, d := pat.Data(), s.Data()
	if len(p) == 0 {
		return s.Len()
	}
	if len(p) > len(d) {
		return 0
	}

	count := 0
	for off := 0; off <= len(d)-len(p); {
		i := memmem(d[off:], p)
		if i < 0 {
			break
		}
		count++
		off += i + len(p)
	}
	return count
}

// IndexOf returns 1+the index of the first occurrence of sub in s, or 0 if
// not found. An empty sub returns 1 iff s is non-empty.
func IndexOf(s, sub Bytes) int {
	d, t := s.Data(), sub.Data()
	switch {
	case len(t) == 0:
		if len(d) == 0 {
			return 0
		}
		return 1
	case len(t) > len(d):
		return 0
	default:
		i := memmem(d, t)
		if i < 0 {
			return 0
		}
		return i + 1
	}
}

// LastIndexOf returns 1+the index of the last occurrence of sub in s, or 0
// if not found. An empty sub returns s.Len().
func LastIndexOf(s, sub Bytes) int {
	d, t := s.Data(), sub.Data()
	switch {
	case len(t) == 0:
		return len(d)
	case len(t) > len(d):
		return 0
	case len(t) == len(d):
		if Cmp(s, sub) == 0 {
			return 1
		}
		return 0
	default:
		for p := len(d) - len(t); p >= 0; p-- {
			if bytesEqual(d[p:p+len(t)], t) {
				return p + 1
			}
		}
		return 0
	}
}

// StartsWith reports whether s starts with pre. An empty pre returns true
// iff s is non-empty.
func StartsWith(s, pre Bytes) bool {
	d, t := s.Data(), pre.Data()
	switch {
	case len(t) == 0:
		return len(d) > 0
	case len(t) > len(d):
		return false
	default:
		return bytesEqual(d[:len(t)], t)
	}
}

// EndsWith reports whether s ends with post. An empty post returns true iff
// s is non-empty.
func EndsWith(s, post Bytes) bool {
	d, t := s.Data(), post.Data()
	switch {
	case len(t) == 0:
		return len(d) > 0
	case len(t) > len(d):
		return false
	default:
		return bytesEqual(d[len(d)-len(t):], t)
	}
}

// Contains reports whether sub occurs anywhere in s. Supplemented from
// kk_bytes_contains (a one-line IndexOf wrapper upstream, dropped by the
// spec's distillation but trivial to keep faithful to the source).
func Contains(s, sub Bytes) bool { return IndexOf(s, sub) > 0 }

// Replace replaces at most limit non-overlapping, left-to-right occurrences
// of pat with rep (later matches are not rescanned against replaced text).
// A negative limit is unbounded (spec.md's "∞", matching kklib's
// kk_bytes_replace_all passing SIZE_MAX). limit == 0, an empty s, or an
// empty pat all return s unchanged.
func Replace(a *arena.Arena, s, pat, rep Bytes, limit int, ctx *rcheap.Context) Bytes {
	if limit == 0 || s.Len() == 0 || pat.Len() == 0 {
		return s
	}

	d, p, r := s.Data(), pat.Data(), rep.Data()

	if s.b.Header.Refcount == 0 && len(p) == len(r) {
		// Unique and equal-width: mutate in place.
		count := 0
		off := 0
		for (limit < 0 || count < limit) && off <= len(d)-len(p) {
			i := memmem(d[off:], p)
			if i < 0 {
				break
			}
			copy(d[off+i:off+i+len(r)], r)
			count++
			off += i + len(r)
		}
		rcheap.Drop(pat.b, ctx)
		rcheap.Drop(rep.b, ctx)
		return s
	}

	// Count occurrences first so the exact-sized result can be built in one
	// pass (spec.md: no assumption is made about |rep| < |pat| being an
	// in-place optimization opportunity; when lengths differ, a fresh result
	// is allocated whenever at least one match is found).
	count := 0
	for off := 0; (limit < 0 || count < limit) && off <= len(d)-len(p); {
		i := memmem(d[off:], p)
		if i < 0 {
			break
		}
		count++
		off += i + len(p)
	}
	if count == 0 {
		rcheap.Drop(pat.b, ctx)
		rcheap.Drop(rep.b, ctx)
		return s
	}

	newLen := len(d) - count*len(p) + count*len(r)
	t, buf := Alloc(a, newLen, nil, ctx)
	srcOff, dstOff, remaining := 0, 0, count
	for remaining > 0 {
		i := memmem(d[srcOff:], p)
		dstOff += copy(buf[dstOff:], d[srcOff:srcOff+i])
		dstOff += copy(buf[dstOff:], r)
		srcOff += i + len(p)
		remaining--
	}
	copy(buf[dstOff:], d[srcOff:])

	rcheap.Drop(pat.b, ctx)
	rcheap.Drop(rep.b, ctx)
	rcheap.Drop(s.b, ctx)
	return t
}

// Split returns at most limit parts of s separated by sep. A negative limit
// is unbounded (spec.md's "∞", matching kk_bytes_splitv's SIZE_MAX default).
// An empty sep with a negative or >1 limit splits s into individual bytes up
// to the limit; the last element always holds the unsplit remainder. Parts
// are freshly allocated.
func Split(a *arena.Arena, s, sep Bytes, limit int, ctx *rcheap.Context) []Bytes {
	if limit == 0 {
		limit = 1
	}

	d, sp := s.Data(), sep.Data()

	count := 1
	if len(sp) > 0 {
		p := 0
		for limit < 0 || count < limit {
			i := memmem(d[p:], sp)
			if i < 0 {
				break
			}
			p += i + len(sp)
			count++
		}
	} else if limit < 0 || limit > 1 {
		if limit < 0 {
			count = len(d)
		} else {
			count = mathutil.Min(len(d), limit)
		}
		if count < 1 {
			count = 1
		}
	}

	parts := make([]Bytes, count)
	p := 0
	for i := 0; i < count-1; i++ {
		var adv int
		if len(sp) > 0 {
			r := memmem(d[p:], sp)
			adv = r
		} else {
			adv = 1
		}
		parts[i] = allocCopy(a, adv, d[p:p+adv], ctx)
		p += adv + len(sp)
	}
	parts[count-1] = allocCopy(a, len(d)-p, d[p:], ctx)

	rcheap.Drop(s.b, ctx)
	rcheap.Drop(sep.b, ctx)
	return parts
}

// Repeat returns n concatenations of b. Grounded on kk_bytes_repeat; unlike
// most rbytes operations, a result length overflowing int is a cleanly
// detectable failure rather than an abort, so it is reported as an error
// (rcheap.Overflow) instead of panicking.
func Repeat(a *arena.Arena, b Bytes, n int, ctx *rcheap.Context) (Bytes, error) {
	d := b.Data()
	if len(d) == 0 || n == 0 {
		rcheap.Drop(b.b, ctx)
		return Empty, nil
	}

	newLen := len(d) * n
	if newLen/n != len(d) {
		rcheap.Drop(b.b, ctx)
		return Bytes{}, &rcheap.Overflow{Op: "rbytes.Repeat"}
	}

	t, buf := Alloc(a, newLen, nil, ctx)
	for i := 0; i < n; i++ {
		copy(buf[i*len(d):], d)
	}
	rcheap.Drop(b.b, ctx)
	return t, nil
}
