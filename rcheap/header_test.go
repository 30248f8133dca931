package rcheap

import "testing"

func TestHeaderPackRoundTrip(t *testing.T) {
	h := Header{Refcount: 0x1234abcd, Tag: 77, ScanFsize: 3, ThreadShared: true}
	got := UnpackHeader(h.Pack())
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderPackLayout(t *testing.T) {
	h := Header{Refcount: 1, Tag: 2, ScanFsize: 3, ThreadShared: false}
	b := h.Pack()
	want := [8]byte{1, 0, 0, 0, 2, 0, 3, 0}
	if b != want {
		t.Fatalf("layout mismatch: got %v, want %v", b, want)
	}
}

func TestIsRaw(t *testing.T) {
	if IsRaw(0x7fff) {
		t.Fatal("0x7fff should not be raw")
	}
	if !IsRaw(0x8000) {
		t.Fatal("0x8000 should be raw")
	}
}

func TestEffectiveScanPlain(t *testing.T) {
	b := &Block{Header: Header{ScanFsize: 2}, Fields: make([]Box, 2)}
	start, count := b.EffectiveScan()
	if start != 0 || count != 2 {
		t.Fatalf("got (%d,%d), want (0,2)", start, count)
	}
}

func TestEffectiveScanSentinel(t *testing.T) {
	b := &Block{
		Header: Header{ScanFsize: ScanFsizeMax},
		Fields: []Box{BoxInt(2), {}, {}, {}},
	}
	start, count := b.EffectiveScan()
	if start != 1 || count != 3 {
		t.Fatalf("got (%d,%d), want (1,3)", start, count)
	}
}

func TestBoxIntVsBlock(t *testing.T) {
	v := BoxInt(42)
	if v.IsPtr() {
		t.Fatal("BoxInt should not be a pointer")
	}
	if v.Int() != 42 {
		t.Fatalf("got %d, want 42", v.Int())
	}

	child := &Block{}
	p := BoxBlock(child)
	if !p.IsPtr() || p.Block() != child {
		t.Fatal("BoxBlock should carry the block pointer")
	}
}
