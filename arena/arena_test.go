package arena

import "testing"

func TestNewPayloadZeroFilled(t *testing.T) {
	a := &Arena{}
	b := a.NewPayload(1, 16)
	for i, c := range b.Payload {
		if c != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, c)
		}
	}
	if len(b.Payload) != 16 {
		t.Fatalf("len = %d, want 16", len(b.Payload))
	}
}

func TestReclaimThenDrawReusesBuffer(t *testing.T) {
	a := &Arena{}
	b := a.NewPayload(1, 64)
	copy(b.Payload, []byte("hello"))
	p := &b.Payload[0]

	a.Reclaim(b)
	if b.Payload != nil {
		t.Fatal("Reclaim must clear the block's payload reference")
	}

	b2 := a.NewPayload(1, 64)
	if &b2.Payload[0] != p {
		t.Fatal("expected the reclaimed buffer to be drawn again")
	}
	for i, c := range b2.Payload {
		if c != 0 {
			t.Fatalf("reused buffer not zero-filled at %d: %x", i, c)
		}
	}
}

func TestBucketForMonotonic(t *testing.T) {
	if bucketFor(1) != 0 {
		t.Fatalf("bucketFor(1) = %d, want 0", bucketFor(1))
	}
	for c := 2; c <= 10000; c++ {
		if bucketFor(c) < bucketFor(c-1) {
			t.Fatalf("bucketFor(%d) = %d < bucketFor(%d) = %d", c, bucketFor(c), c-1, bucketFor(c-1))
		}
	}
	if bucketFor(8192) != len(bucketSizes)-1 {
		t.Fatalf("bucketFor(8192) = %d, want last bucket", bucketFor(8192))
	}
	if bucketFor(100000) != len(bucketSizes)-1 {
		t.Fatal("oversized capacity should clamp to the last bucket")
	}
}

func TestNewBlockFieldsAreUnset(t *testing.T) {
	a := &Arena{}
	b := a.NewBlock(5, 3, 3)
	if len(b.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(b.Fields))
	}
	for _, f := range b.Fields {
		if f.IsPtr() {
			t.Fatal("freshly minted fields must not carry a stale pointer")
		}
	}
}

func TestCompactColdNoopWithoutFlag(t *testing.T) {
	a := &Arena{}
	b := a.NewPayload(1, compressThreshold+10)
	p := &b.Payload[0]
	a.Reclaim(b)
	a.CompactCold() // Compress is false: must not touch the pool
	b2 := a.NewPayload(1, compressThreshold+10)
	if &b2.Payload[0] != p {
		t.Fatal("expected the pooled (uncompressed) buffer to be reused")
	}
}

func TestCompactColdCompressesLargeIdleBuffers(t *testing.T) {
	a := &Arena{Compress: true}
	b := a.NewPayload(1, compressThreshold+10)
	for i := range b.Payload {
		b.Payload[i] = 0 // highly compressible
	}
	a.Reclaim(b)
	a.CompactCold()
	if e := a.buckets[bucketFor(compressThreshold+10)][0]; e.compressed == nil || e.buf != nil {
		t.Fatal("expected the idle buffer to be held in compressed form")
	}

	b2 := a.NewPayload(1, compressThreshold+10)
	if len(b2.Payload) != compressThreshold+10 {
		t.Fatalf("len = %d, want %d", len(b2.Payload), compressThreshold+10)
	}
}
