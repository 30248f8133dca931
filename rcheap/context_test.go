package rcheap

import "testing"

func TestNewContextEmpty(t *testing.T) {
	ctx := NewContext()
	if ctx.DelayedFree != nil {
		t.Fatal("a fresh context must start with no delayed work")
	}
}
