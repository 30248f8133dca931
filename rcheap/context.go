package rcheap

// Context is a per-thread holder of the delayed-free list. It is never
// shared between threads and is always threaded explicitly through the
// operations that can drop, rather than hidden behind thread-local storage
// (spec.md §9: "preserve composability with custom schedulers").
type Context struct {
	// DelayedFree is the head of the singly-linked list of blocks whose
	// descent was deferred because recursion depth hit MaxRecurseDepth.
	DelayedFree *Block
}

// NewContext returns a fresh, empty Context.
func NewContext() *Context { return &Context{} }
