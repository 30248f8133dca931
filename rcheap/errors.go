package rcheap

// Overflow reports an operation whose result would not fit an int.
// Grounded on the teacher's typed-error idiom (lldb.ErrILSEQ/ErrINVAL,
// struct values rather than errors.New strings) rather than a bare string.
type Overflow struct {
	Op string
}

func (e *Overflow) Error() string { return e.Op + ": length overflow" }

// debugAssert panics with a package-prefixed message when cond is false.
// Go has no NDEBUG-style release strip, so invariant checks that kklib
// treats as "undefined behavior if violated" are realized here as "checked
// unconditionally, panics on violation" instead.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("rcheap: " + msg)
	}
}
