package keyring

// Handle owns a sensitive key buffer for the duration of one operation.
// Construct it at the start of the operation, defer Destroy, and pass the
// handle down instead of the raw slice. Destroy zeroizes the buffer on
// every exit path, including panics and cancellation, as long as it was
// deferred.
type Handle struct {
	buf []byte
}

// NewHandle copies key into a fresh handle. The caller keeps ownership of
// the original slice.
func NewHandle(key []byte) *Handle {
	buf := make([]byte, len(key))
	copy(buf, key)
	return &Handle{buf: buf}
}

// Bytes returns the underlying key material. The slice is only valid
// until Destroy is called; callers must not retain it.
func (h *Handle) Bytes() []byte {
	return h.buf
}

// Destroy zeroizes and releases the key material. Safe to call more than
// once.
func (h *Handle) Destroy() {
	if h == nil || h.buf == nil {
		return
	}
	Zero(h.buf)
	h.buf = nil
}

// Destroyed reports whether the handle has been destroyed.
func (h *Handle) Destroyed() bool {
	return h == nil || h.buf == nil
}
