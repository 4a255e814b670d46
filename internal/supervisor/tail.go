package supervisor

import "sync"

// DefaultTailBytes is the stderr capture limit when none is configured
const DefaultTailBytes = 64 * 1024

// TailBuffer is an io.Writer that keeps only the last Limit bytes written
type TailBuffer struct {
	mu      sync.Mutex
	limit   int
	buf     []byte
	dropped int64
}

// NewTailBuffer creates a buffer bounded to limit bytes.
// A non-positive limit selects DefaultTailBytes.
func NewTailBuffer(limit int) *TailBuffer {
	if limit <= 0 {
		limit = DefaultTailBytes
	}
	return &TailBuffer{limit: limit}
}

// Write appends p, discarding the oldest bytes beyond the limit. It never fails.
func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.limit {
		t.dropped += int64(len(t.buf) + n - t.limit)
		t.buf = append(t.buf[:0], p[n-t.limit:]...)
		return n, nil
	}

	if over := len(t.buf) + n - t.limit; over > 0 {
		t.dropped += int64(over)
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

// Bytes returns a copy of the retained tail
func (t *TailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf...)
}

// Len returns the number of retained bytes
func (t *TailBuffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

// Dropped returns how many bytes fell off the front
func (t *TailBuffer) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
