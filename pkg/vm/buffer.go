package vm

import (
	"bytes"
	"sync"
)

// logBuffer is a mutex-guarded capture buffer. The hypervisor writes
// from its own process via the exec pipes while Logs reads from the
// caller's goroutine.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
