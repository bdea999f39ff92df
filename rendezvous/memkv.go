package rendezvous

import (
	"context"
	"sync"
	"time"
)

// MemClient is an in-memory Client backing this repository's own
// tests and local multi-goroutine simulations of the two-server
// protocol; it is not a deployment target (spec.md §1 places the
// production rendezvous store out of scope).
type MemClient struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemClient returns a fresh, empty in-memory rendezvous store. The
// same *MemClient must be shared by both simulated servers so that a
// Put from one is visible to a Poll from the other.
func NewMemClient() *MemClient {
	return &MemClient{data: make(map[string][]byte)}
}

func (m *MemClient) Put(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key.Bytes())] = append([]byte(nil), value...)
	return nil
}

func (m *MemClient) Poll(ctx context.Context, key Key) ([]byte, error) {
	k := string(key.Bytes())
	read := func() ([]byte, bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		v, ok := m.data[k]
		if !ok {
			return nil, false, nil
		}
		return append([]byte(nil), v...), true, nil
	}
	return BackoffPoll(ctx, read, 50*time.Millisecond)
}
