// Package rendezvous defines the boundary interface for the external
// server-to-server key-value store the two-server transaction and
// settle protocols use to exchange per-round MPC messages (spec.md §1,
// "out-of-band shared key-value rendezvous"; §5, "per-(server-id,
// opcode, transaction-id) keys"). Production deployments are expected
// to back Client with an external at-least-once, strongly-consistent
// store; this package also ships an in-memory implementation used by
// this repository's own tests.
package rendezvous

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Opcode identifies which round of which protocol a rendezvous message
// belongs to, matching the wire opcodes of spec.md §6 plus sub-round
// tags for the multi-round sketch MPC and settle barrier.
type Opcode byte

const (
	OpTransactionRound1 Opcode = 1
	OpTransactionRound2 Opcode = 2
	OpTransactionRound3 Opcode = 3
	OpSettleCommit      Opcode = 4
	OpSettleOpen        Opcode = 5
)

// Key addresses one rendezvous slot. TransactionID is a uint64 (Open
// Question (b): widened from the narrower id the source reused across
// unrelated opcodes) so that a single transaction's multiple rounds,
// and unrelated concurrent transactions, never collide in the shared
// store.
type Key struct {
	ServerID      byte
	Opcode        Opcode
	TransactionID uint64
}

// Bytes returns the canonical rendezvous key encoding:
// [server_id_byte, opcode_byte, transaction_id_be_bytes], per spec.md
// §6.
func (k Key) Bytes() []byte {
	b := make([]byte, 10)
	b[0] = k.ServerID
	b[1] = byte(k.Opcode)
	binary.BigEndian.PutUint64(b[2:], k.TransactionID)
	return b
}

func (k Key) String() string {
	return fmt.Sprintf("srv=%d op=%d txn=%d", k.ServerID, k.Opcode, k.TransactionID)
}

// Client is the boundary the two-server protocol is written against.
// Put is a plain, idempotent set (last writer for a given key wins,
// though in practice each key is written exactly once per protocol
// run). Poll blocks, retrying with backoff, until a value is published
// under key or ctx is done.
type Client interface {
	Put(ctx context.Context, key Key, value []byte) error
	Poll(ctx context.Context, key Key) ([]byte, error)
}

// ErrTimeout is returned by Poll implementations when ctx expires
// before a value appears.
var ErrTimeout = errors.New("rendezvous: poll timed out waiting for peer value")

// BackoffPoll runs a read function repeatedly with exponential backoff
// (capped at maxInterval) until it returns a non-nil value, an error
// other than "not found", or ctx is done. This is the "simple blocking
// poll with exponential backoff up to a timeout" design note of
// spec.md §9, factored out so every Client implementation's Poll can
// share it instead of hand-rolling a retry loop.
func BackoffPoll(ctx context.Context, read func() ([]byte, bool, error), maxInterval time.Duration) ([]byte, error) {
	interval := 2 * time.Millisecond
	for {
		v, ok, err := read()
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case <-time.After(interval):
		}
		interval *= 2
		if interval > maxInterval {
			interval = maxInterval
		}
	}
}
