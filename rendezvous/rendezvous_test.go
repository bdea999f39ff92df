package rendezvous

import (
	"context"
	"testing"
	"time"
)

func TestMemClientPutThenPoll(t *testing.T) {
	c := NewMemClient()
	key := Key{ServerID: 1, Opcode: OpTransactionRound1, TransactionID: 42}

	if err := c.Put(context.Background(), key, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := c.Poll(ctx, key)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Poll returned %q, want %q", got, "payload")
	}
}

func TestMemClientPollBlocksUntilPut(t *testing.T) {
	c := NewMemClient()
	key := Key{ServerID: 2, Opcode: OpTransactionRound2, TransactionID: 7}

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = c.Put(context.Background(), key, []byte("later"))
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := c.Poll(ctx, key)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if string(got) != "later" {
		t.Fatalf("Poll returned %q, want %q", got, "later")
	}
	<-done
}

func TestMemClientPollTimesOut(t *testing.T) {
	c := NewMemClient()
	key := Key{ServerID: 1, Opcode: OpSettleCommit, TransactionID: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Poll(ctx, key); err != ErrTimeout {
		t.Fatalf("Poll error = %v, want ErrTimeout", err)
	}
}

func TestKeyBytesDistinctPerOpcode(t *testing.T) {
	base := Key{ServerID: 1, TransactionID: 99}
	k1 := base
	k1.Opcode = OpTransactionRound2
	k2 := base
	k2.Opcode = OpTransactionRound3
	if string(k1.Bytes()) == string(k2.Bytes()) {
		t.Fatal("keys for distinct opcodes of the same transaction must not collide")
	}
}
