package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/rendezvous"
	"github.com/anon-splitting/psplit/wire"
)

// settleCommitBundle is published during the commit half of the
// commit-then-open barrier: a hiding, binding commitment to this
// server's settle response, computed before either server has seen
// the other's.
type settleCommitBundle struct {
	Digest []byte
}

// settleOpenBundle reveals the response and nonce the commit phase
// bound to, so the peer can confirm it matches.
type settleOpenBundle struct {
	Response []byte
	Nonce    []byte
}

func commitDigest(response [][]byte, nonce []byte) []byte {
	h := sha256.New()
	for _, b := range response {
		h.Write(b)
	}
	h.Write(nonce)
	return h.Sum(nil)
}

// HandleSettle implements opcode 5 (spec.md §4.8): masks this server's
// entire balance database (every group, not only the requester's) with
// this server's half of each group's PRF key, exchanges the masked
// database with the peer through a commit-then-open barrier so neither
// server can shape its response after seeing the other's (spec.md
// §4.8's "commit then open" note), and only then applies the client's
// single-point settle DPF share to select exactly one group's now
// jointly-masked slots — without this server ever learning which group
// that is. Masking (and exchanging) every group's slots, not only the
// selected one, is what keeps the selection hidden: revealing masked
// values for one group only would itself leak which group the client
// asked about. The barrier's round id is settleRoundID, supplied by the
// caller (e.g. a per-connection counter), distinct from any transaction
// id space.
func (c *Context) HandleSettle(ctx context.Context, settleRoundID uint64, req wire.SettleRequest) (wire.SettleResponse, error) {
	selectKey, err := wire.PlainDPFKeyFromWire(req.DPFKey)
	if err != nil {
		return wire.SettleResponse{}, fmt.Errorf("server: decoding settle selection key: %w", err)
	}
	selection, err := selectKey.EvalAllSettle()
	if err != nil {
		return wire.SettleResponse{}, fmt.Errorf("server: evaluating settle selection key: %w", err)
	}
	if len(selection) < MaxGroupNum {
		return wire.SettleResponse{}, fmt.Errorf("server: settle domain too small for %d groups", MaxGroupNum)
	}

	myMasked := make([]field.Element, DBSize)
	for j := 0; j < MaxGroupNum; j++ {
		start, _ := groupSlotRange(uint64(j))
		key, hasKey := c.groupPRFKey(uint64(j))
		for k := 0; k < MaxGroupSize; k++ {
			v := c.balanceAt(start + k)
			if hasKey {
				v = v.Add(maskValue(key, req.RSeed, k))
			}
			myMasked[start+k] = v
		}
	}

	myMaskedBytes := make([][]byte, len(myMasked))
	for i, v := range myMasked {
		myMaskedBytes[i] = v.Bytes()
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return wire.SettleResponse{}, fmt.Errorf("server: generating commit nonce: %w", err)
	}
	digest := commitDigest(myMaskedBytes, nonce)

	var peerCommit settleCommitBundle
	if err := exchange(ctx, c, rendezvous.OpSettleCommit, settleRoundID, settleCommitBundle{Digest: digest}, &peerCommit); err != nil {
		return wire.SettleResponse{}, err
	}

	var peerOpen settleOpenBundle
	if err := exchange(ctx, c, rendezvous.OpSettleOpen, settleRoundID, settleOpenBundle{Response: flatten(myMaskedBytes), Nonce: nonce}, &peerOpen); err != nil {
		return wire.SettleResponse{}, err
	}
	peerMaskedBytes := unflatten(peerOpen.Response, len(myMasked))
	if subtle.ConstantTimeCompare(commitDigest(peerMaskedBytes, peerOpen.Nonce), peerCommit.Digest) != 1 {
		return wire.SettleResponse{}, fmt.Errorf("server: peer's opened settle response does not match its commitment")
	}

	// Both servers now hold the identical jointly-masked database
	// (spec.md §4.8 step 4: "my_masked_db[i_in_j] + peer_masked_db[i_in_j]").
	// Each applies its own share of the selection weight to that shared
	// quantity; summing the two servers' responses client-side sums the
	// weight shares back into the indicator function at the requested
	// group, cancelling everywhere else.
	resp := make([]field.Element, MaxGroupSize)
	for j := 0; j < MaxGroupNum; j++ {
		weight := selection[j]
		if weight.IsZero() {
			continue
		}
		start, _ := groupSlotRange(uint64(j))
		for k := 0; k < MaxGroupSize; k++ {
			combined := myMasked[start+k].Add(field.FromBytes(peerMaskedBytes[start+k]))
			resp[k] = resp[k].Add(weight.Mul(combined))
		}
	}

	respBytes := make([][]byte, len(resp))
	for i, v := range resp {
		respBytes[i] = v.Bytes()
	}
	return wire.SettleResponse{Balances: respBytes}, nil
}

// flatten/unflatten pack a slice of fixed-length byte strings into one
// buffer for the open-round rendezvous payload, since its scalar count
// (DBSize) is already known to both sides.
func flatten(parts [][]byte) []byte {
	if len(parts) == 0 {
		return nil
	}
	width := len(parts[0])
	out := make([]byte, 0, width*len(parts))
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func unflatten(buf []byte, count int) [][]byte {
	if count == 0 {
		return nil
	}
	width := len(buf) / count
	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		out[i] = buf[i*width : (i+1)*width]
	}
	return out
}
