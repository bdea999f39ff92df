package server

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/dpf"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/rendezvous"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/txproof"
	"github.com/anon-splitting/psplit/wire"
)

func txScalarBytes(e field.Element) []byte { return e.Bytes() }

func txScalarFromBytes(b []byte) field.Element { return field.FromBytes(b) }

func txPointBytes(p curve.Point) []byte { return p.Compress() }

func txPointFromBytes(b []byte) (curve.Point, error) { return curve.Decompress(b) }

func scalarSliceBytes(s []field.Element) [][]byte {
	out := make([][]byte, len(s))
	for i, e := range s {
		out[i] = txScalarBytes(e)
	}
	return out
}

func scalarSliceFromBytes(b [][]byte) []field.Element {
	out := make([]field.Element, len(b))
	for i, x := range b {
		out[i] = txScalarFromBytes(x)
	}
	return out
}

// round1Bundle carries both sketch keys' Round1 CorShares, the
// same-group check vector, and the amount-binding commitment point in
// a single rendezvous round trip (spec.md §4.7 steps 4-5).
type round1Bundle struct {
	SrcD, SrcE   [][]byte
	DestD, DestE [][]byte
	GroupShare   [][]byte
	AmountPoint  []byte
}

func round1MessageToBytes(m dpf.Round1Message) ([][]byte, [][]byte) {
	d := make([][]byte, len(m.D))
	e := make([][]byte, len(m.E))
	for i := range m.D {
		d[i] = txScalarBytes(m.D[i])
		e[i] = txScalarBytes(m.E[i])
	}
	return d, e
}

func round1MessageFromBytes(d, e [][]byte) dpf.Round1Message {
	var m dpf.Round1Message
	for i := range m.D {
		m.D[i] = txScalarFromBytes(d[i])
		m.E[i] = txScalarFromBytes(e[i])
	}
	return m
}

// round3Bundle carries both sketch keys' final verification-check
// shares.
type round3Bundle struct {
	SrcZ, DestZ [][]byte
}

func sketchOutputToBytes(o dpf.SketchOutput) [][]byte {
	out := make([][]byte, len(o.Z))
	for i, z := range o.Z {
		out[i] = txScalarBytes(z)
	}
	return out
}

func sketchOutputFromBytes(b [][]byte) dpf.SketchOutput {
	var o dpf.SketchOutput
	for i := range o.Z {
		o.Z[i] = txScalarFromBytes(b[i])
	}
	return o
}

// exchange publishes mine under key and blocks for the peer's value
// under the mirrored key (same opcode and transaction id, the peer's
// server id), the one rendezvous round trip every MPC round in this
// package is built from.
func exchange(ctx context.Context, c *Context, opcode rendezvous.Opcode, txID uint64, mine interface{}, theirs interface{}) error {
	data, err := wire.Marshal(mine)
	if err != nil {
		return fmt.Errorf("server: marshaling round payload: %w", err)
	}
	myKey := rendezvous.Key{ServerID: c.ServerIdx, Opcode: opcode, TransactionID: txID}
	if err := c.Rendezvous.Put(ctx, myKey, data); err != nil {
		return fmt.Errorf("server: publishing round payload: %w", err)
	}

	peerKey := rendezvous.Key{ServerID: c.PeerID, Opcode: opcode, TransactionID: txID}
	peerData, err := c.Rendezvous.Poll(ctx, peerKey)
	if err != nil {
		return fmt.Errorf("server: waiting for peer round payload: %w", err)
	}
	if err := wire.Unmarshal(peerData, theirs); err != nil {
		return fmt.Errorf("server: decoding peer round payload: %w", err)
	}
	return nil
}

func groupShareVector(srcEval, destEval []field.Element) []field.Element {
	out := make([]field.Element, MaxGroupNum)
	for j := 0; j < MaxGroupNum; j++ {
		start, end := groupSlotRange(uint64(j))
		sum := field.Zero()
		for i := start; i < end && i < len(srcEval); i++ {
			sum = sum.Add(srcEval[i]).Add(destEval[i])
		}
		out[j] = sum
	}
	return out
}

// HandleTransaction implements opcode 4 (spec.md §4.7): verifies the
// client-supplied NIZKs and group-token MAC, runs the malicious-secure
// sketching MPC over both the source and destination DPF keys, checks
// that source and destination fall in the same group and that the
// DPFs' claimed value matches the transaction's committed amount, and,
// only if every check passes, atomically applies this server's share
// of the balance delta.
//
// Every failure path returns wire.TransactionInvalid with a nil error:
// per spec.md §7's uniform-failure policy, a client must not be able
// to distinguish a bad NIZK from a failed MPC check from a
// cross-group transfer. A non-nil error return means a local or
// infrastructure fault (rendezvous unreachable, malformed payload),
// not a rejected transaction.
func (c *Context) HandleTransaction(ctx context.Context, pt *wire.ParsedTransaction) (string, error) {
	if pt.ServerIdx != c.ServerIdx {
		return "", fmt.Errorf("server: transaction data server index %d does not match this server (%d)", pt.ServerIdx, c.ServerIdx)
	}

	if err := txproof.VerifyTransaction(pt.Statement, pt.Proof); err != nil {
		return wire.TransactionInvalid, nil
	}
	if err := token.Verify(c.MACKey, pt.Token); err != nil {
		return wire.TransactionInvalid, nil
	}
	tokenSt := txproof.TokenStatement{P: pt.Token.P, CmAID: pt.Token.CmAID, E1: pt.Statement.E1}
	if err := txproof.VerifyToken(tokenSt, pt.TokenProof); err != nil {
		return wire.TransactionInvalid, nil
	}

	srcEval, err := pt.SrcSketch.EvalAll(dpf.DomainTransaction)
	if err != nil {
		return "", fmt.Errorf("server: evaluating source DPF: %w", err)
	}
	destEval, err := pt.DestSketch.EvalAll(dpf.DomainTransaction)
	if err != nil {
		return "", fmt.Errorf("server: evaluating destination DPF: %w", err)
	}

	var txIDBytes [8]byte
	binary.BigEndian.PutUint64(txIDBytes[:], pt.TransactionID)
	r, err := dpf.ChallengeVector(txIDBytes[:], 1<<dpf.DomainTransaction)
	if err != nil {
		return "", fmt.Errorf("server: deriving challenge vector: %w", err)
	}

	srcState := pt.SrcSketch.SketchAt(srcEval, r)
	destState := pt.DestSketch.SketchAt(destEval, r)

	myGroupShare := groupShareVector(srcEval, destEval)
	myAmountPoint := txproof.Commit(localDestBeta(pt), pt.R2Share)

	mySrcR1 := pt.SrcSketch.Round1(srcState)
	myDestR1 := pt.DestSketch.Round1(destState)
	srcR1D, srcR1E := round1MessageToBytes(mySrcR1)
	destR1D, destR1E := round1MessageToBytes(myDestR1)
	myRound1 := round1Bundle{
		SrcD: srcR1D, SrcE: srcR1E,
		DestD: destR1D, DestE: destR1E,
		GroupShare:  scalarSliceBytes(myGroupShare),
		AmountPoint: txPointBytes(myAmountPoint),
	}
	var peerRound1 round1Bundle
	if err := exchange(ctx, c, rendezvous.OpTransactionRound1, pt.TransactionID, myRound1, &peerRound1); err != nil {
		return "", err
	}

	peerSrcR1 := round1MessageFromBytes(peerRound1.SrcD, peerRound1.SrcE)
	peerDestR1 := round1MessageFromBytes(peerRound1.DestD, peerRound1.DestE)
	srcCor := dpf.Combine(mySrcR1, peerSrcR1)
	destCor := dpf.Combine(myDestR1, peerDestR1)

	partyIdx := int(pt.SrcSketch.Party)
	srcOut := pt.SrcSketch.Round3(partyIdx, srcState, srcCor)
	destOut := pt.DestSketch.Round3(partyIdx, destState, destCor)

	myRound3 := round3Bundle{SrcZ: sketchOutputToBytes(srcOut), DestZ: sketchOutputToBytes(destOut)}
	var peerRound3 round3Bundle
	if err := exchange(ctx, c, rendezvous.OpTransactionRound3, pt.TransactionID, myRound3, &peerRound3); err != nil {
		return "", err
	}

	peerSrcOut := sketchOutputFromBytes(peerRound3.SrcZ)
	peerDestOut := sketchOutputFromBytes(peerRound3.DestZ)
	if !dpf.VerifySketch(srcOut, peerSrcOut) || !dpf.VerifySketch(destOut, peerDestOut) {
		return wire.TransactionInvalid, nil
	}

	peerGroupShare := scalarSliceFromBytes(peerRound1.GroupShare)
	for j := 0; j < MaxGroupNum; j++ {
		if !myGroupShare[j].Add(peerGroupShare[j]).IsZero() {
			return wire.TransactionInvalid, nil
		}
	}

	peerAmountPoint, err := txPointFromBytes(peerRound1.AmountPoint)
	if err != nil {
		return "", fmt.Errorf("server: decoding peer amount-binding point: %w", err)
	}
	combinedAmountPoint := myAmountPoint.Add(peerAmountPoint)
	if !combinedAmountPoint.Equal(pt.Statement.E2) {
		return wire.TransactionInvalid, nil
	}

	var delta [DBSize]field.Element
	for i := 0; i < DBSize; i++ {
		delta[i] = srcEval[i].Add(destEval[i])
	}
	c.applyDelta(delta)

	return wire.TransactionProcessed, nil
}

// localDestBeta returns this server's share of the destination DPF's
// claimed point value, the quantity the amount-binding commitment
// point is built over.
func localDestBeta(pt *wire.ParsedTransaction) field.Element {
	return pt.DestSketch.Beta
}
