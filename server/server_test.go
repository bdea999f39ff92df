package server

import (
	"context"
	"testing"
	"time"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/dpf"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/prf"
	"github.com/anon-splitting/psplit/rendezvous"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/txproof"
	"github.com/anon-splitting/psplit/wire"
)

func newTestPair(t *testing.T) (*Context, *Context) {
	t.Helper()
	priv, pub, err := credential.NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}
	macKey, err := token.NewMACKey()
	if err != nil {
		t.Fatalf("NewMACKey: %v", err)
	}
	rv := rendezvous.NewMemClient()
	return NewContext(0, rv, macKey, pub, priv), NewContext(1, rv, macKey, pub, nil)
}

func TestGroupSetupCredentialIssueAndShow(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)

	setupReq := wire.GroupSetupRequest{ThisServerKey: [16]byte{1, 2, 3}, PeerServerKey: [16]byte{4, 5, 6}}
	resp0, err := ctx0.HandleGroupSetup(setupReq)
	if err != nil {
		t.Fatalf("HandleGroupSetup(server0): %v", err)
	}
	resp1, err := ctx1.HandleGroupSetup(setupReq)
	if err != nil {
		t.Fatalf("HandleGroupSetup(server1): %v", err)
	}
	if len(resp0.AccountIDs) != MaxGroupSize || len(resp1.AccountIDs) != MaxGroupSize {
		t.Fatalf("expected %d account ids from each server", MaxGroupSize)
	}

	m1, m2, m3, m4, m5 := field.FromInt(7), field.FromInt(1), field.FromInt(2), field.FromInt(3), field.FromInt(4)
	req, ck, err := credential.BuildCredentialRequest(m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("BuildCredentialRequest: %v", err)
	}

	issueResp, err := ctx0.HandleCredentialIssue(wire.CredentialIssueRequest{
		Requests: []wire.CredentialRequestDTO{wire.CredentialRequestToWire(req)},
	})
	if err != nil {
		t.Fatalf("HandleCredentialIssue: %v", err)
	}
	if len(issueResp.Responses) != 1 {
		t.Fatalf("expected 1 credential response, got %d", len(issueResp.Responses))
	}
	resp, err := wire.CredentialResponseFromWire(issueResp.Responses[0])
	if err != nil {
		t.Fatalf("CredentialResponseFromWire: %v", err)
	}

	cred, err := credential.FinishIssuance(ck, ctx0.IssuerPub, resp, m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("FinishIssuance: %v", err)
	}
	show, err := credential.ShowBlind345_5(cred, ctx0.IssuerPub)
	if err != nil {
		t.Fatalf("ShowBlind345_5: %v", err)
	}

	tokDTO, err := ctx0.HandleShow(wire.ShowMessageToWire(show))
	if err != nil {
		t.Fatalf("HandleShow: %v", err)
	}
	tok, err := wire.GroupTokenFromWire(tokDTO)
	if err != nil {
		t.Fatalf("GroupTokenFromWire: %v", err)
	}
	if err := token.Verify(ctx1.MACKey, tok); err != nil {
		t.Fatalf("server2 failed to independently verify the issued token: %v", err)
	}

	if _, err := ctx1.HandleCredentialIssue(wire.CredentialIssueRequest{}); err != ErrNotIssuer {
		t.Fatalf("expected ErrNotIssuer from the non-issuing server, got %v", err)
	}
}

// txFixture holds everything needed to drive one HandleTransaction call
// on both servers.
type txFixture struct {
	server0, server1 *wire.ParsedTransaction
}

func buildTransaction(t *testing.T, macKey [token.MACKeySize]byte, txID uint64, srcIdx, destIdx uint64, amount int64) txFixture {
	t.Helper()

	a := field.FromInt(int64(srcIdx))
	x := field.FromInt(amount)
	r1, err := field.Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	r2, err := field.Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	r3, err := field.Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}

	e1 := txproof.Commit(a, r1)
	e2 := txproof.Commit(x, r2)
	ne3 := txproof.Commit(a.Mul(x), r3).Neg()
	st := txproof.TransactionStatement{
		V1: curve.G().Mul(r1.Scalar()), V2: curve.G().Mul(r2.Scalar()), V3: curve.G().Mul(r3.Scalar()),
		E1: e1, E2: e2, NE3: ne3,
	}
	proof, err := txproof.ProveTransaction(st, a, r1, r2, r3)
	if err != nil {
		t.Fatalf("ProveTransaction: %v", err)
	}

	p := curve.G()
	z3, err := field.Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	cmAID := p.Mul(a.Scalar()).Add(curve.G().Mul(z3.Scalar()))
	tok := token.Issue(macKey, p, field.FromInt(1), cmAID)

	tokenSt := txproof.TokenStatement{P: p, CmAID: cmAID, E1: e1}
	tokenProof, err := txproof.ProveToken(tokenSt, a, z3, r1)
	if err != nil {
		t.Fatalf("ProveToken: %v", err)
	}

	betasSrc, err := field.RandomVector(dpf.DomainTransaction - 1)
	if err != nil {
		t.Fatalf("RandomVector: %v", err)
	}
	srcSketch0, srcSketch1, err := dpf.GenSketchKeys(dpf.IndexBits(srcIdx, dpf.DomainTransaction), betasSrc, x.Neg())
	if err != nil {
		t.Fatalf("GenSketchKeys(src): %v", err)
	}
	betasDest, err := field.RandomVector(dpf.DomainTransaction - 1)
	if err != nil {
		t.Fatalf("RandomVector: %v", err)
	}
	destSketch0, destSketch1, err := dpf.GenSketchKeys(dpf.IndexBits(destIdx, dpf.DomainTransaction), betasDest, x)
	if err != nil {
		t.Fatalf("GenSketchKeys(dest): %v", err)
	}

	r2Share0, r2Share1, err := field.Share2(r2)
	if err != nil {
		t.Fatalf("Share2: %v", err)
	}
	r3Share0, r3Share1, err := field.Share2(r3)
	if err != nil {
		t.Fatalf("Share2: %v", err)
	}

	data0 := wire.NewTransactionData(txID, 0, st, proof, tok, tokenProof, srcSketch0, destSketch0, r2Share0, r3Share0)
	data1 := wire.NewTransactionData(txID, 1, st, proof, tok, tokenProof, srcSketch1, destSketch1, r2Share1, r3Share1)

	pt0, err := wire.ParseTransactionData(data0)
	if err != nil {
		t.Fatalf("ParseTransactionData(server0): %v", err)
	}
	pt1, err := wire.ParseTransactionData(data1)
	if err != nil {
		t.Fatalf("ParseTransactionData(server1): %v", err)
	}
	return txFixture{server0: pt0, server1: pt1}
}

func runBothServers(t *testing.T, ctx0, ctx1 *Context, fx txFixture) (string, string) {
	t.Helper()
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		msg string
		err error
	}
	res0 := make(chan result, 1)
	res1 := make(chan result, 1)

	go func() {
		m, err := ctx0.HandleTransaction(bg, fx.server0)
		res0 <- result{m, err}
	}()
	go func() {
		m, err := ctx1.HandleTransaction(bg, fx.server1)
		res1 <- result{m, err}
	}()

	r0 := <-res0
	r1 := <-res1
	if r0.err != nil {
		t.Fatalf("server0 HandleTransaction: %v", r0.err)
	}
	if r1.err != nil {
		t.Fatalf("server1 HandleTransaction: %v", r1.err)
	}
	return r0.msg, r1.msg
}

func TestTransactionSameGroupAccepted(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)
	fx := buildTransaction(t, ctx0.MACKey, 1, 2, 7, 5)

	m0, m1 := runBothServers(t, ctx0, ctx1, fx)
	if m0 != wire.TransactionProcessed || m1 != wire.TransactionProcessed {
		t.Fatalf("expected both servers to report %q, got %q and %q", wire.TransactionProcessed, m0, m1)
	}

	if got := ctx0.balanceAt(2).Add(ctx1.balanceAt(2)); !got.Equal(field.FromInt(-5)) {
		t.Fatalf("source account balance delta = %v, want -5", got)
	}
	if got := ctx0.balanceAt(7).Add(ctx1.balanceAt(7)); !got.Equal(field.FromInt(5)) {
		t.Fatalf("destination account balance delta = %v, want 5", got)
	}
}

func TestTransactionCrossGroupRejected(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)
	// Index 2 falls in group 0, index 12 falls in group 1.
	fx := buildTransaction(t, ctx0.MACKey, 2, 2, 12, 5)

	m0, m1 := runBothServers(t, ctx0, ctx1, fx)
	if m0 != wire.TransactionInvalid || m1 != wire.TransactionInvalid {
		t.Fatalf("expected a cross-group transaction to be rejected on both servers, got %q and %q", m0, m1)
	}
	if got := ctx0.balanceAt(2).Add(ctx1.balanceAt(2)); !got.IsZero() {
		t.Fatalf("rejected transaction must not move any balance, got delta %v", got)
	}
}

func TestSettleReturnsGroupBalances(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)

	setupReq := wire.GroupSetupRequest{ThisServerKey: [16]byte{9, 9, 9}}
	if _, err := ctx0.HandleGroupSetup(setupReq); err != nil {
		t.Fatalf("HandleGroupSetup(server0): %v", err)
	}
	if _, err := ctx1.HandleGroupSetup(setupReq); err != nil {
		t.Fatalf("HandleGroupSetup(server1): %v", err)
	}

	key0, key1, err := dpf.Gen(dpf.IndexBits(0, dpf.DomainSettle), make([]field.Element, dpf.DomainSettle-1), field.One())
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}

	var rSeed [16]byte
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		resp wire.SettleResponse
		err  error
	}
	r0ch := make(chan result, 1)
	r1ch := make(chan result, 1)
	go func() {
		resp, err := ctx0.HandleSettle(bg, 1, wire.SettleRequest{RoundID: 1, DPFKey: wire.PlainDPFKeyToWire(key0), RSeed: rSeed})
		r0ch <- result{resp, err}
	}()
	go func() {
		resp, err := ctx1.HandleSettle(bg, 1, wire.SettleRequest{RoundID: 1, DPFKey: wire.PlainDPFKeyToWire(key1), RSeed: rSeed})
		r1ch <- result{resp, err}
	}()

	r0 := <-r0ch
	r1 := <-r1ch
	if r0.err != nil {
		t.Fatalf("HandleSettle(server0): %v", r0.err)
	}
	if r1.err != nil {
		t.Fatalf("HandleSettle(server1): %v", r1.err)
	}
	if len(r0.resp.Balances) != MaxGroupSize || len(r1.resp.Balances) != MaxGroupSize {
		t.Fatalf("expected %d balance shares from each server", MaxGroupSize)
	}
}

// settleBothServers drives one settle round on both servers concurrently
// (HandleSettle blocks on the peer's commit-open rendezvous exchange,
// same reasoning as runBothServers for transactions) and returns both
// responses.
func settleBothServers(t *testing.T, ctx0, ctx1 *Context, roundID uint64, key0, key1 *dpf.Key, rSeed [16]byte) (wire.SettleResponse, wire.SettleResponse) {
	t.Helper()
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		resp wire.SettleResponse
		err  error
	}
	r0ch := make(chan result, 1)
	r1ch := make(chan result, 1)
	go func() {
		resp, err := ctx0.HandleSettle(bg, roundID, wire.SettleRequest{RoundID: roundID, DPFKey: wire.PlainDPFKeyToWire(key0), RSeed: rSeed})
		r0ch <- result{resp, err}
	}()
	go func() {
		resp, err := ctx1.HandleSettle(bg, roundID, wire.SettleRequest{RoundID: roundID, DPFKey: wire.PlainDPFKeyToWire(key1), RSeed: rSeed})
		r1ch <- result{resp, err}
	}()

	r0 := <-r0ch
	r1 := <-r1ch
	if r0.err != nil {
		t.Fatalf("HandleSettle(server0): %v", r0.err)
	}
	if r1.err != nil {
		t.Fatalf("HandleSettle(server1): %v", r1.err)
	}
	return r0.resp, r1.resp
}

// reconstructBalances sums the two servers' settle shares and peels off
// both servers' PRF masks with rSeed, the client-side half of spec.md
// §4.8 step 5 (prf.Unmask).
func reconstructBalances(resp0, resp1 wire.SettleResponse, key1, key2 field.Element, rSeed [16]byte) []field.Element {
	out := make([]field.Element, MaxGroupSize)
	for k := 0; k < MaxGroupSize; k++ {
		combined := field.FromBytes(resp0.Balances[k]).Add(field.FromBytes(resp1.Balances[k]))
		out[k] = prf.Unmask(combined, key1, key2, rSeed, k)
	}
	return out
}

// TestSettleReconstructsGroupBalances exercises spec.md's Testable
// Property 6 and Scenario A/B: after a sequence of successful
// same-group transactions, a client holding both of a group's settle
// PRF key halves (token.GroupTokenPriv, constructed the way a holder
// would right after its GroupToken is issued) reconstructs exactly the
// group's true balance vector from the two servers' settle responses.
func TestSettleReconstructsGroupBalances(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)

	key0Raw := [16]byte{9, 9, 9}
	key1Raw := [16]byte{1, 1, 1}
	if _, err := ctx0.HandleGroupSetup(wire.GroupSetupRequest{ThisServerKey: key0Raw, PeerServerKey: key1Raw}); err != nil {
		t.Fatalf("HandleGroupSetup(server0): %v", err)
	}
	if _, err := ctx1.HandleGroupSetup(wire.GroupSetupRequest{ThisServerKey: key1Raw, PeerServerKey: key0Raw}); err != nil {
		t.Fatalf("HandleGroupSetup(server1): %v", err)
	}

	// A holder bundles its two PRF key halves with its token the moment
	// it has both, exactly as a real client would (token.NewGroupTokenPriv).
	groupKey0 := prf.DeriveGroupKey(key0Raw)
	groupKey1 := prf.DeriveGroupKey(key1Raw)
	priv := token.NewGroupTokenPriv(token.GroupToken{}, field.Zero(), groupKey0, groupKey1, field.FromInt(2))

	// Scenario A: account 2 sends 20 to account 5 (both group 0).
	fx := buildTransaction(t, ctx0.MACKey, 1, 2, 5, 20)
	if m0, m1 := runBothServers(t, ctx0, ctx1, fx); m0 != wire.TransactionProcessed || m1 != wire.TransactionProcessed {
		t.Fatalf("expected transaction to be processed, got %q and %q", m0, m1)
	}

	// Scenario B: two +7 transfers from account 3 to account 4, then one
	// +5 transfer from account 4 back to account 3.
	for i, tc := range []struct {
		txID              uint64
		src, dest, amount int64
	}{
		{2, 3, 4, 7},
		{3, 3, 4, 7},
		{4, 4, 3, 5},
	} {
		fx := buildTransaction(t, ctx0.MACKey, tc.txID, uint64(tc.src), uint64(tc.dest), tc.amount)
		if m0, m1 := runBothServers(t, ctx0, ctx1, fx); m0 != wire.TransactionProcessed || m1 != wire.TransactionProcessed {
			t.Fatalf("transfer %d: expected transaction to be processed, got %q and %q", i, m0, m1)
		}
	}

	var rSeed [16]byte
	copy(rSeed[:], []byte("settle round nonce"))
	key0, key1, err := dpf.Gen(dpf.IndexBits(0, dpf.DomainSettle), make([]field.Element, dpf.DomainSettle-1), field.One())
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	resp0, resp1 := settleBothServers(t, ctx0, ctx1, 1, key0, key1, rSeed)

	got := reconstructBalances(resp0, resp1, priv.PRFKey1, priv.PRFKey2, rSeed)
	want := map[int]int64{2: -20, 5: 20, 3: -9, 4: 9}
	for k := 0; k < MaxGroupSize; k++ {
		wantVal := field.FromInt(want[k])
		if !got[k].Equal(wantVal) {
			t.Fatalf("slot %d: reconstructed %v, want %v", k, got[k], wantVal)
		}
		if trueVal := ctx0.balanceAt(k).Add(ctx1.balanceAt(k)); !got[k].Equal(trueVal) {
			t.Fatalf("slot %d: reconstructed balance %v does not match db %v", k, got[k], trueVal)
		}
	}
}

// TestSettleWrongNonceGarblesBalances exercises spec.md's Scenario E: a
// client reconstructing with a nonce other than the one the settle
// round actually used recovers values that are (with overwhelming
// probability) not the true balances.
func TestSettleWrongNonceGarblesBalances(t *testing.T) {
	ctx0, ctx1 := newTestPair(t)

	key0Raw := [16]byte{5, 5, 5}
	key1Raw := [16]byte{6, 6, 6}
	if _, err := ctx0.HandleGroupSetup(wire.GroupSetupRequest{ThisServerKey: key0Raw, PeerServerKey: key1Raw}); err != nil {
		t.Fatalf("HandleGroupSetup(server0): %v", err)
	}
	if _, err := ctx1.HandleGroupSetup(wire.GroupSetupRequest{ThisServerKey: key1Raw, PeerServerKey: key0Raw}); err != nil {
		t.Fatalf("HandleGroupSetup(server1): %v", err)
	}

	fx := buildTransaction(t, ctx0.MACKey, 1, 2, 5, 20)
	if m0, m1 := runBothServers(t, ctx0, ctx1, fx); m0 != wire.TransactionProcessed || m1 != wire.TransactionProcessed {
		t.Fatalf("expected transaction to be processed, got %q and %q", m0, m1)
	}

	var rSeed [16]byte
	copy(rSeed[:], []byte("the real nonce!!"))
	key0, key1, err := dpf.Gen(dpf.IndexBits(0, dpf.DomainSettle), make([]field.Element, dpf.DomainSettle-1), field.One())
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	resp0, resp1 := settleBothServers(t, ctx0, ctx1, 1, key0, key1, rSeed)

	var wrongSeed [16]byte
	copy(wrongSeed[:], []byte("not the nonce!!!"))
	groupKey0 := prf.DeriveGroupKey(key0Raw)
	groupKey1 := prf.DeriveGroupKey(key1Raw)
	got := reconstructBalances(resp0, resp1, groupKey0, groupKey1, wrongSeed)

	mismatch := false
	for k := 0; k < MaxGroupSize; k++ {
		trueVal := ctx0.balanceAt(k).Add(ctx1.balanceAt(k))
		if !got[k].Equal(trueVal) {
			mismatch = true
			break
		}
	}
	if !mismatch {
		t.Fatalf("reconstructing with the wrong nonce unexpectedly recovered the true balances")
	}
}
