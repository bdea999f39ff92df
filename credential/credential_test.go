package credential

import (
	"testing"

	"github.com/anon-splitting/psplit/field"
)

func issueTestCredential(t *testing.T, priv *IssuerPrivKey, pub *IssuerPubKey, m1, m2, m3, m4, m5 field.Element) *Credential {
	t.Helper()

	req, ck, err := BuildCredentialRequest(m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("BuildCredentialRequest: %v", err)
	}

	resp, err := IssueBlind124_5(priv, pub, req)
	if err != nil {
		t.Fatalf("IssueBlind124_5: %v", err)
	}

	cred, err := FinishIssuance(ck, pub, resp, m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("FinishIssuance: %v", err)
	}
	return cred
}

func TestIssueAndShowRoundTrip(t *testing.T) {
	priv, pub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}

	m1, m2, m3 := field.FromInt(11), field.FromInt(22), field.FromInt(33)
	m4, m5 := field.FromInt(44), field.FromInt(55)
	cred := issueTestCredential(t, priv, pub, m1, m2, m3, m4, m5)

	msg, err := ShowBlind345_5(cred, pub)
	if err != nil {
		t.Fatalf("ShowBlind345_5: %v", err)
	}

	vc, err := VerifyShow(priv, pub, msg)
	if err != nil {
		t.Fatalf("VerifyShow rejected an honestly-issued credential: %v", err)
	}
	if !vc.M1.Equal(m1) {
		t.Fatalf("VerifyShow returned wrong revealed attribute")
	}
	if !vc.Cm3.Equal(msg.Cm3) {
		t.Fatalf("VerifyShow returned a Cm3 different from the one shown")
	}
}

func TestShowRejectsWrongRevealedAttribute(t *testing.T) {
	priv, pub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}

	m1, m2, m3 := field.FromInt(1), field.FromInt(2), field.FromInt(3)
	m4, m5 := field.FromInt(4), field.FromInt(5)
	cred := issueTestCredential(t, priv, pub, m1, m2, m3, m4, m5)

	msg, err := ShowBlind345_5(cred, pub)
	if err != nil {
		t.Fatalf("ShowBlind345_5: %v", err)
	}

	msg.M1 = field.FromInt(999)
	if _, err := VerifyShow(priv, pub, msg); err == nil {
		t.Fatalf("VerifyShow accepted a tampered revealed attribute")
	}
}

func TestShowRejectsWrongHiddenAttribute(t *testing.T) {
	priv, pub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}

	m1, m2, m3 := field.FromInt(1), field.FromInt(2), field.FromInt(3)
	m4, m5 := field.FromInt(4), field.FromInt(5)
	cred := issueTestCredential(t, priv, pub, m1, m2, m3, m4, m5)

	// A holder that lies about a hidden attribute after issuance cannot
	// produce a valid show: the witness w4=M4*e it computes during
	// ShowBlind345_5 no longer matches what VerifyShow's residual expects.
	cred.M4 = field.FromInt(9001)

	msg, err := ShowBlind345_5(cred, pub)
	if err != nil {
		t.Fatalf("ShowBlind345_5: %v", err)
	}
	if _, err := VerifyShow(priv, pub, msg); err == nil {
		t.Fatalf("VerifyShow accepted a credential with a forged hidden attribute")
	}
}

func TestIssuanceRejectsTamperedUserBlindingProof(t *testing.T) {
	priv, pub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}

	m1, m2, m3 := field.FromInt(1), field.FromInt(2), field.FromInt(3)
	m4, m5 := field.FromInt(4), field.FromInt(5)

	req, _, err := BuildCredentialRequest(m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("BuildCredentialRequest: %v", err)
	}
	req.Proof.Sm1 = req.Proof.Sm1.Add(field.FromInt(1))

	if _, err := IssueBlind124_5(priv, pub, req); err == nil {
		t.Fatalf("IssueBlind124_5 accepted a tampered user blinding proof")
	}
}

func TestFinishIssuanceRejectsWrongIssuerKey(t *testing.T) {
	priv, pub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}
	_, otherPub, err := NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}

	m1, m2, m3 := field.FromInt(1), field.FromInt(2), field.FromInt(3)
	m4, m5 := field.FromInt(4), field.FromInt(5)

	req, ck, err := BuildCredentialRequest(m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("BuildCredentialRequest: %v", err)
	}
	resp, err := IssueBlind124_5(priv, pub, req)
	if err != nil {
		t.Fatalf("IssueBlind124_5: %v", err)
	}

	if _, err := FinishIssuance(ck, otherPub, resp, m1, m2, m3, m4, m5); err == nil {
		t.Fatalf("FinishIssuance accepted a response verified against the wrong issuer key")
	}
}
