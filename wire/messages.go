package wire

import (
	"fmt"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/dpf"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/txproof"
)

// IssuerPubKeyDTO is the wire form of credential.IssuerPubKey.
type IssuerPubKeyDTO struct {
	X0 []byte   `cbor:"1,keyasint"`
	Xi [][]byte `cbor:"2,keyasint"`
}

// IssuerPubKeyToWire converts an IssuerPubKey to its DTO.
func IssuerPubKeyToWire(pub *credential.IssuerPubKey) IssuerPubKeyDTO {
	xi := make([][]byte, len(pub.Xi))
	for i, p := range pub.Xi {
		xi[i] = pointBytes(p)
	}
	return IssuerPubKeyDTO{X0: pointBytes(pub.X0), Xi: xi}
}

// IssuerPubKeyFromWire reverses IssuerPubKeyToWire.
func IssuerPubKeyFromWire(d IssuerPubKeyDTO) (*credential.IssuerPubKey, error) {
	x0, err := pointFromBytes(d.X0)
	if err != nil {
		return nil, err
	}
	if len(d.Xi) != credential.NumAttributes+1 {
		return nil, fmt.Errorf("wire: issuer pub key must carry %d Xi points, got %d", credential.NumAttributes+1, len(d.Xi))
	}
	var pub credential.IssuerPubKey
	pub.X0 = x0
	for i, b := range d.Xi {
		p, err := pointFromBytes(b)
		if err != nil {
			return nil, err
		}
		pub.Xi[i] = p
	}
	return &pub, nil
}

// GroupSetupRequest is opcode 1's body: the caller's two per-group PRF
// keys, one kept by this server and one to be handed off to the peer
// server out of band.
type GroupSetupRequest struct {
	ThisServerKey [16]byte `cbor:"1,keyasint"`
	PeerServerKey [16]byte `cbor:"2,keyasint"`
}

// GroupSetupResponse is opcode 1's response: the newly assigned account
// ids for the group's MaxGroupSize members, and the issuer's public
// key.
type GroupSetupResponse struct {
	AccountIDs []uint64        `cbor:"1,keyasint"`
	IssuerPub  IssuerPubKeyDTO `cbor:"2,keyasint"`
}

// CredentialIssueRequest is opcode 2's body.
type CredentialIssueRequest struct {
	Requests []CredentialRequestDTO `cbor:"1,keyasint"`
}

// CredentialIssueResponse is opcode 2's response.
type CredentialIssueResponse struct {
	Responses []CredentialResponseDTO `cbor:"1,keyasint"`
}

// SettleRequest is opcode 5's body (spec.md §4.8, §6): a single-point
// DPF key selecting the requester's group over the settle domain, and
// the fresh nonce used to derive that round's PRF masks.
type SettleRequest struct {
	RoundID uint64    `cbor:"1,keyasint"`
	DPFKey  DPFKeyDTO `cbor:"2,keyasint"`
	RSeed   [16]byte  `cbor:"3,keyasint"`
}

// SettleResponse is opcode 5's response: the server's share of the
// requester's group balance vector.
type SettleResponse struct {
	Balances [][]byte `cbor:"1,keyasint"`
}

// Transaction result strings, per spec.md §7's uniform-failure policy:
// every crypto or policy rejection returns the exact same string, so a
// client cannot distinguish which check failed.
const (
	TransactionProcessed = "Transaction Processed"
	TransactionInvalid   = "Invalid Transaction"
)

// TransactionData is opcode 4's body. The wire protocol table names two
// shapes, TransactionData (sent to server 1) and TransactionDataS2
// (sent to server 2); they share this one Go type, since the two only
// ever differ in which DPF key-share and r2/r3 randomness share they
// carry; ServerIdx records which one a given instance is.
type TransactionData struct {
	TransactionID uint64                  `cbor:"1,keyasint"`
	ServerIdx     byte                    `cbor:"2,keyasint"`
	Statement     TransactionStatementDTO `cbor:"3,keyasint"`
	Proof         TransactionProofDTO     `cbor:"4,keyasint"`
	Token         GroupTokenDTO           `cbor:"5,keyasint"`
	TokenProof    TokenProofDTO           `cbor:"6,keyasint"`
	SrcSketch     SketchKeyDTO            `cbor:"7,keyasint"`
	DestSketch    SketchKeyDTO            `cbor:"8,keyasint"`
	R2Share       []byte                  `cbor:"9,keyasint"`
	R3Share       []byte                  `cbor:"10,keyasint"`
}

// NewTransactionData assembles one server's half of opcode 4's body
// from the live crypto values a client or server computes them in:
// the public transaction statement and its NIZK, the spender's group
// token and its linking proof, this server's share of the two
// transaction DPF keys, and this server's share of the Pedersen
// randomness r2, r3 (spec.md §4.7 step 1, §6 "splits r2 and r3 into
// additive shares").
func NewTransactionData(
	txID uint64,
	serverIdx byte,
	st txproof.TransactionStatement,
	proof *txproof.TransactionProof,
	tok token.GroupToken,
	tokProof *txproof.TokenProof,
	srcSketch, destSketch *dpf.SketchKey,
	r2Share, r3Share field.Element,
) TransactionData {
	return TransactionData{
		TransactionID: txID,
		ServerIdx:     serverIdx,
		Statement:     TransactionStatementToWire(st),
		Proof:         TransactionProofToWire(proof),
		Token:         GroupTokenToWire(tok),
		TokenProof:    TokenProofToWire(tokProof),
		SrcSketch:     SketchKeyToWire(srcSketch),
		DestSketch:    SketchKeyToWire(destSketch),
		R2Share:       scalarBytes(r2Share),
		R3Share:       scalarBytes(r3Share),
	}
}

// ParsedTransaction is the decoded, in-memory form of a TransactionData
// message, ready to feed into the server package's transaction
// handler.
type ParsedTransaction struct {
	TransactionID uint64
	ServerIdx     byte
	Statement     txproof.TransactionStatement
	Proof         *txproof.TransactionProof
	Token         token.GroupToken
	TokenProof    *txproof.TokenProof
	SrcSketch     *dpf.SketchKey
	DestSketch    *dpf.SketchKey
	R2Share       field.Element
	R3Share       field.Element
}

// ParseTransactionData reverses NewTransactionData (after a wire round
// trip), validating every embedded point and scalar.
func ParseTransactionData(d TransactionData) (*ParsedTransaction, error) {
	st, err := TransactionStatementFromWire(d.Statement)
	if err != nil {
		return nil, fmt.Errorf("wire: transaction statement: %w", err)
	}
	proof, err := TransactionProofFromWire(d.Proof)
	if err != nil {
		return nil, fmt.Errorf("wire: transaction proof: %w", err)
	}
	tok, err := GroupTokenFromWire(d.Token)
	if err != nil {
		return nil, fmt.Errorf("wire: group token: %w", err)
	}
	tokProof, err := TokenProofFromWire(d.TokenProof)
	if err != nil {
		return nil, fmt.Errorf("wire: token proof: %w", err)
	}
	srcSketch, err := SketchKeyFromWire(d.SrcSketch)
	if err != nil {
		return nil, fmt.Errorf("wire: source sketch key: %w", err)
	}
	destSketch, err := SketchKeyFromWire(d.DestSketch)
	if err != nil {
		return nil, fmt.Errorf("wire: destination sketch key: %w", err)
	}
	return &ParsedTransaction{
		TransactionID: d.TransactionID,
		ServerIdx:     d.ServerIdx,
		Statement:     st,
		Proof:         proof,
		Token:         tok,
		TokenProof:    tokProof,
		SrcSketch:     srcSketch,
		DestSketch:    destSketch,
		R2Share:       scalarFromBytes(d.R2Share),
		R3Share:       scalarFromBytes(d.R3Share),
	}, nil
}
