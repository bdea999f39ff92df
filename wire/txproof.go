package wire

import (
	"github.com/anon-splitting/psplit/txproof"
)

// TransactionProofDTO is the wire form of txproof.TransactionProof.
type TransactionProofDTO struct {
	T1  []byte `cbor:"1,keyasint"`
	T2  []byte `cbor:"2,keyasint"`
	Sa  []byte `cbor:"3,keyasint"`
	Sr1 []byte `cbor:"4,keyasint"`
	Ss  []byte `cbor:"5,keyasint"`
}

func TransactionProofToWire(p *txproof.TransactionProof) TransactionProofDTO {
	return TransactionProofDTO{
		T1: pointBytes(p.T1), T2: pointBytes(p.T2),
		Sa: scalarBytes(p.Sa), Sr1: scalarBytes(p.Sr1), Ss: scalarBytes(p.Ss),
	}
}

func TransactionProofFromWire(d TransactionProofDTO) (*txproof.TransactionProof, error) {
	t1, err := pointFromBytes(d.T1)
	if err != nil {
		return nil, err
	}
	t2, err := pointFromBytes(d.T2)
	if err != nil {
		return nil, err
	}
	return &txproof.TransactionProof{
		T1: t1, T2: t2,
		Sa: scalarFromBytes(d.Sa), Sr1: scalarFromBytes(d.Sr1), Ss: scalarFromBytes(d.Ss),
	}, nil
}

// TransactionStatementDTO is the wire form of txproof.TransactionStatement.
type TransactionStatementDTO struct {
	V1  []byte `cbor:"1,keyasint"`
	V2  []byte `cbor:"2,keyasint"`
	V3  []byte `cbor:"3,keyasint"`
	E1  []byte `cbor:"4,keyasint"`
	E2  []byte `cbor:"5,keyasint"`
	NE3 []byte `cbor:"6,keyasint"`
}

func TransactionStatementToWire(st txproof.TransactionStatement) TransactionStatementDTO {
	return TransactionStatementDTO{
		V1: pointBytes(st.V1), V2: pointBytes(st.V2), V3: pointBytes(st.V3),
		E1: pointBytes(st.E1), E2: pointBytes(st.E2), NE3: pointBytes(st.NE3),
	}
}

func TransactionStatementFromWire(d TransactionStatementDTO) (txproof.TransactionStatement, error) {
	v1, err := pointFromBytes(d.V1)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	v2, err := pointFromBytes(d.V2)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	v3, err := pointFromBytes(d.V3)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	e1, err := pointFromBytes(d.E1)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	e2, err := pointFromBytes(d.E2)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	ne3, err := pointFromBytes(d.NE3)
	if err != nil {
		return txproof.TransactionStatement{}, err
	}
	return txproof.TransactionStatement{V1: v1, V2: v2, V3: v3, E1: e1, E2: e2, NE3: ne3}, nil
}

// TokenProofDTO is the wire form of txproof.TokenProof.
type TokenProofDTO struct {
	T1  []byte `cbor:"1,keyasint"`
	T2  []byte `cbor:"2,keyasint"`
	Sa  []byte `cbor:"3,keyasint"`
	Sz3 []byte `cbor:"4,keyasint"`
	Sr1 []byte `cbor:"5,keyasint"`
}

func TokenProofToWire(p *txproof.TokenProof) TokenProofDTO {
	return TokenProofDTO{
		T1: pointBytes(p.T1), T2: pointBytes(p.T2),
		Sa: scalarBytes(p.Sa), Sz3: scalarBytes(p.Sz3), Sr1: scalarBytes(p.Sr1),
	}
}

func TokenProofFromWire(d TokenProofDTO) (*txproof.TokenProof, error) {
	t1, err := pointFromBytes(d.T1)
	if err != nil {
		return nil, err
	}
	t2, err := pointFromBytes(d.T2)
	if err != nil {
		return nil, err
	}
	return &txproof.TokenProof{
		T1: t1, T2: t2,
		Sa: scalarFromBytes(d.Sa), Sz3: scalarFromBytes(d.Sz3), Sr1: scalarFromBytes(d.Sr1),
	}, nil
}
