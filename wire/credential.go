package wire

import (
	"github.com/anon-splitting/psplit/credential"
)

type ciphertextDTO struct {
	C1 []byte `cbor:"1,keyasint"`
	C2 []byte `cbor:"2,keyasint"`
}

func ciphertextToDTO(c credential.Ciphertext) ciphertextDTO {
	return ciphertextDTO{C1: pointBytes(c.C1), C2: pointBytes(c.C2)}
}

func ciphertextFromDTO(d ciphertextDTO) (credential.Ciphertext, error) {
	c1, err := pointFromBytes(d.C1)
	if err != nil {
		return credential.Ciphertext{}, err
	}
	c2, err := pointFromBytes(d.C2)
	if err != nil {
		return credential.Ciphertext{}, err
	}
	return credential.Ciphertext{C1: c1, C2: c2}, nil
}

// CredentialRequestDTO is the wire form of credential.CredentialRequest
// (opcode 2 request element, spec.md §6).
type CredentialRequestDTO struct {
	D       []byte        `cbor:"1,keyasint"`
	E1      ciphertextDTO `cbor:"2,keyasint"`
	E2      ciphertextDTO `cbor:"3,keyasint"`
	E4      ciphertextDTO `cbor:"4,keyasint"`
	M3      []byte        `cbor:"5,keyasint"`
	M5      []byte        `cbor:"6,keyasint"`
	ProofTD []byte        `cbor:"7,keyasint"`

	ProofTE1C1 []byte `cbor:"8,keyasint"`
	ProofTE1C2 []byte `cbor:"9,keyasint"`
	ProofTE2C1 []byte `cbor:"10,keyasint"`
	ProofTE2C2 []byte `cbor:"11,keyasint"`
	ProofTE4C1 []byte `cbor:"12,keyasint"`
	ProofTE4C2 []byte `cbor:"13,keyasint"`

	ProofSd  []byte `cbor:"14,keyasint"`
	ProofSr1 []byte `cbor:"15,keyasint"`
	ProofSm1 []byte `cbor:"16,keyasint"`
	ProofSr2 []byte `cbor:"17,keyasint"`
	ProofSm2 []byte `cbor:"18,keyasint"`
	ProofSr4 []byte `cbor:"19,keyasint"`
	ProofSm4 []byte `cbor:"20,keyasint"`
}

// CredentialRequestToWire converts a CredentialRequest to its DTO.
func CredentialRequestToWire(r *credential.CredentialRequest) CredentialRequestDTO {
	p := r.Proof
	return CredentialRequestDTO{
		D:          pointBytes(r.D),
		E1:         ciphertextToDTO(r.E1),
		E2:         ciphertextToDTO(r.E2),
		E4:         ciphertextToDTO(r.E4),
		M3:         scalarBytes(r.M3),
		M5:         scalarBytes(r.M5),
		ProofTD:    pointBytes(p.TD),
		ProofTE1C1: pointBytes(p.TE1C1),
		ProofTE1C2: pointBytes(p.TE1C2),
		ProofTE2C1: pointBytes(p.TE2C1),
		ProofTE2C2: pointBytes(p.TE2C2),
		ProofTE4C1: pointBytes(p.TE4C1),
		ProofTE4C2: pointBytes(p.TE4C2),
		ProofSd:    scalarBytes(p.Sd),
		ProofSr1:   scalarBytes(p.Sr1),
		ProofSm1:   scalarBytes(p.Sm1),
		ProofSr2:   scalarBytes(p.Sr2),
		ProofSm2:   scalarBytes(p.Sm2),
		ProofSr4:   scalarBytes(p.Sr4),
		ProofSm4:   scalarBytes(p.Sm4),
	}
}

// CredentialRequestFromWire reverses CredentialRequestToWire.
func CredentialRequestFromWire(d CredentialRequestDTO) (*credential.CredentialRequest, error) {
	D, err := pointFromBytes(d.D)
	if err != nil {
		return nil, err
	}
	e1, err := ciphertextFromDTO(d.E1)
	if err != nil {
		return nil, err
	}
	e2, err := ciphertextFromDTO(d.E2)
	if err != nil {
		return nil, err
	}
	e4, err := ciphertextFromDTO(d.E4)
	if err != nil {
		return nil, err
	}
	td, err := pointFromBytes(d.ProofTD)
	if err != nil {
		return nil, err
	}
	te1c1, err := pointFromBytes(d.ProofTE1C1)
	if err != nil {
		return nil, err
	}
	te1c2, err := pointFromBytes(d.ProofTE1C2)
	if err != nil {
		return nil, err
	}
	te2c1, err := pointFromBytes(d.ProofTE2C1)
	if err != nil {
		return nil, err
	}
	te2c2, err := pointFromBytes(d.ProofTE2C2)
	if err != nil {
		return nil, err
	}
	te4c1, err := pointFromBytes(d.ProofTE4C1)
	if err != nil {
		return nil, err
	}
	te4c2, err := pointFromBytes(d.ProofTE4C2)
	if err != nil {
		return nil, err
	}

	r := &credential.CredentialRequest{
		D: D, E1: e1, E2: e2, E4: e4,
		M3: scalarFromBytes(d.M3), M5: scalarFromBytes(d.M5),
	}
	r.Proof = credential.UserBlindingProof{
		TD: td, TE1C1: te1c1, TE1C2: te1c2, TE2C1: te2c1, TE2C2: te2c2, TE4C1: te4c1, TE4C2: te4c2,
		Sd: scalarFromBytes(d.ProofSd), Sr1: scalarFromBytes(d.ProofSr1), Sm1: scalarFromBytes(d.ProofSm1),
		Sr2: scalarFromBytes(d.ProofSr2), Sm2: scalarFromBytes(d.ProofSm2),
		Sr4: scalarFromBytes(d.ProofSr4), Sm4: scalarFromBytes(d.ProofSm4),
	}
	return r, nil
}

// CredentialResponseDTO is the wire form of credential.CredentialResponse.
type CredentialResponseDTO struct {
	P         []byte        `cbor:"1,keyasint"`
	T1        []byte        `cbor:"2,keyasint"`
	T2        []byte        `cbor:"3,keyasint"`
	T4        []byte        `cbor:"4,keyasint"`
	EncQ      ciphertextDTO `cbor:"5,keyasint"`
	ClearTerm []byte        `cbor:"6,keyasint"`
	B         []byte        `cbor:"7,keyasint"`

	ProofTP  []byte `cbor:"8,keyasint"`
	ProofTT1 []byte `cbor:"9,keyasint"`
	ProofTT2 []byte `cbor:"10,keyasint"`
	ProofTT4 []byte `cbor:"11,keyasint"`
	ProofSb  []byte `cbor:"12,keyasint"`
}

// CredentialResponseToWire converts a CredentialResponse to its DTO.
func CredentialResponseToWire(r *credential.CredentialResponse) CredentialResponseDTO {
	p := r.Proof
	return CredentialResponseDTO{
		P:         pointBytes(r.P),
		T1:        pointBytes(r.T1),
		T2:        pointBytes(r.T2),
		T4:        pointBytes(r.T4),
		EncQ:      ciphertextToDTO(r.EncQ),
		ClearTerm: pointBytes(r.ClearTerm),
		B:         scalarBytes(r.B),
		ProofTP:   pointBytes(p.TP),
		ProofTT1:  pointBytes(p.TT1),
		ProofTT2:  pointBytes(p.TT2),
		ProofTT4:  pointBytes(p.TT4),
		ProofSb:   scalarBytes(p.Sb),
	}
}

// CredentialResponseFromWire reverses CredentialResponseToWire.
func CredentialResponseFromWire(d CredentialResponseDTO) (*credential.CredentialResponse, error) {
	P, err := pointFromBytes(d.P)
	if err != nil {
		return nil, err
	}
	t1, err := pointFromBytes(d.T1)
	if err != nil {
		return nil, err
	}
	t2, err := pointFromBytes(d.T2)
	if err != nil {
		return nil, err
	}
	t4, err := pointFromBytes(d.T4)
	if err != nil {
		return nil, err
	}
	encQ, err := ciphertextFromDTO(d.EncQ)
	if err != nil {
		return nil, err
	}
	clearTerm, err := pointFromBytes(d.ClearTerm)
	if err != nil {
		return nil, err
	}
	tp, err := pointFromBytes(d.ProofTP)
	if err != nil {
		return nil, err
	}
	tt1, err := pointFromBytes(d.ProofTT1)
	if err != nil {
		return nil, err
	}
	tt2, err := pointFromBytes(d.ProofTT2)
	if err != nil {
		return nil, err
	}
	tt4, err := pointFromBytes(d.ProofTT4)
	if err != nil {
		return nil, err
	}

	r := &credential.CredentialResponse{
		P: P, T1: t1, T2: t2, T4: t4, EncQ: encQ, ClearTerm: clearTerm,
		B: scalarFromBytes(d.B),
	}
	r.Proof = credential.BlindIssueProof{
		TP: tp, TT1: tt1, TT2: tt2, TT4: tt4, Sb: scalarFromBytes(d.ProofSb),
	}
	return r, nil
}

// ShowMessageDTO is the wire form of credential.ShowMessage (opcode 3).
type ShowMessageDTO struct {
	P   []byte `cbor:"1,keyasint"`
	Q   []byte `cbor:"2,keyasint"`
	M1  []byte `cbor:"3,keyasint"`
	Cm3 []byte `cbor:"4,keyasint"`

	ProofTE  []byte `cbor:"5,keyasint"`
	ProofTCm []byte `cbor:"6,keyasint"`
	ProofTRes []byte `cbor:"7,keyasint"`

	ProofSe  []byte `cbor:"8,keyasint"`
	ProofSw2 []byte `cbor:"9,keyasint"`
	ProofSw3 []byte `cbor:"10,keyasint"`
	ProofSw4 []byte `cbor:"11,keyasint"`
	ProofSw5 []byte `cbor:"12,keyasint"`
	ProofSz3 []byte `cbor:"13,keyasint"`
}

// ShowMessageToWire converts a ShowMessage to its DTO.
func ShowMessageToWire(m *credential.ShowMessage) ShowMessageDTO {
	p := m.Proof
	return ShowMessageDTO{
		P: pointBytes(m.P), Q: pointBytes(m.Q), M1: scalarBytes(m.M1), Cm3: pointBytes(m.Cm3),
		ProofTE: pointBytes(p.TE), ProofTCm: pointBytes(p.TCm), ProofTRes: pointBytes(p.TRes),
		ProofSe: scalarBytes(p.Se), ProofSw2: scalarBytes(p.Sw2), ProofSw3: scalarBytes(p.Sw3),
		ProofSw4: scalarBytes(p.Sw4), ProofSw5: scalarBytes(p.Sw5), ProofSz3: scalarBytes(p.Sz3),
	}
}

// ShowMessageFromWire reverses ShowMessageToWire.
func ShowMessageFromWire(d ShowMessageDTO) (*credential.ShowMessage, error) {
	P, err := pointFromBytes(d.P)
	if err != nil {
		return nil, err
	}
	Q, err := pointFromBytes(d.Q)
	if err != nil {
		return nil, err
	}
	cm3, err := pointFromBytes(d.Cm3)
	if err != nil {
		return nil, err
	}
	te, err := pointFromBytes(d.ProofTE)
	if err != nil {
		return nil, err
	}
	tcm, err := pointFromBytes(d.ProofTCm)
	if err != nil {
		return nil, err
	}
	tres, err := pointFromBytes(d.ProofTRes)
	if err != nil {
		return nil, err
	}

	m := &credential.ShowMessage{P: P, Q: Q, M1: scalarFromBytes(d.M1), Cm3: cm3}
	m.Proof = credential.ShowProof{
		TE: te, TCm: tcm, TRes: tres,
		Se:  scalarFromBytes(d.ProofSe),
		Sw2: scalarFromBytes(d.ProofSw2), Sw3: scalarFromBytes(d.ProofSw3),
		Sw4: scalarFromBytes(d.ProofSw4), Sw5: scalarFromBytes(d.ProofSw5),
		Sz3: scalarFromBytes(d.ProofSz3),
	}
	return m, nil
}
