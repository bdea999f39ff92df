package wire

import (
	"github.com/anon-splitting/psplit/token"
)

// GroupTokenDTO is the wire form of token.GroupToken.
type GroupTokenDTO struct {
	P     []byte `cbor:"1,keyasint"`
	UID   []byte `cbor:"2,keyasint"`
	CmAID []byte `cbor:"3,keyasint"`
	MAC   []byte `cbor:"4,keyasint"`
}

// GroupTokenToWire converts a GroupToken to its DTO.
func GroupTokenToWire(t token.GroupToken) GroupTokenDTO {
	return GroupTokenDTO{
		P:     pointBytes(t.P),
		UID:   scalarBytes(t.UID),
		CmAID: pointBytes(t.CmAID),
		MAC:   append([]byte(nil), t.MAC[:]...),
	}
}

// GroupTokenFromWire reverses GroupTokenToWire.
func GroupTokenFromWire(d GroupTokenDTO) (token.GroupToken, error) {
	p, err := pointFromBytes(d.P)
	if err != nil {
		return token.GroupToken{}, err
	}
	cmAID, err := pointFromBytes(d.CmAID)
	if err != nil {
		return token.GroupToken{}, err
	}
	var mac [32]byte
	copy(mac[:], d.MAC)
	return token.GroupToken{P: p, UID: scalarFromBytes(d.UID), CmAID: cmAID, MAC: mac}, nil
}
