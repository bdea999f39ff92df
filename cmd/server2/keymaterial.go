package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/wire"
)

// readKeyMaterial reverses server1's writeKeyMaterial.
func readKeyMaterial(path string) ([token.MACKeySize]byte, *credential.IssuerPubKey, error) {
	var macKey [token.MACKeySize]byte

	data, err := os.ReadFile(path)
	if err != nil {
		return macKey, nil, err
	}
	if len(data) < token.MACKeySize+4 {
		return macKey, nil, fmt.Errorf("server2: key material file %q is truncated", path)
	}
	copy(macKey[:], data[:token.MACKeySize])

	n := binary.BigEndian.Uint32(data[token.MACKeySize : token.MACKeySize+4])
	pubBytes := data[token.MACKeySize+4:]
	if uint32(len(pubBytes)) != n {
		return macKey, nil, fmt.Errorf("server2: key material file %q has inconsistent length prefix", path)
	}

	var dto wire.IssuerPubKeyDTO
	if err := wire.Unmarshal(pubBytes, &dto); err != nil {
		return macKey, nil, err
	}
	pub, err := wire.IssuerPubKeyFromWire(dto)
	if err != nil {
		return macKey, nil, err
	}
	return macKey, pub, nil
}
