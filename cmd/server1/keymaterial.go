package main

import (
	"encoding/binary"
	"os"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/wire"
)

// writeKeyMaterial persists the group-token MAC key and the issuer's
// public key to path, out-of-band material server2 needs at boot
// (spec.md §3: the private key itself never leaves this process).
// The file format is the raw MAC key, then a 4-byte big-endian length,
// then the canonical wire encoding of the public key.
func writeKeyMaterial(path string, macKey [token.MACKeySize]byte, pub *credential.IssuerPubKey) error {
	pubBytes, err := wire.Marshal(wire.IssuerPubKeyToWire(pub))
	if err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(pubBytes)))

	out := make([]byte, 0, len(macKey)+4+len(pubBytes))
	out = append(out, macKey[:]...)
	out = append(out, lenBuf[:]...)
	out = append(out, pubBytes...)

	return os.WriteFile(path, out, 0o600)
}
