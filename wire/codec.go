// Package wire implements the canonical, deterministic binary encoding
// of every structured payload in spec.md §6's wire protocol table:
// CredentialRequest/Response, ShowMessage, GroupToken,
// TransactionData/TransactionDataS2, and SettleData. Every message is
// first reduced to a plain DTO of fixed-length byte strings (so the
// encoding never depends on the unexported internals of curve.Point,
// field.Element, or prg.Seed), then marshaled with
// github.com/fxamacker/cbor/v2 in its canonical, sorted-map-key mode so
// two calls with the same logical value always produce the same bytes.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/prg"
)

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building canonical cbor encoder: %v", err))
	}
	return m
}()

// Marshal encodes v deterministically.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes into v.
func Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// pointBytes/scalarBytes/seedBytes convert the crypto package's value
// types to and from the fixed-length byte strings the DTOs carry.

func pointBytes(p curve.Point) []byte { return p.Compress() }

func pointFromBytes(b []byte) (curve.Point, error) { return curve.Decompress(b) }

func scalarBytes(e field.Element) []byte { return e.Bytes() }

func scalarFromBytes(b []byte) field.Element { return field.FromBytes(b) }

func seedBytes(s prg.Seed) []byte { return s[:] }

func seedFromBytes(b []byte) (prg.Seed, error) {
	var s prg.Seed
	if len(b) != prg.SeedSize {
		return s, fmt.Errorf("wire: seed must be %d bytes, got %d", prg.SeedSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}
