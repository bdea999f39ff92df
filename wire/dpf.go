package wire

import (
	"fmt"

	"github.com/anon-splitting/psplit/dpf"
	"github.com/anon-splitting/psplit/field"
)

type levelCWDTO struct {
	SeedCW  []byte `cbor:"1,keyasint"`
	BitL    byte   `cbor:"2,keyasint"`
	BitR    byte   `cbor:"3,keyasint"`
	ValueCW []byte `cbor:"4,keyasint"`
}

type DPFKeyDTO struct {
	Party    byte         `cbor:"1,keyasint"`
	RootSeed []byte       `cbor:"2,keyasint"`
	RootBit  byte         `cbor:"3,keyasint"`
	Levels   []levelCWDTO `cbor:"4,keyasint"`
}

func dpfKeyToDTO(k *dpf.Key) DPFKeyDTO {
	levels := make([]levelCWDTO, len(k.Levels))
	for i, l := range k.Levels {
		levels[i] = levelCWDTO{
			SeedCW:  seedBytes(l.SeedCW),
			BitL:    l.BitL,
			BitR:    l.BitR,
			ValueCW: scalarBytes(l.ValueCW),
		}
	}
	return DPFKeyDTO{
		Party:    k.Party,
		RootSeed: seedBytes(k.RootSeed),
		RootBit:  k.RootBit,
		Levels:   levels,
	}
}

func dpfKeyFromDTO(d DPFKeyDTO) (*dpf.Key, error) {
	root, err := seedFromBytes(d.RootSeed)
	if err != nil {
		return nil, err
	}
	levels := make([]dpf.LevelCW, len(d.Levels))
	for i, l := range d.Levels {
		seedCW, err := seedFromBytes(l.SeedCW)
		if err != nil {
			return nil, err
		}
		levels[i] = dpf.LevelCW{
			SeedCW:  seedCW,
			BitL:    l.BitL,
			BitR:    l.BitR,
			ValueCW: scalarFromBytes(l.ValueCW),
		}
	}
	return &dpf.Key{Party: d.Party, RootSeed: root, RootBit: d.RootBit, Levels: levels}, nil
}

type beaverTripleDTO struct {
	A []byte `cbor:"1,keyasint"`
	B []byte `cbor:"2,keyasint"`
	C []byte `cbor:"3,keyasint"`
}

func beaverToDTO(t field.BeaverTriple) beaverTripleDTO {
	return beaverTripleDTO{A: scalarBytes(t.A), B: scalarBytes(t.B), C: scalarBytes(t.C)}
}

func beaverFromDTO(d beaverTripleDTO) field.BeaverTriple {
	return field.BeaverTriple{A: scalarFromBytes(d.A), B: scalarFromBytes(d.B), C: scalarFromBytes(d.C)}
}

// SketchKeyDTO is the wire form of a dpf.SketchKey, used inside
// TransactionData/TransactionDataS2.
type SketchKeyDTO struct {
	Key     DPFKeyDTO         `cbor:"1,keyasint"`
	K       []byte            `cbor:"2,keyasint"`
	K2      []byte            `cbor:"3,keyasint"`
	Beta    []byte            `cbor:"4,keyasint"`
	Beta2   []byte            `cbor:"5,keyasint"`
	Triples []beaverTripleDTO `cbor:"6,keyasint"`
}

// SketchKeyToWire converts a *dpf.SketchKey to its wire DTO.
func SketchKeyToWire(sk *dpf.SketchKey) SketchKeyDTO {
	triples := make([]beaverTripleDTO, len(sk.Triples))
	for i, t := range sk.Triples {
		triples[i] = beaverToDTO(t)
	}
	return SketchKeyDTO{
		Key:     dpfKeyToDTO(sk.Key),
		K:       scalarBytes(sk.K),
		K2:      scalarBytes(sk.K2),
		Beta:    scalarBytes(sk.Beta),
		Beta2:   scalarBytes(sk.Beta2),
		Triples: triples,
	}
}

// SketchKeyFromWire reverses SketchKeyToWire.
func SketchKeyFromWire(d SketchKeyDTO) (*dpf.SketchKey, error) {
	key, err := dpfKeyFromDTO(d.Key)
	if err != nil {
		return nil, err
	}
	if len(d.Triples) != 7 {
		return nil, fmt.Errorf("wire: sketch key must carry 7 beaver triples, got %d", len(d.Triples))
	}
	var triples [7]field.BeaverTriple
	for i, t := range d.Triples {
		triples[i] = beaverFromDTO(t)
	}
	return &dpf.SketchKey{
		Key:     key,
		K:       scalarFromBytes(d.K),
		K2:      scalarFromBytes(d.K2),
		Beta:    scalarFromBytes(d.Beta),
		Beta2:   scalarFromBytes(d.Beta2),
		Triples: triples,
	}, nil
}

// PlainDPFKeyToWire/FromWire handle the settle protocol's plain
// (non-sketched) single-point dpf.Key.
func PlainDPFKeyToWire(k *dpf.Key) DPFKeyDTO { return dpfKeyToDTO(k) }

func PlainDPFKeyFromWire(d DPFKeyDTO) (*dpf.Key, error) { return dpfKeyFromDTO(d) }
