package server

import (
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/prf"
)

// deriveGroupPRFKey and maskValue are thin aliases onto the shared prf
// package (spec.md §4.8), kept so call sites inside this package read
// the same as before; the client-side reconstruction half of this
// same construction lives in prf so a client never has to reimplement
// it against a private copy.
func deriveGroupPRFKey(raw [16]byte) field.Element { return prf.DeriveGroupKey(raw) }

func maskValue(key field.Element, rSeed [16]byte, i int) field.Element {
	return prf.Mask(key, rSeed, i)
}
