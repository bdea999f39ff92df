// Package server implements the two-server transaction and settle
// protocols of spec.md §4.7-§4.8: per-connection request handlers
// operating on a shared ServerContext, wired against the crypto layers
// in credential, token, txproof, dpf, and field, with cross-server MPC
// rounds brokered by the rendezvous package.
package server

import (
	"fmt"
	"sync"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/rendezvous"
	"github.com/anon-splitting/psplit/token"
)

// Fixed protocol constants, spec.md §6.
const (
	MaxGroupSize = 10
	MaxGroupNum  = 50
	DBSize       = MaxGroupSize * MaxGroupNum
)

// Context is the per-process global state every handler operates on
// (spec.md §9 "Global state"): the balance database, the PRF key
// table, the monotonic group/account counter, the shared group-token
// HMAC key, and (on the issuer server only) the credential issuer's
// private key. One instance is constructed at boot and shared by every
// connection handler; its three pieces of mutable state each sit
// behind their own mutex, matching spec.md §5's "shared resources"
// note.
type Context struct {
	// ServerIdx is 0 for server 1, 1 for server 2. It selects which
	// DPF key half and which sign convention this process uses in the
	// transaction and settle protocols.
	ServerIdx byte

	// Rendezvous is the external key-value store brokering the
	// two-server MPC rounds (package rendezvous). PeerID is the
	// ServerIdx the rendezvous keys of this process's peer are filed
	// under.
	Rendezvous rendezvous.Client
	PeerID     byte

	// IssuerPub is always present (published to clients at group
	// setup). IssuerPriv is non-nil only on the server that issues
	// credentials (spec.md §3: "owned by Server 1; never leaves
	// process"); HandleCredentialIssue/HandleShow reject requests on a
	// Context without one.
	IssuerPub  *credential.IssuerPubKey
	IssuerPriv *credential.IssuerPrivKey

	// MACKey is the group-token HMAC key. Per Open Question (a), this
	// implementation has BOTH servers verify every group token, which
	// requires both Contexts to be configured with the identical key
	// at boot (an out-of-band provisioning step, same as the original
	// "generated at boot, never rotated" key but now shared rather
	// than private to one process).
	MACKey [token.MACKeySize]byte

	dbMu sync.Mutex
	db   [DBSize]field.Element

	prfMu sync.Mutex
	// prfKeys holds this server's half of each group's PRF key pair,
	// reduced from the 16-byte key handed over at group setup to a
	// field element (the form settle.go's masking PRF consumes).
	// prfSet records which groups have been set up on this server.
	prfKeys [MaxGroupNum]field.Element
	prfSet  [MaxGroupNum]bool

	groupMu   sync.Mutex
	nextGroup uint64
}

// NewContext constructs a fresh, empty ServerContext for server
// serverIdx (0 or 1), sharing macKey and the issuer's public key with
// its peer. issuerPriv is nil on the non-issuer server.
func NewContext(serverIdx byte, rv rendezvous.Client, macKey [token.MACKeySize]byte, issuerPub *credential.IssuerPubKey, issuerPriv *credential.IssuerPrivKey) *Context {
	return &Context{
		ServerIdx:  serverIdx,
		Rendezvous: rv,
		PeerID:     1 - serverIdx,
		IssuerPub:  issuerPub,
		IssuerPriv: issuerPriv,
		MACKey:     macKey,
	}
}

func groupSlotRange(group uint64) (start, end int) {
	start = int(group) * MaxGroupSize
	end = start + MaxGroupSize
	return
}

// balanceAt returns a copy of the database slot at the given absolute
// index.
func (c *Context) balanceAt(i int) field.Element {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	return c.db[i]
}

// applyDelta adds delta[i] to db[i] for every slot, atomically. Callers
// must have already verified every check in spec.md §4.7 step 9 before
// calling this.
func (c *Context) applyDelta(delta [DBSize]field.Element) {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	for i := range c.db {
		c.db[i] = c.db[i].Add(delta[i])
	}
}

// snapshotGroup returns a copy of the balance slots belonging to
// group, under the database lock. HandleSettle does not call it; it
// reads each slot through balanceAt.
func (c *Context) snapshotGroup(group uint64) [MaxGroupSize]field.Element {
	start, end := groupSlotRange(group)
	var out [MaxGroupSize]field.Element
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	copy(out[:], c.db[start:end])
	return out
}

// setGroupPRFKey records this server's PRF key for group, generated at
// group setup.
func (c *Context) setGroupPRFKey(group uint64, key field.Element) error {
	if group >= MaxGroupNum {
		return fmt.Errorf("server: group index %d out of range", group)
	}
	c.prfMu.Lock()
	defer c.prfMu.Unlock()
	c.prfKeys[group] = key
	c.prfSet[group] = true
	return nil
}

func (c *Context) groupPRFKey(group uint64) (field.Element, bool) {
	c.prfMu.Lock()
	defer c.prfMu.Unlock()
	return c.prfKeys[group], c.prfSet[group]
}

// allocateGroup returns the next unassigned group index and its
// MaxGroupSize-wide account-id block, incrementing the monotonic group
// counter (spec.md §5 "group counter").
func (c *Context) allocateGroup() (group uint64, accountIDs [MaxGroupSize]uint64) {
	c.groupMu.Lock()
	defer c.groupMu.Unlock()
	group = c.nextGroup
	c.nextGroup++

	start, _ := groupSlotRange(group)
	for i := range accountIDs {
		accountIDs[i] = uint64(start + i)
	}
	return group, accountIDs
}
