package server

import (
	"github.com/anon-splitting/psplit/wire"
)

// HandleGroupSetup implements opcode 1 (spec.md §6): allocate the next
// unused block of MaxGroupSize account ids and record this server's
// half of the group's settle PRF key.
//
// The two servers are not further coordinated here; a correctly
// behaving setup client calls this handler on both servers in lockstep
// so the two independently-maintained group counters stay in sync. A
// production deployment would make group allocation itself a small
// two-server protocol; this implementation follows spec.md's own
// "monotonic counter under its own mutex" description literally and
// leaves that stronger coordination as an operational requirement on
// the caller, consistent with group setup being out of the spec's
// attacker model (Non-goals: "server-to-server key distribution").
func (c *Context) HandleGroupSetup(req wire.GroupSetupRequest) (wire.GroupSetupResponse, error) {
	group, accountIDs := c.allocateGroup()
	if err := c.setGroupPRFKey(group, deriveGroupPRFKey(req.ThisServerKey)); err != nil {
		return wire.GroupSetupResponse{}, err
	}

	ids := make([]uint64, len(accountIDs))
	copy(ids, accountIDs[:])

	return wire.GroupSetupResponse{
		AccountIDs: ids,
		IssuerPub:  wire.IssuerPubKeyToWire(c.IssuerPub),
	}, nil
}
