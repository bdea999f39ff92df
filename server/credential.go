package server

import (
	"errors"
	"fmt"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/token"
	"github.com/anon-splitting/psplit/wire"
)

// ErrNotIssuer is returned by HandleCredentialIssue and HandleShow on a
// Context that was not configured with an IssuerPrivKey (spec.md §3:
// the private key "never leaves process" — only the server it was
// generated on can issue or verify showings of a credential).
var ErrNotIssuer = errors.New("server: this process does not hold the credential issuer's private key")

// HandleCredentialIssue implements opcode 2: blind-issue a batch of
// credentials against pending CredentialRequests.
func (c *Context) HandleCredentialIssue(req wire.CredentialIssueRequest) (wire.CredentialIssueResponse, error) {
	if c.IssuerPriv == nil {
		return wire.CredentialIssueResponse{}, ErrNotIssuer
	}

	out := make([]wire.CredentialResponseDTO, len(req.Requests))
	for i, dto := range req.Requests {
		creq, err := wire.CredentialRequestFromWire(dto)
		if err != nil {
			return wire.CredentialIssueResponse{}, fmt.Errorf("server: decoding credential request %d: %w", i, err)
		}
		resp, err := credential.IssueBlind124_5(c.IssuerPriv, c.IssuerPub, creq)
		if err != nil {
			return wire.CredentialIssueResponse{}, fmt.Errorf("server: issuing credential %d: %w", i, err)
		}
		out[i] = wire.CredentialResponseToWire(resp)
	}
	return wire.CredentialIssueResponse{Responses: out}, nil
}

// HandleShow implements opcode 3: verify a credential showing and, on
// success, mint the GroupToken the holder will attach to every
// subsequent transaction and settle request for this group membership.
func (c *Context) HandleShow(dto wire.ShowMessageDTO) (wire.GroupTokenDTO, error) {
	if c.IssuerPriv == nil {
		return wire.GroupTokenDTO{}, ErrNotIssuer
	}

	msg, err := wire.ShowMessageFromWire(dto)
	if err != nil {
		return wire.GroupTokenDTO{}, fmt.Errorf("server: decoding show message: %w", err)
	}
	verified, err := credential.VerifyShow(c.IssuerPriv, c.IssuerPub, msg)
	if err != nil {
		return wire.GroupTokenDTO{}, fmt.Errorf("server: show rejected: %w", err)
	}

	tok := token.Issue(c.MACKey, msg.P, verified.M1, verified.Cm3)
	return wire.GroupTokenToWire(tok), nil
}
