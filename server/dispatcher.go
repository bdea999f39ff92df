package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/anon-splitting/psplit/wire"
)

// Opcode identifies the client-facing request kind of spec.md §6's
// wire protocol table. These are distinct from, but numbered the same
// as, rendezvous.Opcode's server-to-server round tags; the two never
// appear on the same wire.
type Opcode byte

const (
	OpGroupSetup      Opcode = 1
	OpCredentialIssue Opcode = 2
	OpShow            Opcode = 3
	OpTransaction     Opcode = 4
	OpSettle          Opcode = 5
)

// frame is [opcode: 1 byte][length: 4 bytes big-endian][body: length bytes],
// the length-prefixed-by-opcode wire framing of spec.md §6.
func readFrame(r io.Reader) (Opcode, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	op := Opcode(header[0])
	n := binary.BigEndian.Uint32(header[1:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}

func writeFrame(w io.Writer, op Opcode, body []byte) error {
	header := make([]byte, 5+len(body))
	header[0] = byte(op)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(body)))
	copy(header[5:], body)
	_, err := w.Write(header)
	return err
}

// Serve runs the request/response dispatch loop for a single client
// connection until it closes or a framing error occurs. Each request
// is handled synchronously and in order on this connection; a server
// process runs one Serve goroutine per accepted net.Conn.
func (c *Context) Serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		op, body, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				slog.Error("server: reading frame", "error", err)
			}
			return
		}

		respBody, err := c.dispatch(ctx, op, body)
		if err != nil {
			slog.Error("server: handling request", "opcode", op, "error", err)
			return
		}
		if err := writeFrame(conn, op, respBody); err != nil {
			slog.Error("server: writing frame", "error", err)
			return
		}
	}
}

func (c *Context) dispatch(ctx context.Context, op Opcode, body []byte) ([]byte, error) {
	switch op {
	case OpGroupSetup:
		var req wire.GroupSetupRequest
		if err := wire.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.HandleGroupSetup(req)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(resp)

	case OpCredentialIssue:
		var req wire.CredentialIssueRequest
		if err := wire.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.HandleCredentialIssue(req)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(resp)

	case OpShow:
		var req wire.ShowMessageDTO
		if err := wire.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.HandleShow(req)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(resp)

	case OpTransaction:
		var data wire.TransactionData
		if err := wire.Unmarshal(body, &data); err != nil {
			return nil, err
		}
		pt, err := wire.ParseTransactionData(data)
		if err != nil {
			return nil, err
		}
		result, err := c.HandleTransaction(ctx, pt)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(result)

	case OpSettle:
		var req wire.SettleRequest
		if err := wire.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.HandleSettle(ctx, req.RoundID, req)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(resp)

	default:
		return nil, fmt.Errorf("server: unknown opcode %d", op)
	}
}
