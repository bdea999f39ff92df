// Command server2 runs the second, non-issuing half of the two-server
// anonymous payment-splitting backend (spec.md §3): it verifies group
// tokens and participates in every transaction and settle request, but
// never issues or verifies a credential showing directly, since it
// never holds the credential issuer's private key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/anon-splitting/psplit/server"
)

func main() {
	addr := flag.String("addr", ":9002", "client-facing listen address")
	rendezvousAddr := flag.String("rendezvous-addr", "http://localhost:9100", "shared rendezvous store base URL")
	keyMaterialPath := flag.String("key-material-in", "issuer.keys", "path to the MAC key and issuer public key written by server1")
	flag.Parse()

	macKey, pub, err := readKeyMaterial(*keyMaterialPath)
	if err != nil {
		slog.Error("server2: reading shared key material", "path", *keyMaterialPath, "error", err)
		os.Exit(1)
	}

	rv := newRendezvousClient(*rendezvousAddr)
	sctx := server.NewContext(1, rv, macKey, pub, nil)

	if err := run(context.Background(), *addr, sctx); err != nil {
		slog.Error("server2: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, sctx *server.Context) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	slog.Info("server2: listening", "addr", addr)

	g, ctx := errgroup.WithContext(ctx)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		g.Go(func() error {
			sctx.Serve(ctx, conn)
			return nil
		})
	}
}
