// Command server1 runs the credential-issuing half of the two-server
// anonymous payment-splitting backend (spec.md §3): it holds the
// credential issuer's private key and handles group setup, credential
// issuance, and showings, in addition to its share of every
// transaction and settle request.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/server"
	"github.com/anon-splitting/psplit/token"
)

func main() {
	addr := flag.String("addr", ":9001", "client-facing listen address")
	rendezvousAddr := flag.String("rendezvous-addr", "http://localhost:9100", "shared rendezvous store base URL")
	keyMaterialPath := flag.String("key-material-out", "issuer.keys", "path to write the issuer public key and shared MAC key for server2 to load")
	flag.Parse()

	priv, pub, err := credential.NewIssuerKey()
	if err != nil {
		slog.Error("server1: generating issuer key", "error", err)
		os.Exit(1)
	}
	macKey, err := token.NewMACKey()
	if err != nil {
		slog.Error("server1: generating group-token MAC key", "error", err)
		os.Exit(1)
	}
	if err := writeKeyMaterial(*keyMaterialPath, macKey, pub); err != nil {
		slog.Error("server1: writing shared key material", "path", *keyMaterialPath, "error", err)
		os.Exit(1)
	}

	rv := newRendezvousClient(*rendezvousAddr)
	ctx := server.NewContext(0, rv, macKey, pub, priv)

	if err := run(context.Background(), *addr, ctx); err != nil {
		slog.Error("server1: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, sctx *server.Context) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	slog.Info("server1: listening", "addr", addr)

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
