package main

import "github.com/anon-splitting/psplit/rendezvous"

func newRendezvousClient(baseURL string) rendezvous.Client {
	return rendezvous.NewHTTPClient(baseURL)
}
