// SPDX-License-Identifier: ice License 1.0

package main

import (
	"context"

	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/server"
)

const applicationYAMLKey = "envrequest"

type (
	service struct {
		cancel context.CancelFunc
	}
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.New(new(service), applicationYAMLKey).ListenAndServe(ctx, cancel)
}

func (s *service) Init(_ context.Context, cancel context.CancelFunc) {
	s.cancel = cancel
	log.Info("echo service initialized")
}

func (s *service) Close(context.Context) error {
	s.cancel()
	log.Info("echo service closed")

	return nil
}

func (*service) RegisterRoutes(router *server.Router) {
	router.Any("/echo/*path", server.EchoHandler())
}

func (*service) CheckHealth(context.Context) error {
	return nil
}
