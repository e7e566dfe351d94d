// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	appcfg "github.com/ice-blockchain/envrequest/config"
	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/request"
)

func New(state State, cfgKey string) Server {
	appcfg.MustLoadFromKey(cfgKey, &cfg)
	appcfg.MustLoadFromKey("development", &development)

	return &srv{State: state, applicationYAMLKey: cfgKey}
}

func (s *srv) ListenAndServe(ctx context.Context, cancel context.CancelFunc) {
	s.Init(ctx, cancel)
	s.setupRouter() //nolint:contextcheck // Nope, we don't need it.
	s.setupServer(ctx)
	go s.startServer()
	s.wait(ctx)
	s.shutDown() //nolint:contextcheck // Nope, we want to gracefully shutdown on a different context.
}

func (s *srv) setupRouter() {
	if !development {
		gin.SetMode(gin.ReleaseMode)
		s.router = gin.New()
		s.router.Use(gin.Recovery())
	} else {
		gin.ForceConsoleColor()
		s.router = gin.Default()
	}
	log.Info(fmt.Sprintf("GIN Mode: %v\n", gin.Mode()))
	s.router.RemoteIPHeaders = []string{"cf-connecting-ip", "X-Real-IP", "X-Forwarded-For"}
	s.router.TrustedPlatform = gin.PlatformCloudflare
	s.router.HandleMethodNotAllowed = true
	s.router.RedirectFixedPath = true
	s.router.RemoveExtraSlash = true
	s.router.UseRawPath = true

	log.Info("registering routes...")
	s.RegisterRoutes(s.router)
	log.Info(fmt.Sprintf("%v routes registered", len(s.router.Routes())))
	RegisterHealthCheck(s.router, s.State)
}

func (s *srv) setupServer(ctx context.Context) {
	creator := request.NewFromApplicationYAML(s.applicationYAMLKey, nil)
	var handler http.Handler = s.router
	if !s.tls() {
		handler = h2c.NewHandler(s.router, new(http2.Server))
	}

	s.server = &http.Server{ //nolint:gosec // Not an issue, each request has a deadline set by the handler; and we're behind a proxy.
		Addr:    fmt.Sprintf(":%v", cfg.HTTPServer.Port),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return WithCreator(ctx, creator)
		},
	}
}

func (*srv) tls() bool {
	return cfg.HTTPServer.CertPath != "" && cfg.HTTPServer.KeyPath != ""
}

func (s *srv) startServer() {
	defer log.Info("server stopped listening")
	log.Info(fmt.Sprintf("server started listening on %v...", cfg.HTTPServer.Port), "tls", s.tls())

	isUnexpectedError := func(err error) bool {
		return err != nil &&
			!errors.Is(err, io.EOF) &&
			!errors.Is(err, http.ErrServerClosed)
	}

	var err error
	if s.tls() {
		err = errors.Wrap(s.server.ListenAndServeTLS(cfg.HTTPServer.CertPath, cfg.HTTPServer.KeyPath), "server.ListenAndServeTLS failed")
	} else {
		err = errors.Wrap(s.server.ListenAndServe(), "server.ListenAndServe failed")
	}
	if isUnexpectedError(err) {
		s.quit <- syscall.SIGTERM
		log.Error(err)
	}
}

func (s *srv) wait(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	s.quit = quit
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}
}

func (s *srv) shutDown() {
	timeout := cfg.DefaultEndpointTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info("shutting down server...")

	var result *multierror.Error
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, io.EOF) {
		result = multierror.Append(result, errors.Wrap(err, "server shutdown failed"))
	}
	if err := s.State.Close(ctx); err != nil && !errors.Is(err, io.EOF) {
		result = multierror.Append(result, errors.Wrap(err, "state close failed"))
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Error(err)
	} else {
		log.Info("server shutdown succeeded")
	}
}
