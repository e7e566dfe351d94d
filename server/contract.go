// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ice-blockchain/envrequest/request"
)

// Public API.

type (
	Router = gin.Engine
	Server interface {
		// ListenAndServe starts everything and blocks indefinitely.
		ListenAndServe(ctx context.Context, cancel context.CancelFunc)
	}
	// State is the actual custom behaviour that has to be implemented by users of this package to customize their http server`s lifecycle.
	State interface {
		Init(ctx context.Context, cancel context.CancelFunc)
		Close(ctx context.Context) error
		RegisterRoutes(r *Router)
		CheckHealth(ctx context.Context) error
	}
	Response[RESP any] struct {
		Data    *RESP
		Headers map[string]string
		Code    int
	}
	// ErrorResponse is the struct that is eventually serialized as a negative response back to the user.
	ErrorResponse struct {
		error `json:"-"`
		Data  map[string]any `json:"data,omitempty"`
		Error string         `json:"error"`
		Code  string         `json:"code,omitempty"`
	}
	Config struct {
		HTTPServer struct {
			CertPath string `yaml:"certPath"`
			KeyPath  string `yaml:"keyPath"`
			Port     uint16 `yaml:"port"`
		} `yaml:"httpServer"`
		DefaultEndpointTimeout time.Duration `yaml:"defaultEndpointTimeout"`
	}
)

const (
	RequestIDAttribute = "requestId"
	ClientIPAttribute  = "clientIp"
	RequestIDHeader    = "X-Request-Id"
)

// Private API.

const (
	creatorCtxValueKey = "creatorCtxValueKey"

	cgiVersion    = "CGI/1.1"
	httpsOn       = "on"
	cookieHeader  = "Cookie"
	jsonMediaType = "application/json"
	formMediaType = "application/x-www-form-urlencoded"
	multipartType = "multipart/form-data"

	defaultShutdownTimeout = 30 * time.Second
)

var (
	//nolint:gochecknoglobals // Because its loaded once, at runtime.
	development bool
	//nolint:gochecknoglobals // Because its loaded once, at runtime.
	cfg Config
	//nolint:gochecknoglobals // It's a stateless singleton for handlers served outside of a Server.
	defaultCreator = request.New(nil)
	//nolint:gochecknoglobals // Immutable lookup table.
	defaultPorts = map[bool]string{false: "80", true: "443"}
)

type (
	// | srv is the internal representation of everything needed to bootstrap the http server.
	srv struct {
		State
		server             *http.Server
		router             *Router
		quit               chan<- os.Signal
		applicationYAMLKey string
	}
)
