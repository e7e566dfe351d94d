// SPDX-License-Identifier: ice License 1.0

package config

import (
	"testing"
	stdlibtime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromKey(t *testing.T) {
	t.Parallel()
	var cfg struct {
		ServerRequest struct {
			ProtocolVersion string `yaml:"protocolVersion"`
			DefaultMethod   string `yaml:"defaultMethod"`
		} `yaml:"serverRequest"`
		DefaultEndpointTimeout stdlibtime.Duration `yaml:"defaultEndpointTimeout"`
	}
	require.NoError(t, LoadFromKey("envrequest", &cfg))
	assert.Equal(t, "1.1", cfg.ServerRequest.ProtocolVersion)
	assert.Equal(t, "GET", cfg.ServerRequest.DefaultMethod)
	assert.Equal(t, 30*stdlibtime.Second, cfg.DefaultEndpointTimeout)
}

func TestLoadFromKeyMissing(t *testing.T) {
	t.Parallel()
	var cfg struct{}
	require.ErrorIs(t, LoadFromKey("bogus-key-that-does-not-exist", &cfg), ErrKeyNotFound)
	assert.Panics(t, func() { MustLoadFromKey("bogus-key-that-does-not-exist", &cfg) })
}

//nolint:paralleltest // Environment variables are process wide.
func TestLoadFromKeyEnvironmentOverride(t *testing.T) {
	t.Setenv("ENVREQUEST_SERVERREQUEST_DEFAULTMETHOD", "POST")
	t.Setenv("ENVREQUEST_HTTPSERVER_PORT", "9443")
	t.Setenv("ENVREQUEST_DEFAULTENDPOINTTIMEOUT", "5s")
	var cfg struct {
		ServerRequest struct {
			ProtocolVersion string `yaml:"protocolVersion"`
			DefaultMethod   string `yaml:"defaultMethod"`
		} `yaml:"serverRequest"`
		HTTPServer struct {
			Port uint16 `yaml:"port"`
		} `yaml:"httpServer"`
		DefaultEndpointTimeout stdlibtime.Duration `yaml:"defaultEndpointTimeout"`
	}
	require.NoError(t, LoadFromKey("envrequest", &cfg))
	assert.Equal(t, "POST", cfg.ServerRequest.DefaultMethod)
	assert.Equal(t, "1.1", cfg.ServerRequest.ProtocolVersion)
	assert.Equal(t, uint16(9443), cfg.HTTPServer.Port)
	assert.Equal(t, 5*stdlibtime.Second, cfg.DefaultEndpointTimeout)

	var development bool
	require.NoError(t, LoadFromKey("development", &development))
	assert.True(t, development)
}
