// SPDX-License-Identifier: ice License 1.0

package request

import (
	"strings"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/envrequest/config"
	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/terror"
)

func New(factories *Factories) Creator {
	return NewWithConfig(nil, factories)
}

func NewFromApplicationYAML(applicationYAMLKey string, factories *Factories) Creator {
	var cfg applicationConfig
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	return NewWithConfig(&cfg.ServerRequest, factories)
}

func NewWithConfig(cfg *Config, factories *Factories) Creator {
	resolved, err := resolveConfig(cfg)
	log.Panic(errors.Wrap(err, "invalid server request config")) //nolint:revive // That's intended.

	return &creator{cfg: resolved, factories: resolveFactories(factories)}
}

func (c *creator) FromEnvironment(env environment.Environment, in *Input) (message.ServerRequest, error) {
	method := env.Value(requestMethodKey)
	if method == "" {
		return nil, terror.New(ErrMissingMethod, map[string]any{"key": requestMethodKey})
	}
	if in == nil {
		in = new(Input)
	}

	return c.build(method, env, in)
}

//nolint:funlen // .
func (c *creator) build(method string, env environment.Environment, in *Input) (message.ServerRequest, error) {
	u, err := c.URIFromEnvironment(env)
	if err != nil {
		return nil, err
	}
	req, err := c.factories.ServerRequest.CreateServerRequest(method, u, env.Clone())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %v request for %v", method, u)
	}
	if req, err = applyHeaders(req, in.Headers); err != nil {
		return nil, err
	}
	if in.Body != nil {
		req = req.WithBody(in.Body)
	}
	protocolVersion := c.protocolVersion(env)
	versioned, err := req.WithProtocolVersion(protocolVersion)
	if err != nil {
		log.Warn("unsupported protocol version, using the default one",
			"protocolVersion", protocolVersion, "default", c.cfg.ProtocolVersion)
		if versioned, err = req.WithProtocolVersion(c.cfg.ProtocolVersion); err != nil {
			return nil, errors.Wrapf(err, "failed to set protocol version %v", c.cfg.ProtocolVersion)
		}
	}
	req = versioned.WithCookieParams(in.Cookies).
		WithQueryParams(in.Query).
		WithParsedBody(in.ParsedBody)
	files, err := c.normalizeFiles(in.Files)
	if err != nil {
		return nil, err
	}
	if req, err = req.WithUploadedFiles(files); err != nil {
		return nil, errors.Wrap(err, "failed to attach uploaded files")
	}
	log.Debug("built server request", "method", method, "uri", u.String(), "headers", req.Header().Len(), "files", len(files))

	return req, nil
}

func (c *creator) protocolVersion(env environment.Environment) string {
	if protocol := env.Value(serverProtocolKey); protocol != "" {
		return strings.TrimPrefix(protocol, protocolPrefix)
	}

	return c.cfg.ProtocolVersion
}

// A supplied Host replaces the one derived from the URI, every other header is appended in order.
func applyHeaders(req message.ServerRequest, headers []message.HeaderField) (message.ServerRequest, error) {
	var (
		hostReplaced bool
		err          error
	)
	for _, header := range headers {
		if len(header.Values) == 0 {
			continue
		}
		if !hostReplaced && strings.EqualFold(header.Name, hostHeader) {
			req, err = req.WithHeader(header.Name, header.Values...)
			hostReplaced = true
		} else {
			req, err = req.WithAddedHeader(header.Name, header.Values...)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add header %v", header.Name)
		}
	}

	return req, nil
}

func resolveFactories(factories *Factories) *Factories {
	resolved := new(Factories)
	if factories != nil {
		*resolved = *factories
	}
	defaults := message.NewFactory()
	if resolved.ServerRequest == nil {
		resolved.ServerRequest = defaults
	}
	if resolved.URI == nil {
		resolved.URI = defaults
	}
	if resolved.UploadedFile == nil {
		resolved.UploadedFile = defaults
	}
	if resolved.Stream == nil {
		resolved.Stream = defaults
	}

	return resolved
}

func resolveConfig(cfg *Config) (*Config, error) {
	resolved := new(Config)
	if cfg != nil {
		*resolved = *cfg
	}
	defaults := Config{
		ProtocolVersion:    defaultProtocol,
		DefaultScheme:      defaultScheme,
		DefaultMethod:      defaultGlobalsMethod,
		MaxMultipartMemory: defaultMaxMultipart,
	}
	if err := mergo.Merge(resolved, defaults); err != nil {
		return nil, errors.Wrap(err, "failed to merge config defaults")
	}
	resolved.DefaultScheme = strings.ToLower(resolved.DefaultScheme)

	return resolved, errors.Wrap(resolved.validate(), "config validation failed")
}

func (cfg *Config) validate() error {
	var result *multierror.Error
	if _, err := message.NewServerRequest(cfg.DefaultMethod, nil, nil); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "defaultMethod"))
	}
	if req, err := message.NewServerRequest(defaultGlobalsMethod, nil, nil); err == nil {
		if _, err = req.WithProtocolVersion(cfg.ProtocolVersion); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "protocolVersion"))
		}
	}
	if cfg.DefaultScheme != "http" && cfg.DefaultScheme != "https" {
		result = multierror.Append(result, errors.Errorf("defaultScheme %q is neither http nor https", cfg.DefaultScheme))
	}
	if cfg.MaxMultipartMemory < 0 {
		result = multierror.Append(result, errors.Errorf("negative maxMultipartMemory %v", cfg.MaxMultipartMemory))
	}
	if cfg.MaxFileSize < 0 {
		result = multierror.Append(result, errors.Errorf("negative maxFileSize %v", cfg.MaxFileSize))
	}

	return result.ErrorOrNil()
}
