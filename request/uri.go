// SPDX-License-Identifier: ice License 1.0

package request

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/terror"
)

func (c *creator) URIFromEnvironment(env environment.Environment) (message.URI, error) {
	u, err := c.factories.URI.CreateURI("")
	if err != nil {
		return nil, terror.Wrap(ErrInvalidURI, err.Error(), nil)
	}
	u = u.WithScheme(c.scheme(env))
	host, port, err := hostAndPort(env)
	if err != nil {
		return nil, err
	}
	if host != "" {
		u = u.WithHost(host)
	}
	if port != 0 {
		if u, err = u.WithPort(port); err != nil {
			return nil, terror.Wrap(ErrInvalidURI, err.Error(), map[string]any{"port": port})
		}
	}
	if requestURI := env.Value(requestURIKey); requestURI != "" {
		path, _, _ := strings.Cut(requestURI, "?")
		u = u.WithPath(path)
	}
	if query := env.Value(queryStringKey); query != "" {
		u = u.WithQuery(query)
	}

	return u, nil
}

func (c *creator) scheme(env environment.Environment) string {
	if scheme := env.Value(requestSchemeKey); scheme != "" {
		return strings.ToLower(scheme)
	}
	if https := env.Value(httpsKey); https != "" {
		if strings.EqualFold(https, httpsOn) {
			return "https"
		}

		return "http"
	}

	return c.cfg.DefaultScheme
}

// The port a host value carries itself wins over SERVER_PORT.
func hostAndPort(env environment.Environment) (host string, port int, err error) {
	if host = env.Value(httpHostKey); host == "" {
		host = env.Value(serverNameKey)
	}
	rawPort := env.Value(serverPortKey)
	if h, p, found := splitHostPort(host); found {
		host, rawPort = h, p
	}
	if rawPort == "" {
		return host, 0, nil
	}
	if port, err = strconv.Atoi(rawPort); err != nil {
		return "", 0, terror.Wrap(ErrInvalidURI, fmt.Sprintf("non-numeric port %q", rawPort), map[string]any{"port": rawPort})
	}

	return host, port, nil
}

// Bare IPv6 literals have no port, bracketed ones may have.
func splitHostPort(hostport string) (host, port string, found bool) {
	if strings.HasPrefix(hostport, "[") {
		if h, p, err := net.SplitHostPort(hostport); err == nil {
			return h, p, true
		}

		return hostport, "", false
	}
	if strings.Count(hostport, ":") != 1 {
		return hostport, "", false
	}
	host, port, _ = strings.Cut(hostport, ":")

	return host, port, true
}
