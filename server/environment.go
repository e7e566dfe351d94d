// SPDX-License-Identifier: ice License 1.0

package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/ice-blockchain/envrequest/environment"
)

// EnvironmentFromHTTP describes r with the meta-variables a CGI/1.1 gateway would hand over for it.
func EnvironmentFromHTTP(r *http.Request) environment.Environment {
	secure := r.TLS != nil
	scheme := "http"
	if secure {
		scheme = "https"
	}
	requestURI := r.RequestURI
	if !strings.HasPrefix(requestURI, "/") {
		requestURI = r.URL.RequestURI()
	}
	env := environment.Environment{
		"GATEWAY_INTERFACE": cgiVersion,
		"REQUEST_METHOD":    r.Method,
		"SERVER_PROTOCOL":   fmt.Sprintf("HTTP/%d.%d", r.ProtoMajor, r.ProtoMinor),
		"REQUEST_SCHEME":    scheme,
		"HTTP_HOST":         r.Host,
		"REQUEST_URI":       requestURI,
		"QUERY_STRING":      r.URL.RawQuery,
		"PATH_INFO":         r.URL.Path,
	}
	if secure {
		env["HTTPS"] = httpsOn
	}
	env["SERVER_NAME"], env["SERVER_PORT"] = serverNameAndPort(r.Host, secure)
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		env["CONTENT_TYPE"] = contentType
	}
	if r.ContentLength > 0 {
		env["CONTENT_LENGTH"] = strconv.FormatInt(r.ContentLength, 10)
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		env["REMOTE_ADDR"], env["REMOTE_PORT"] = host, port
	}
	for key, values := range r.Header {
		if key == "Content-Type" || key == "Content-Length" {
			continue
		}
		separator := ", "
		if key == cookieHeader {
			separator = "; "
		}
		env["HTTP_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_"))] = strings.Join(values, separator)
	}

	return env
}

// The port is the one the client addressed, the default one for the scheme otherwise.
func serverNameAndPort(host string, secure bool) (name, port string) {
	if h, p, err := net.SplitHostPort(host); err == nil {
		return h, p
	}

	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"), defaultPorts[secure]
}
