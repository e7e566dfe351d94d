// SPDX-License-Identifier: ice License 1.0

package message

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

func NewServerRequest(method string, u URI, serverParams map[string]string) (ServerRequest, error) {
	if !validMethod(method) {
		return nil, errors.Wrapf(ErrInvalidMethod, "%q", method)
	}
	if u == nil {
		u = new(uri)
	}
	req := &serverRequest{
		method:          method,
		uri:             u,
		protocolVersion: defaultProtocolVersion,
		body:            NewStream(""),
		serverParams:    maps.Clone(serverParams),
		uploadedFiles:   UploadedFiles{},
	}
	req.header = req.header.withHostFrom(u)

	return req, nil
}

func (r *serverRequest) Method() string {
	return r.method
}

func (r *serverRequest) URI() URI {
	return r.uri
}

func (r *serverRequest) ProtocolVersion() string {
	return r.protocolVersion
}

func (r *serverRequest) Header() Header {
	return r.header
}

func (r *serverRequest) HeaderLine(name string) string {
	return r.header.Line(name)
}

func (r *serverRequest) Body() Stream {
	return r.body
}

func (r *serverRequest) ServerParams() map[string]string {
	return maps.Clone(r.serverParams)
}

func (r *serverRequest) CookieParams() map[string]string {
	return maps.Clone(r.cookieParams)
}

func (r *serverRequest) QueryParams() url.Values {
	return cloneValues(r.queryParams)
}

func (r *serverRequest) ParsedBody() map[string]any {
	return maps.Clone(r.parsedBody)
}

func (r *serverRequest) UploadedFiles() UploadedFiles {
	return cloneUploadedFiles(r.uploadedFiles)
}

func (r *serverRequest) Attributes() map[string]any {
	return maps.Clone(r.attributes)
}

func (r *serverRequest) Attribute(name string) (any, bool) {
	v, found := r.attributes[name]

	return v, found
}

func (r *serverRequest) WithMethod(method string) (ServerRequest, error) {
	if !validMethod(method) {
		return nil, errors.Wrapf(ErrInvalidMethod, "%q", method)
	}
	c := *r
	c.method = method

	return &c, nil
}

func (r *serverRequest) WithURI(u URI, preserveHost bool) ServerRequest {
	c := *r
	c.uri = u
	if !preserveHost || !c.header.Has(hostHeader) {
		c.header = c.header.withHostFrom(u)
	}

	return &c
}

func (r *serverRequest) WithProtocolVersion(version string) (ServerRequest, error) {
	if !validProtocolVersion(version) {
		return nil, errors.Wrapf(ErrInvalidProtocolVersion, "%q", version)
	}
	c := *r
	c.protocolVersion = version

	return &c, nil
}

func (r *serverRequest) WithHeader(name string, values ...string) (ServerRequest, error) {
	header, err := r.header.With(name, values...)
	if err != nil {
		return nil, err
	}
	c := *r
	c.header = header

	return &c, nil
}

func (r *serverRequest) WithAddedHeader(name string, values ...string) (ServerRequest, error) {
	header, err := r.header.WithAdded(name, values...)
	if err != nil {
		return nil, err
	}
	c := *r
	c.header = header

	return &c, nil
}

func (r *serverRequest) WithoutHeader(name string) ServerRequest {
	c := *r
	c.header = r.header.Without(name)

	return &c
}

func (r *serverRequest) WithBody(body Stream) ServerRequest {
	c := *r
	c.body = body

	return &c
}

func (r *serverRequest) WithCookieParams(cookies map[string]string) ServerRequest {
	c := *r
	c.cookieParams = maps.Clone(cookies)

	return &c
}

func (r *serverRequest) WithQueryParams(query url.Values) ServerRequest {
	c := *r
	c.queryParams = cloneValues(query)

	return &c
}

func (r *serverRequest) WithParsedBody(body map[string]any) ServerRequest {
	c := *r
	c.parsedBody = maps.Clone(body)

	return &c
}

func (r *serverRequest) WithUploadedFiles(files UploadedFiles) (ServerRequest, error) {
	if err := validateUploadedFiles("", files); err != nil {
		return nil, err
	}
	c := *r
	c.uploadedFiles = cloneUploadedFiles(files)

	return &c, nil
}

func (r *serverRequest) WithAttribute(name string, value any) ServerRequest {
	c := *r
	c.attributes = maps.Clone(r.attributes)
	if c.attributes == nil {
		c.attributes = make(map[string]any, 1)
	}
	c.attributes[name] = value

	return &c
}

func (r *serverRequest) WithoutAttribute(name string) ServerRequest {
	if _, found := r.attributes[name]; !found {
		return r
	}
	c := *r
	c.attributes = maps.Clone(r.attributes)
	delete(c.attributes, name)

	return &c
}

func validateUploadedFiles(prefix string, files UploadedFiles) error {
	for key, value := range files {
		switch v := value.(type) {
		case UploadedFile:
		case UploadedFiles:
			if err := validateUploadedFiles(prefix+key+".", v); err != nil {
				return err
			}
		default:
			return errors.Wrapf(ErrInvalidUploadedFiles, "%v%v is a %T", prefix, key, value)
		}
	}

	return nil
}

func cloneUploadedFiles(files UploadedFiles) UploadedFiles {
	clone := make(UploadedFiles, len(files))
	for key, value := range files {
		if nested, ok := value.(UploadedFiles); ok {
			clone[key] = cloneUploadedFiles(nested)
		} else {
			clone[key] = value
		}
	}

	return clone
}

func cloneValues(values url.Values) url.Values {
	if values == nil {
		return nil
	}
	clone := make(url.Values, len(values))
	for k, v := range values {
		clone[k] = slices.Clone(v)
	}

	return clone
}

func validMethod(method string) bool {
	if method == "" {
		return false
	}
	for _, r := range method {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}

	return true
}

// Versions look like "1.1", "2" or "2.0".
func validProtocolVersion(version string) bool {
	major, minor, hasMinor := strings.Cut(version, ".")
	if len(major) != 1 || major[0] < '0' || major[0] > '9' {
		return false
	}

	return !hasMinor || (len(minor) == 1 && minor[0] >= '0' && minor[0] <= '9')
}
