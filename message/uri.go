// SPDX-License-Identifier: ice License 1.0

package message

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func ParseURI(raw string) (URI, error) {
	parsed := new(uri)
	if raw == "" {
		return parsed, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "failed to parse %q: %v", raw, err) //nolint:errorlint // The sentinel is the cause.
	}
	parsed.scheme = strings.ToLower(u.Scheme)
	parsed.host = strings.ToLower(u.Hostname())
	if u.User != nil {
		parsed.userInfo = u.User.String()
	}
	if u.Opaque != "" {
		parsed.path = filterComponent(u.Opaque, pathSafeBytes)
	} else {
		parsed.path = filterComponent(u.EscapedPath(), pathSafeBytes)
	}
	parsed.query = filterComponent(u.RawQuery, querySafeBytes)
	parsed.fragment = filterComponent(u.EscapedFragment(), querySafeBytes)
	if rawPort := u.Port(); rawPort != "" {
		port, pErr := strconv.Atoi(rawPort)
		if pErr != nil {
			return nil, errors.Wrapf(ErrInvalidPort, "%q", rawPort)
		}
		if _, err = parsed.setPort(port); err != nil {
			return nil, err
		}
	}

	return parsed, nil
}

func (u *uri) Scheme() string {
	return u.scheme
}

func (u *uri) UserInfo() string {
	return u.userInfo
}

func (u *uri) Host() string {
	return u.host
}

func (u *uri) Port() int {
	return u.port
}

func (u *uri) Path() string {
	return u.path
}

func (u *uri) Query() string {
	return u.query
}

func (u *uri) Fragment() string {
	return u.fragment
}

func (u *uri) Authority() string {
	if u.host == "" {
		return ""
	}
	var b strings.Builder
	if u.userInfo != "" {
		b.WriteString(u.userInfo)
		b.WriteByte('@')
	}
	if strings.Contains(u.host, ":") {
		b.WriteByte('[')
		b.WriteString(u.host)
		b.WriteByte(']')
	} else {
		b.WriteString(u.host)
	}
	if u.port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.port))
	}

	return b.String()
}

func (u *uri) WithScheme(scheme string) URI {
	c := *u
	c.scheme = strings.ToLower(scheme)
	if standardPorts[c.scheme] == c.port {
		c.port = 0
	}

	return &c
}

func (u *uri) WithUserInfo(user, password string) URI {
	c := *u
	switch {
	case user == "":
		c.userInfo = ""
	case password == "":
		c.userInfo = url.User(user).String()
	default:
		c.userInfo = url.UserPassword(user, password).String()
	}

	return &c
}

func (u *uri) WithHost(host string) URI {
	c := *u
	c.host = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"))

	return &c
}

func (u *uri) WithPort(port int) (URI, error) {
	c := *u

	return c.setPort(port)
}

func (u *uri) setPort(port int) (URI, error) {
	if port < 0 || port > maxPort {
		return nil, errors.Wrapf(ErrInvalidPort, "%v is outside of 0..%v", port, maxPort)
	}
	if standardPorts[u.scheme] == port {
		port = 0
	}
	u.port = port

	return u, nil
}

func (u *uri) WithPath(path string) URI {
	c := *u
	c.path = filterComponent(path, pathSafeBytes)

	return &c
}

func (u *uri) WithQuery(query string) URI {
	c := *u
	c.query = filterComponent(strings.TrimPrefix(query, "?"), querySafeBytes)

	return &c
}

func (u *uri) WithFragment(fragment string) URI {
	c := *u
	c.fragment = filterComponent(strings.TrimPrefix(fragment, "#"), querySafeBytes)

	return &c
}

func (u *uri) String() string {
	var b strings.Builder
	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}
	authority := u.Authority()
	if authority != "" || u.scheme == "file" {
		b.WriteString("//")
		b.WriteString(authority)
	}
	if path := u.path; path != "" {
		switch {
		case authority != "" && path[0] != '/':
			path = "/" + path
		case authority == "" && strings.HasPrefix(path, "//"):
			path = "/" + strings.TrimLeft(path, "/")
		}
		b.WriteString(path)
	}
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}

	return b.String()
}

// filterComponent percent-encodes every byte that is neither unreserved nor in safe.
// Existing, well-formed escapes are kept.
func filterComponent(component, safe string) string {
	var b strings.Builder
	b.Grow(len(component))
	for i := 0; i < len(component); i++ {
		c := component[i]
		switch {
		case c == '%':
			if i+2 < len(component) && isHex(component[i+1]) && isHex(component[i+2]) {
				b.WriteByte(c)
			} else {
				b.WriteString("%25")
			}
		case isUnreserved(c) || strings.IndexByte(safe, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f]) //nolint:mnd // Low nibble.
		}
	}

	return b.String()
}

const upperHex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
