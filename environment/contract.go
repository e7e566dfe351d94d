// SPDX-License-Identifier: ice License 1.0

package environment

import (
	"github.com/pkg/errors"
)

// Public API.

var (
	ErrMalformedPair = errors.New("malformed environment pair")
)

type (
	// Environment is an immutable snapshot of the CGI/1.1 meta-variables describing one request,
	// i.e. REQUEST_METHOD, HTTP_HOST or QUERY_STRING.
	Environment map[string]string
)
