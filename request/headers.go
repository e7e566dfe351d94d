// SPDX-License-Identifier: ice License 1.0

package request

import (
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
)

func (*creator) HeadersFromEnvironment(env environment.Environment) []message.HeaderField {
	headers := make([]message.HeaderField, 0, len(env))
	seen := make(map[string]struct{}, len(env))
	for _, key := range env.Keys() {
		value := env[key]
		if stripped, found := strings.CutPrefix(key, redirectPrefix); found {
			if _, shadowed := env[stripped]; shadowed {
				continue
			}
			key = stripped
		}
		if value == "" {
			continue
		}
		name := headerName(key)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			log.Warn("skipping malformed header", "key", key)

			continue
		}
		seen[name] = struct{}{}
		headers = append(headers, message.HeaderField{Name: name, Values: []string{value}})
	}
	slices.SortStableFunc(headers, func(a, b message.HeaderField) int {
		return strings.Compare(a.Name, b.Name)
	})

	return headers
}

// HTTP_X_FORWARDED_FOR becomes X-Forwarded-For, CONTENT_TYPE becomes Content-Type.
func headerName(key string) string {
	var name string
	if rest, found := strings.CutPrefix(key, httpHeaderPrefix); found {
		name = rest
	} else if strings.HasPrefix(key, contentHeaderPrefix) {
		name = key
	}
	if name == "" {
		return ""
	}

	return http.CanonicalHeaderKey(strings.ReplaceAll(name, "_", "-"))
}
