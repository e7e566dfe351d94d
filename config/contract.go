// SPDX-License-Identifier: ice License 1.0

package config

import (
	"github.com/pkg/errors"
)

// Public API.

var ErrKeyNotFound = errors.New("config key not found")

// Private API.

const (
	applicationConfigFileName = "application.yaml"
	maxDotEnvLookupDepth      = 5
)
