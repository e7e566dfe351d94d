// SPDX-License-Identifier: ice License 1.0

package terror

// Public API.

type (
	// Err is an error that carries structured context, i.e. which key of an input was rejected.
	Err struct {
		error
		Data map[string]any `json:"data"`
	}
)
