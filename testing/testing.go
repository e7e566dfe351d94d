// SPDX-License-Identifier: ice License 1.0

package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func GIVEN(_ string, logic func()) {
	logic()
}

func WHEN(_ string, logic func()) {
	logic()
}

func THEN(logic func()) {
	logic()
}

func IT(_ string, logic func()) {
	logic()
}

func AND(_ string, logic func()) {
	logic()
}

func SETUP(_ string, logic func()) {
	logic()
}

// AssertJSON compares the compacted form of expected with the marshalled actual value.
func AssertJSON(tb testing.TB, expected string, actual any) {
	tb.Helper()
	compacted := new(bytes.Buffer)
	require.NoError(tb, json.Compact(compacted, []byte(expected)))
	assert.Equal(tb, compacted.String(), MustMarshal(tb, actual))
}

func MustMarshal(tb testing.TB, val any) string {
	tb.Helper()
	valueBytes, err := json.MarshalContext(context.Background(), val)
	require.NoError(tb, err)

	return string(valueBytes)
}

func MustUnmarshal[T any](tb testing.TB, val string) *T {
	tb.Helper()
	tt := new(T)
	require.NoError(tb, json.UnmarshalContext(context.Background(), []byte(val), tt))

	return tt
}
