// SPDX-License-Identifier: ice License 1.0

package log

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogger(t *testing.T) {
	t.Parallel()
	buf := new(bytes.Buffer)
	lgr, err := buildLogger(buf, true, "info")
	require.NoError(t, err)
	send(lgr.Info(), []any{"method", "POST"}).Msg("request built")
	send(lgr.Debug(), nil).Msg("filtered out")
	assert.Contains(t, buf.String(), `"method":"POST"`)
	assert.Contains(t, buf.String(), `"message":"request built"`)
	assert.NotContains(t, buf.String(), "filtered out")

	_, err = buildLogger(buf, true, "bogus")
	require.Error(t, err)
}

func TestPanic(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { Panic(nil) })
	assert.Panics(t, func() { Panic(errors.New("oops")) })
	assert.Panics(t, func() { Panic("oops") })
}
