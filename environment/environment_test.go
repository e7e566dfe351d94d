// SPDX-License-Identifier: ice License 1.0

package environment

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPairs(t *testing.T) {
	t.Parallel()
	env, err := FromPairs("REQUEST_METHOD=POST", "QUERY_STRING=a=1&b=2", "EMPTY=")
	require.NoError(t, err)
	assert.Equal(t, Environment{"REQUEST_METHOD": "POST", "QUERY_STRING": "a=1&b=2", "EMPTY": ""}, env)
	v, found := env.Lookup("EMPTY")
	assert.True(t, found)
	assert.Empty(t, v)
	_, found = env.Lookup("HTTP_HOST")
	assert.False(t, found)
	assert.Empty(t, env.Value("HTTP_HOST"))

	_, err = FromPairs("REQUEST_METHOD")
	require.ErrorIs(t, err, ErrMalformedPair)
	_, err = FromPairs("=POST")
	require.ErrorIs(t, err, ErrMalformedPair)
}

func TestFromProcess(t *testing.T) { //nolint:paralleltest // Mutates the process environment.
	t.Setenv("REQUEST_METHOD", "PATCH")
	env := FromProcess()
	assert.Equal(t, "PATCH", env.Value("REQUEST_METHOD"))
	require.NoError(t, os.Setenv("REQUEST_METHOD", "DELETE"))
	assert.Equal(t, "PATCH", env.Value("REQUEST_METHOD"))
}

func TestDotEnv(t *testing.T) {
	t.Parallel()
	snapshot := "REQUEST_METHOD=GET\nHTTP_HOST=example.com\n# comment\nQUERY_STRING=\"a=1&b=2\"\n"
	env, err := Parse(strings.NewReader(snapshot))
	require.NoError(t, err)
	assert.Equal(t, Environment{"REQUEST_METHOD": "GET", "HTTP_HOST": "example.com", "QUERY_STRING": "a=1&b=2"}, env)

	file := filepath.Join(t.TempDir(), "request.env")
	require.NoError(t, os.WriteFile(file, []byte(snapshot), 0o600))
	fromFile, err := FromDotEnv(file)
	require.NoError(t, err)
	assert.Equal(t, env, fromFile)

	_, err = FromDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	env := Environment{"REQUEST_METHOD": "POST", "REQUEST_URI": "/blog/article.php?id=10"}
	buf := new(bytes.Buffer)
	require.NoError(t, env.Encode(buf))
	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)

	_, err = Decode(strings.NewReader("not msgpack"))
	require.Error(t, err)
}

func TestImmutability(t *testing.T) {
	t.Parallel()
	env := Environment{"REQUEST_METHOD": "GET"}
	with := env.With("HTTP_HOST", "example.com")
	without := with.Without("REQUEST_METHOD")
	assert.Equal(t, Environment{"REQUEST_METHOD": "GET"}, env)
	assert.Equal(t, Environment{"REQUEST_METHOD": "GET", "HTTP_HOST": "example.com"}, with)
	assert.Equal(t, Environment{"HTTP_HOST": "example.com"}, without)
	assert.Equal(t, []string{"HTTP_HOST", "REQUEST_METHOD"}, with.Keys())
	assert.Equal(t, Environment{}, Environment(nil).Clone())
}

func TestMerge(t *testing.T) {
	t.Parallel()
	env := Environment{"REQUEST_METHOD": "POST", "SERVER_PORT": ""}
	merged, err := env.Merge(Environment{"REQUEST_METHOD": "GET", "SERVER_PORT": "80", "SERVER_PROTOCOL": "HTTP/1.1"})
	require.NoError(t, err)
	assert.Equal(t, Environment{"REQUEST_METHOD": "POST", "SERVER_PORT": "80", "SERVER_PROTOCOL": "HTTP/1.1"}, merged)
	assert.Equal(t, Environment{"REQUEST_METHOD": "POST", "SERVER_PORT": ""}, env)
}
