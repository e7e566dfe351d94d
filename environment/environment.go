// SPDX-License-Identifier: ice License 1.0

package environment

import (
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// FromProcess snapshots the meta-variables of the current process, as a CGI gateway hands them over.
func FromProcess() Environment {
	pairs := os.Environ()
	env := make(Environment, len(pairs))
	for _, pair := range pairs {
		// Windows keeps per-drive working directories as "=C:=C:\...".
		if key, value, found := strings.Cut(pair, "="); found && key != "" {
			env[key] = value
		}
	}

	return env
}

func FromPairs(pairs ...string) (Environment, error) {
	env := make(Environment, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Wrapf(ErrMalformedPair, "%q", pair)
		}
		env[key] = value
	}

	return env, nil
}

func FromDotEnv(filenames ...string) (Environment, error) {
	env, err := godotenv.Read(filenames...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dotenv files %v", filenames)
	}

	return env, nil
}

func Parse(r io.Reader) (Environment, error) {
	env, err := godotenv.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse dotenv snapshot")
	}

	return env, nil
}

func Decode(r io.Reader) (Environment, error) {
	var env Environment
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "failed to decode environment snapshot")
	}
	if env == nil {
		env = make(Environment)
	}

	return env, nil
}

func (e Environment) Encode(w io.Writer) error {
	return errors.Wrap(msgpack.NewEncoder(w).Encode(map[string]string(e)), "failed to encode environment snapshot")
}

// Value returns the value stored under key, or "" when it is absent.
func (e Environment) Value(key string) string {
	return e[key]
}

func (e Environment) Lookup(key string) (string, bool) {
	v, found := e[key]

	return v, found
}

func (e Environment) Clone() Environment {
	if e == nil {
		return make(Environment)
	}

	return maps.Clone(e)
}

func (e Environment) With(key, value string) Environment {
	clone := e.Clone()
	clone[key] = value

	return clone
}

func (e Environment) Without(keys ...string) Environment {
	clone := e.Clone()
	for _, key := range keys {
		delete(clone, key)
	}

	return clone
}

// Merge fills keys that are missing or empty in e from defaults.
func (e Environment) Merge(defaults Environment) (Environment, error) {
	merged := e.Clone()
	if err := mergo.Merge(&merged, defaults); err != nil {
		return nil, errors.Wrap(err, "failed to merge environment defaults")
	}

	return merged, nil
}

func (e Environment) Keys() []string {
	return slices.Sorted(maps.Keys(e))
}
