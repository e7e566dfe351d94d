// SPDX-License-Identifier: ice License 1.0

package config

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//nolint:gochecknoinits // Because we load the configs once, for the whole runtime
func init() {
	loadDotEnv()
	loadFirstApplicationConfigFile()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "/", "_"))
	viper.AutomaticEnv()
}

func MustLoadFromKey(key string, cfg any) {
	if err := LoadFromKey(key, cfg); err != nil {
		log.Panic(err)
	}
}

func LoadFromKey(key string, cfg any) error {
	if !viper.IsSet(key) {
		return errors.Wrapf(ErrKeyNotFound, "key %q", key)
	}

	sub := viper.New()
	prefix := strings.ToLower(key) + "."
	for _, k := range viper.AllKeys() {
		if rest, found := strings.CutPrefix(k, prefix); found {
			sub.Set(rest, viper.Get(k))
		}
	}
	if len(sub.AllKeys()) == 0 {
		return errors.Wrapf(viper.UnmarshalKey(key, cfg), "failed to load config by key %q", key)
	}

	// Leaf by leaf, so environment overrides of nested keys are applied too.
	return errors.Wrapf(sub.Unmarshal(cfg), "failed to load config by key %q", key)
}

// The closest .env wins; the walk stops at the first one found.
func loadDotEnv() {
	dotEnvPath := `.env`
	for range maxDotEnvLookupDepth {
		if err := godotenv.Load(dotEnvPath); err == nil {
			return
		}
		dotEnvPath = fmt.Sprintf(`../%v`, dotEnvPath)
	}
}

func loadFirstApplicationConfigFile() {
	for _, f := range findAllApplicationConfigFiles() {
		viper.SetConfigFile(f)
		if err := viper.ReadInConfig(); err == nil {
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Panic(errors.Wrapf(err, "failed to read %v", f))
		}
	}

	log.Panic(errors.Errorf("could not find any %v files", applicationConfigFileName))
}

func findAllApplicationConfigFiles() []string {
	var hints []string
	if p, err := os.Getwd(); err == nil {
		hints = append(hints, p, filepath.Join(p, ".testdata"))
	}
	if p, err := os.Executable(); err == nil {
		hints = append(hints, path.Dir(filepath.Join(p, "..")))
	}
	//nolint:dogsled // Because those 3 blank identifiers are useless
	_, callerFile, _, _ := runtime.Caller(0)
	hints = append(hints, filepath.Join(filepath.Dir(callerFile), ".."))

	files := make([]string, 0, len(hints))
	for _, dir := range hints {
		pattern := filepath.Join(dir, applicationConfigFileName)
		if f, err := filepath.Glob(pattern); err != nil {
			log.Println(errors.Wrapf(err, "glob failed for [%v]", pattern))
		} else {
			files = append(files, f...)
		}
	}

	return files
}
