// SPDX-License-Identifier: ice License 1.0

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/request"
	"github.com/ice-blockchain/envrequest/server"
)

const (
	applicationYAMLKey = "envrequest"
	jsonFormat         = "json"
	msgpackFormat      = "msgpack"
)

func main() {
	var (
		record   = flag.String("record", "", "stores the msgpack snapshot of the environment in that file")
		replay   = flag.String("replay", "", "uses a recorded msgpack snapshot instead of the process environment")
		defaults = flag.String("defaults", "", "dotenv file with values for the meta-variables the environment lacks")
		format   = flag.String("format", jsonFormat, "description format: json or msgpack")
	)
	flag.Parse()
	if *format != jsonFormat && *format != msgpackFormat {
		log.Panic(errors.Errorf("unsupported format %q", *format))
	}
	env, err := loadEnvironment(*replay, *defaults)
	log.Panic(err) //nolint:revive // That's intended.
	if *record != "" {
		log.Panic(recordEnvironment(*record, env)) //nolint:revive // That's intended.
	}
	out := bufio.NewWriter(os.Stdout)
	log.Error(respond(out, request.NewFromApplicationYAML(applicationYAMLKey, nil), env, os.Stdin, *format))
	log.Error(errors.Wrap(out.Flush(), "failed to flush cgi response"))
}

func loadEnvironment(replay, defaults string) (environment.Environment, error) {
	env := environment.FromProcess()
	if replay != "" {
		file, err := os.Open(replay)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open snapshot %v", replay)
		}
		defer func() {
			log.Error(errors.Wrapf(file.Close(), "failed to close snapshot %v", replay))
		}()
		if env, err = environment.Decode(file); err != nil {
			return nil, errors.Wrapf(err, "failed to replay %v", replay)
		}
	}
	if defaults == "" {
		return env, nil
	}
	fallback, err := environment.FromDotEnv(defaults)
	if err != nil {
		return nil, err
	}

	return env.Merge(fallback)
}

func recordEnvironment(filename string, env environment.Environment) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create snapshot %v", filename)
	}
	var result *multierror.Error
	if err = env.Encode(file); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "failed to record %v", filename))
	}
	if err = file.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "failed to close snapshot %v", filename))
	}

	return result.ErrorOrNil()
}

func respond(w io.Writer, creator request.Creator, env environment.Environment, stdin io.Reader, format string) error {
	req, err := creator.FromGlobals(env, stdin)
	if err != nil {
		log.Error(errors.Wrap(err, "building server request failed"))
		failure := server.BuildFailure(err)
		status := failure.Code
		if status <= 0 {
			status = http.StatusInternalServerError
		}

		return writeResponse(w, status, failure.Data, format)
	}
	defer func() {
		log.Error(errors.Wrap(request.DiscardUploads(req.UploadedFiles()), "failed to discard uploads"))
	}()

	return writeResponse(w, http.StatusOK, message.Describe(req), format)
}

func writeResponse(w io.Writer, status int, body any, format string) error {
	contentType, marshal := "application/json", json.Marshal
	if format == msgpackFormat {
		contentType, marshal = "application/msgpack", msgpack.Marshal
	}
	payload, err := marshal(body)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %T", body)
	}
	_, err = fmt.Fprintf(w, "Status: %d %s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), contentType, len(payload), payload)

	return errors.Wrap(err, "failed to write cgi response")
}
