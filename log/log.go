// SPDX-License-Identifier: ice License 1.0

package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/ice-blockchain/envrequest/config"
)

// .
var (
	//nolint:gochecknoglobals // we need only one log for the app, hence it is global
	logger *zerolog.Logger
)

//nolint:gochecknoinits // log is global, so it's initialization can be done in init
func init() {
	var appCfg cfg
	config.MustLoadFromKey(applicationYAMLKey, &appCfg)
	isJSON := strings.EqualFold(appCfg.Encoder, jsonEncoder)

	zerolog.DisableSampling(true)
	zerolog.ErrorStackMarshaler = errorStackMarshaller //nolint:reassign // It is called by an init.
	zerolog.InterfaceMarshalFunc = json.Marshal
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Nanosecond
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var err error
	if logger, err = buildLogger(os.Stderr, isJSON, appCfg.Level); err != nil {
		panic(errors.Wrap(err, "failed to build logger"))
	}
	stdLibLogger, err := buildLogger(os.Stderr, isJSON, appCfg.Level)
	if err != nil {
		panic(errors.Wrap(err, "failed to build std lib logger"))
	}
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLibLogger)
}

func buildLogger(out io.Writer, isJSON bool, level string) (*zerolog.Logger, error) { //nolint:revive // Control coupling is intended here.
	logWriter := out
	if !isJSON {
		logWriter = &zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
			PartsOrder: []string{
				zerolog.LevelFieldName,
				zerolog.TimestampFieldName,
				zerolog.MessageFieldName,
			},
			PartsExclude: []string{
				zerolog.ErrorStackFieldName,
				zerolog.CallerFieldName,
			},
		}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid logger level %q", level)
	}
	lgr := zerolog.New(logWriter).With().Timestamp().Stack().Logger().Level(lvl)

	return &lgr, nil
}

func errorStackMarshaller(err error) any {
	frames, ok := pkgerrors.MarshalStack(err).([]map[string]string)
	if !ok || len(frames) <= stackFramesToSkip {
		return nil
	}
	stacks := make([]string, 0, len(frames)-stackFramesToSkip)
	for _, frame := range frames[:len(frames)-stackFramesToSkip] {
		stacks = append(stacks, fmt.Sprintf("%s:%s:%s",
			frame[pkgerrors.StackSourceFileName],
			frame[pkgerrors.StackSourceLineName],
			frame[pkgerrors.StackSourceFunctionName]))
	}

	return strings.Join(stacks, "<<")
}

func Error(err error, fields ...any) {
	if err == nil {
		return
	}
	send(logger.Err(err), fields).Send()
}

func Debug(msg string, fields ...any) {
	send(logger.Debug(), fields).Msg(msg)
}

func Info(msg string, fields ...any) {
	send(logger.Info(), fields).Msg(msg)
}

func Warn(msg string, fields ...any) {
	send(logger.Warn(), fields).Msg(msg)
}

func Fatal(anything any, fields ...any) {
	if anything == nil {
		return
	}
	withError(send(logger.Fatal(), fields), anything)
}

func Panic(anything any, fields ...any) {
	if anything == nil {
		return
	}
	withError(send(logger.Panic(), fields), anything)
}

func Level() string {
	return logger.GetLevel().String()
}

// Fields are key/value pairs, e.g. Debug("msg", "method", "GET", "path", "/").
func send(event *zerolog.Event, fields []any) *zerolog.Event {
	if len(fields) > 0 {
		event = event.Fields(fields)
	}

	return event
}

func withError(event *zerolog.Event, anything any) {
	switch obj := anything.(type) {
	case error:
		event.Err(obj).Send()
	case string:
		event.Err(errors.New(obj)).Send()
	default:
		event.Err(errors.Errorf("%#v", obj)).Send()
	}
}
