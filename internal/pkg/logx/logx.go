/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the process-wide logger for both the account server and the CLI client,
chooses the output format (JSON or console) based on the environment, and offers
helpers for the Info, Warn, Error and Fatal levels that take alternating key/value fields.
*/
package logx

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger initializes the global zerolog instance.
// Development: Debug level, ConsoleWriter on stderr.
// Production: Info level, JSON on stdout.
// All logs include a Unix timestamp and caller information.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    false,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// InitConsoleLogger configures the global logger for interactive tools.
// Output goes to w in console format; verbose lowers the level from Warn to Debug.
func InitConsoleLogger(w io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Ctx returns the request-scoped logger stored by RequestLogger,
// or the global logger when ctx carries none.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return Logger()
	}
	return l
}

// checkFields returns fields when they form key/value pairs. An odd count is reported
// at warn level and the fields are dropped.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("logx call (%s) received odd number of fields: %v. Fields ignored.", level, fields)
		return nil
	}
	return fields
}

// emit writes ev with fields and msg, reporting the caller of the public helper.
func emit(ev *zerolog.Event, level, msg string, fields []any) {
	ev.Fields(checkFields(level, fields)).
		CallerSkipFrame(2).
		Msg(msg)
}

// Debug records msg at debug level.
func Debug(msg string, fields ...any) {
	emit(Logger().Debug(), "Debug", msg, fields)
}

// Info records msg at info level.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), "Info", msg, fields)
}

// Warn records msg at warn level.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), "Warn", msg, fields)
}

// Error records msg at error level together with err.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), "Error", msg, fields)
}

// Fatal records msg at fatal level together with err, then exits the process.
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal().Err(err), "Fatal", msg, fields)
}
