package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP          = "APP"
	CHAT         = "CHAT"
	CLI          = "CLI"
	CONFIG       = "CONFIG"
	CONVERSATION = "CONVERSATION"
	HANDLER      = "HANDLER"
	MIDDLEWARE   = "MIDDLEWARE"
	REDIS        = "REDIS"
	SERVICE      = "SERVICE"
	SESSION      = "SESSION"
	WEBSOCKET    = "WEBSOCKET"
	WORKOUT      = "WORKOUT"
)

// Setup configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
// Output defaults to stderr when w is nil.
func Setup(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	zerolog.SetGlobalLevel(getLogLevel())
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func getLogLevel() zerolog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debug(namespace, format string, v ...interface{}) {
	log.Debug().Str("namespace", namespace).Msgf(format, v...)
}

func Info(namespace, format string, v ...interface{}) {
	log.Info().Str("namespace", namespace).Msgf(format, v...)
}

func Warn(namespace, format string, v ...interface{}) {
	log.Warn().Str("namespace", namespace).Msgf(format, v...)
}

func Error(namespace, format string, v ...interface{}) {
	log.Error().Str("namespace", namespace).Msgf(format, v...)
}

// Fatal logs at fatal level and exits the process.
func Fatal(namespace, format string, v ...interface{}) {
	log.Fatal().Str("namespace", namespace).Msgf(format, v...)
}
