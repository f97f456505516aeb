package logger

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/carepay/onboarding/config"
)

var logger = logrus.New()

func init() {
	logger.Level = logrus.InfoLevel
	logger.Formatter = &formatter{}

	cfg := config.ServerConfig()
	if cfg.Environment == "production" || cfg.Environment == "staging" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Fatalf("Sentry initialization failed: %v", err)
		}
	}
}

// SetLogLevel sets the log level for the logger.
func SetLogLevel(level logrus.Level) {
	logger.Level = level
}

// Fields type, used to pass to `WithFields`.
type Fields logrus.Fields

// ErrorWithFields logs an error with additional context
func ErrorWithFields(err error, fields Fields) {
	if logger.Level >= logrus.ErrorLevel {
		wrappedErr := fmt.Errorf("error occurred: %w", err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelError)
			for key, value := range fields {
				switch v := value.(type) {
				case string:
					scope.SetTag(key, v)
				default:
					scope.SetExtra(key, value)
				}
			}
			sentry.CaptureException(wrappedErr)
		})
		logger.WithFields(logrus.Fields(fields)).Error(wrappedErr.Error())
	}
}

// Debugf logs a message at level Debug
func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Infof logs a message at level Info
func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Warnf logs a message at level Warn
func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message and forwards it to Sentry when configured
func Errorf(format string, args ...interface{}) {
	if logger.Level >= logrus.ErrorLevel {
		errMsg := fmt.Sprintf(format, args...)
		sentry.CaptureMessage(errMsg)
		logger.Error(errMsg)
	}
}

// Fatalf logs a fatal message and exits
func Fatalf(format string, args ...interface{}) {
	sentry.CaptureMessage(fmt.Sprintf(format, args...))
	logger.Fatalf(format, args...)
}

// formatter implements logrus.Formatter interface
type formatter struct {
	prefix string
}

// Format building log message
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var sb bytes.Buffer
	sb.WriteString(strings.ToUpper(entry.Level.String()))
	sb.WriteString(" ")
	sb.WriteString(entry.Time.Format(time.RFC3339))
	sb.WriteString(" ")
	sb.WriteString(f.prefix)
	sb.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		sb.WriteString(" [")
		for key, value := range entry.Data {
			sb.WriteString(fmt.Sprintf("%s=%v ", key, value))
		}
		sb.WriteString("]")
	}
	sb.WriteString("\n")

	return sb.Bytes(), nil
}
