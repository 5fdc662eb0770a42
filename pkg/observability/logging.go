package observability

import (
	"log"
	"strings"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sentryClient *sentry.Client

func InitLogger(level string) *zap.SugaredLogger {
	logger, err := buildLogger(level)
	if err != nil {
		log.Fatal(err)
	}

	return logger.Sugar()
}

// InitLoggerWithSentry behaves like InitLogger and additionally forwards
// error level entries to Sentry when dsn is not empty.
func InitLoggerWithSentry(level, dsn, environment string) *zap.SugaredLogger {
	logger, err := buildLogger(level)
	if err != nil {
		log.Fatal(err)
	}
	if dsn == "" {
		return logger.Sugar()
	}

	sentryClient, err = sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		logger.Warn("sentry client init failed, continuing without it", zap.Error(err))
		return logger.Sugar()
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
		Tags:              map[string]string{"component": "webhooks"},
	}, zapsentry.NewSentryClientFromClient(sentryClient))
	if err != nil {
		logger.Warn("sentry core init failed, continuing without it", zap.Error(err))
		return logger.Sugar()
	}

	return zapsentry.AttachCoreToLogger(core, logger).Sugar()
}

// FlushSentry drains buffered Sentry events, no-op without a client.
func FlushSentry(timeout time.Duration) {
	if sentryClient != nil {
		sentryClient.Flush(timeout)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Sampling = nil
	logConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	logConfig.DisableStacktrace = true

	logConfig.Level = zap.NewAtomicLevelAt(DetermineLogLevel(level))

	return logConfig.Build()
}

func DetermineLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
