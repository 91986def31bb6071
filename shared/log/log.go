package log

import (
	"context"
	"github.com/hyperdxio/opentelemetry-go/otelzap"
	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
)

// InitLogger builds the process logger. With exportOTLP the console core is
// teed with an OTLP log core; an exporter that fails to start is skipped.
func InitLogger(ctx context.Context, level string, exportOTLP bool) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.DebugLevel
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lvl),
	}

	var exportErr error
	if exportOTLP {
		logExporter, e := otlplogs.NewExporter(ctx)
		if exportErr = e; exportErr == nil {
			loggerProvider := sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
			cores = append(cores, otelzap.NewOtelCore(loggerProvider))
		}
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if exportErr != nil {
		logger.Warn("OTLP log exporter unavailable", zap.Error(exportErr))
	}
	if err != nil {
		logger.Warn("Unknown log level, using debug", zap.String("level", level))
	}

	return logger
}

func LoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanContext.TraceID().String()),
		zap.String("span_id", spanContext.SpanID().String()),
	)
}

func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String("request_id", requestID))
}
