// Package logging builds the process-wide structured logger. No
// package-level global is exported: callers build one *zap.Logger at
// startup and pass it down the call graph by constructor injection.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/veracity-dev/ess/internal/esserr"
)

// New builds a *zap.Logger at the given level ("debug", "info", "warn",
// "error"), writing JSON to stdout through a core whose encoder redacts
// secret-shaped values before they leave the process.
func New(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		&redactingEncoder{Encoder: zapcore.NewJSONEncoder(encoderCfg)},
		zapcore.Lock(zapcore.AddSync(os.Stdout)),
		zapLevel,
	)

	return zap.New(core, zap.AddCaller()), nil
}

// redactingEncoder wraps a zapcore.Encoder and runs esserr.Redact over
// the message and over every string and error field passed with the
// entry before encoding. Fields bound earlier with Logger.With are
// encoded as given.
type redactingEncoder struct {
	zapcore.Encoder
}

func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone()}
}

func (e *redactingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	entry.Message = esserr.Redact(entry.Message)
	redacted := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			f.String = esserr.Redact(f.String)
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				f = zap.String(f.Key, esserr.Redact(err.Error()))
			}
		}
		redacted[i] = f
	}
	return e.Encoder.EncodeEntry(entry, redacted)
}
