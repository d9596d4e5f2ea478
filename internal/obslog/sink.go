// Package obslog puts zap behind a thin interface so the rest of the
// module depends on a logging contract instead of a concrete library.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is the logging surface the optimizer packages are handed. Raw
// exposes the underlying zap logger for code that needs it directly, such
// as the HTTP request-logging middleware.
type Sink interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Sink
	Raw() *zap.Logger
}

type zapSink struct {
	sugar *zap.SugaredLogger
	raw   *zap.Logger
}

// New builds a production zap logger at the given debug level (0 = info,
// >0 = debug) and wraps it as a Sink.
func New(debugLevel int) (Sink, error) {
	cfg := zap.NewProductionConfig()
	if debugLevel > 0 {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapSink{sugar: logger.Sugar(), raw: logger}, nil
}

// NewNop returns a Sink that discards everything, for tests and for CLI
// runs that didn't ask for logging.
func NewNop() Sink {
	logger := zap.NewNop()
	return &zapSink{sugar: logger.Sugar(), raw: logger}
}

func (s *zapSink) Debugw(msg string, kv ...interface{}) { s.sugar.Debugw(msg, kv...) }
func (s *zapSink) Infow(msg string, kv ...interface{})  { s.sugar.Infow(msg, kv...) }
func (s *zapSink) Warnw(msg string, kv ...interface{})  { s.sugar.Warnw(msg, kv...) }
func (s *zapSink) Errorw(msg string, kv ...interface{}) { s.sugar.Errorw(msg, kv...) }

func (s *zapSink) With(kv ...interface{}) Sink {
	return &zapSink{sugar: s.sugar.With(kv...), raw: s.raw}
}

func (s *zapSink) Raw() *zap.Logger { return s.raw }
