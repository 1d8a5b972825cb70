package lake

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Statter is the interface for recording run statistics. Tags are "key:value"
// strings.
type Statter interface {
	Count(name string, value int64, tags ...string)
	Gauge(name string, value float64, tags ...string)
	Timing(name string, value time.Duration, tags ...string)
}

// NopStatter discards everything.
type NopStatter struct{}

func (NopStatter) Count(name string, value int64, tags ...string) {}

func (NopStatter) Gauge(name string, value float64, tags ...string) {}

func (NopStatter) Timing(name string, value time.Duration, tags ...string) {}

// Statters sends every stat to each of its members.
type Statters []Statter

func (s Statters) Count(name string, value int64, tags ...string) {
	for _, st := range s {
		st.Count(name, value, tags...)
	}
}

func (s Statters) Gauge(name string, value float64, tags ...string) {
	for _, st := range s {
		st.Gauge(name, value, tags...)
	}
}

func (s Statters) Timing(name string, value time.Duration, tags ...string) {
	for _, st := range s {
		st.Timing(name, value, tags...)
	}
}

// Logger is the logging interface used throughout lake.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Printf(format string, v ...interface{}) {}

func (NopLogger) Debugf(format string, v ...interface{}) {}

// ZapLogger is a Logger which writes structured JSON through zap.
type ZapLogger struct {
	*zap.SugaredLogger
}

// NewZapLogger returns a production zap logger writing to stderr. Debugf
// output is only emitted when verbose is set.
func NewZapLogger(verbose bool) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return &ZapLogger{l.Sugar().With("app", "lake")}, nil
}

func (z *ZapLogger) Printf(format string, v ...interface{}) {
	z.SugaredLogger.Infof(format, v...)
}

func (z *ZapLogger) Debugf(format string, v ...interface{}) {
	z.SugaredLogger.Debugf(format, v...)
}
