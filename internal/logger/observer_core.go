package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spigell/quickapply/internal/observer"
)

// WithObserver returns a logger that writes to the original core and also
// forwards every entry at or above level to obs as a single console-encoded line.
func WithObserver(logger *zap.Logger, obs observer.Observer, level zapcore.Level) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		return logger
	}

	cfg := encoderConfig()
	cfg.CallerKey = ""
	cfg.TimeKey = ""
	core := &observerCore{
		LevelEnabler: level,
		enc:          zapcore.NewConsoleEncoder(cfg),
		obs:          obs,
	}

	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))
}

type observerCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	obs observer.Observer
}

func (c *observerCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &observerCore{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		obs:          c.obs,
	}
	for i := range fields {
		fields[i].AddTo(clone.enc)
	}
	return clone
}

func (c *observerCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *observerCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	line := strings.TrimRight(buf.String(), "\n")
	buf.Free()

	c.obs.OnLogLine(line)
	return nil
}

func (c *observerCore) Sync() error { return nil }
