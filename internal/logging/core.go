package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug. Provider payload dumps are logged here.
const TraceLevel = zapcore.DebugLevel - 1

// LevelFromString parses a level name. Matching ignores case and surrounding
// space, and accepts "trace" and "warning" alongside zap's own names.
func LevelFromString(level string) (zapcore.Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(level)); name {
	case "trace":
		return TraceLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	default:
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(name)); err != nil {
			return zapcore.InfoLevel, err
		}
		return l, nil
	}
}

// buildCore assembles the stdout and OTEL outputs and applies sampling.
func buildCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		var w io.Writer = os.Stdout
		if cfg.Output.Writer != nil {
			w = cfg.Output.Writer
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), cfg.Level))
	}
	if cfg.Output.OTEL && provider != nil {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		bridge := otelzap.NewCore("newsd", otelzap.WithLoggerProvider(provider))
		cores = append(cores, redactingCore{Core: bridge, enc: enc})
	}

	switch len(cores) {
	case 0:
		return nil, errors.New("no log output available")
	case 1:
		return sampled(cores[0], cfg.Sampling), nil
	default:
		return sampled(zapcore.NewTee(cores...), cfg.Sampling), nil
	}
}

// redactingCore applies field redaction in front of a core that does not
// encode through a RedactingEncoder, such as the OTEL bridge.
type redactingCore struct {
	zapcore.Core
	enc *RedactingEncoder
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{Core: c.Core.With(c.enc.redactFields(fields)), enc: c.enc}
}

func (c redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.enc.redactFields(fields))
}

// sampled thins out entries below Warn. Warnings and errors always pass.
func sampled(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	loud, err := zapcore.NewIncreaseLevelCore(core, zapcore.WarnLevel)
	if err != nil {
		return core
	}
	quiet := zapcore.NewSamplerWithOptions(
		ceilingCore{Core: core, ceiling: zapcore.WarnLevel},
		cfg.Tick.Duration(), cfg.Initial, cfg.Thereafter,
	)
	return zapcore.NewTee(loud, quiet)
}

// ceilingCore drops entries at or above ceiling.
type ceilingCore struct {
	zapcore.Core
	ceiling zapcore.Level
}

func (c ceilingCore) Enabled(lvl zapcore.Level) bool {
	return lvl < c.ceiling && c.Core.Enabled(lvl)
}

func (c ceilingCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level >= c.ceiling {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c ceilingCore) With(fields []zapcore.Field) zapcore.Core {
	return ceilingCore{Core: c.Core.With(fields), ceiling: c.ceiling}
}
