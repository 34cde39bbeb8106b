// Package logging builds the service's zap.Logger, replacing the
// original Rust source's tracing/RUST_LOG setup with zap configured by
// a LOG_LEVEL-style field, the pattern used throughout the example
// pack (mselser95-polymarket-arb, abdoElHodaky-tradSys, and others all
// inject a *zap.Logger rather than using the standard library's log
// package).
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelMap holds a process-level default log level plus per-component
// overrides, parsed from a spec string of the form
// "default,pkg=level,pkg2=level2,...", the Go-side equivalent of the
// source's RUST_LOG filter syntax. The "default," prefix may be omitted
// if every component is listed explicitly.
type LevelMap struct {
	defaultLevel zapcore.Level
	overrides    map[string]zapcore.Level
}

// ParseLevelSpec parses a level spec into a LevelMap. Unrecognized
// tokens are ignored; the default level is info unless the spec sets
// one.
func ParseLevelSpec(spec string) LevelMap {
	m := LevelMap{defaultLevel: zapcore.InfoLevel, overrides: make(map[string]zapcore.Level)}

	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if pkg, lvlStr, ok := strings.Cut(tok, "="); ok {
			if lvl, err := parseLevel(lvlStr); err == nil {
				m.overrides[pkg] = lvl
			}
			continue
		}
		if lvl, err := parseLevel(tok); err == nil {
			m.defaultLevel = lvl
		}
	}
	return m
}

// minLevel returns the lowest (most permissive) level across the
// default and every override, so the base core never filters out a log
// line that a component-scoped logger would otherwise allow through.
func (m LevelMap) minLevel() zapcore.Level {
	min := m.defaultLevel
	for _, lvl := range m.overrides {
		if lvl < min {
			min = lvl
		}
	}
	return min
}

func (m LevelMap) levelFor(component string) zapcore.Level {
	if lvl, ok := m.overrides[component]; ok {
		return lvl
	}
	return m.defaultLevel
}

// WithComponent returns a child logger scoped to component: tagged with
// a "component" field and filtered to that component's configured
// level via zap.IncreaseLevel (component levels may only raise the
// floor set by the base core, never lower it below what New built).
func (m LevelMap) WithComponent(l *zap.Logger, component string) *zap.Logger {
	scoped := l.WithOptions(zap.IncreaseLevel(m.levelFor(component)))
	return scoped.With(zap.String("component", component))
}

// New builds a production-profile zap.Logger from levelSpec
// ("debug", "info,feed=debug,bus=warn", ...), at the lowest level any
// component needs, plus the LevelMap callers use to scope child
// loggers per component via WithComponent.
func New(levelSpec string) (*zap.Logger, LevelMap, error) {
	m := ParseLevelSpec(levelSpec)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(m.minLevel())
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, LevelMap{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, m, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var zl zapcore.Level
	err := zl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level))))
	return zl, err
}
