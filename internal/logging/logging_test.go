package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevelSpecDefaultsToInfo(t *testing.T) {
	m := ParseLevelSpec("")
	if m.levelFor("anything") != zapcore.InfoLevel {
		t.Fatalf("default level = %v, want info", m.levelFor("anything"))
	}
}

func TestParseLevelSpecAppliesPerComponentOverrides(t *testing.T) {
	m := ParseLevelSpec("info,feed=debug,bus=error")
	if m.levelFor("feed") != zapcore.DebugLevel {
		t.Fatalf("feed level = %v, want debug", m.levelFor("feed"))
	}
	if m.levelFor("bus") != zapcore.ErrorLevel {
		t.Fatalf("bus level = %v, want error", m.levelFor("bus"))
	}
	if m.levelFor("health") != zapcore.InfoLevel {
		t.Fatalf("unlisted component level = %v, want default info", m.levelFor("health"))
	}
}

func TestMinLevelIsLowestAcrossDefaultAndOverrides(t *testing.T) {
	m := ParseLevelSpec("warn,feed=debug")
	if got := m.minLevel(); got != zapcore.DebugLevel {
		t.Fatalf("minLevel() = %v, want debug", got)
	}
}

func TestNewBuildsLoggerAtMinLevel(t *testing.T) {
	log, levels, err := New("warn,feed=debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	scoped := levels.WithComponent(log, "feed")
	if !scoped.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected feed-scoped logger to have debug enabled")
	}
}
