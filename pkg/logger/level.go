package logger

import (
	"fmt"
	"log/slog"
)

// Levels above [slog.LevelError].
const (
	LevelCritical = slog.Level(12)
	LevelPanic    = slog.Level(14)
	LevelFatal    = slog.Level(16)
)

// namedLevels is ordered from the highest level down.
var namedLevels = []struct {
	level slog.Level
	name  string
}{
	{LevelFatal, "FATAL"},
	{LevelPanic, "PANIC"},
	{LevelCritical, "CRITICAL"},
}

// levelName renders lvl relative to the closest named level below it, e.g. "PANIC+1".
// ok is false for the builtin slog levels.
func levelName(lvl slog.Level) (name string, ok bool) {
	for _, named := range namedLevels {
		if lvl < named.level {
			continue
		}
		if delta := lvl - named.level; delta != 0 {
			return fmt.Sprintf("%s%+d", named.name, delta), true
		}
		return named.name, true
	}
	return "", false
}

func levelAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) != 0 || attr.Key != slog.LevelKey {
		return attr
	}
	if lvl, ok := attr.Value.Any().(slog.Level); ok {
		if name, ok := levelName(lvl); ok {
			attr.Value = slog.StringValue(name)
		}
	}
	return attr
}
