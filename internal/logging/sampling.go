// internal/logging/sampling.go
package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with per-level sampling.
// Each configured level below Error gets its own sampler; levels without
// an entry pass through unsampled. Error and above are never sampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	sampled := make(map[zapcore.Level]bool, len(levels))
	cores := make([]zapcore.Core, 0, len(levels)+1)
	for _, lvl := range levels {
		rate := cfg.Levels[lvl]
		sampled[lvl] = true
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, only: levelSet{lvl: true}},
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}

	// Everything without a sampler, including Error+, goes straight through.
	cores = append(cores, &levelFilterCore{Core: core, except: sampled})

	return zapcore.NewTee(cores...)
}

type levelSet map[zapcore.Level]bool

// levelsFrom returns every level at or above min, TraceLevel included.
func levelsFrom(min zapcore.Level) levelSet {
	set := levelSet{}
	for lvl := TraceLevel; lvl <= zapcore.FatalLevel; lvl++ {
		if lvl >= min {
			set[lvl] = true
		}
	}
	return set
}

// levelFilterCore admits entries whose level is in only (when set) and not
// in except.
type levelFilterCore struct {
	zapcore.Core
	only   levelSet
	except levelSet
}

func (c *levelFilterCore) admits(lvl zapcore.Level) bool {
	if c.only != nil && !c.only[lvl] {
		return false
	}
	return !c.except[lvl]
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.admits(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.admits(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:   c.Core.With(fields),
		only:   c.only,
		except: c.except,
	}
}
