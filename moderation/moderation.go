// Package moderation watches live streams and takes down the ones an
// analyzer flags. Detection itself is pluggable; NoopAnalyzer flags nothing.
package moderation

import (
	"context"
	"time"
)

// Violation names a category of prohibited content.
type Violation string

const (
	ViolationNone           Violation = "none"
	ViolationSexualActivity Violation = "sexual_activity"
	ViolationViolence       Violation = "violence"
	ViolationGore           Violation = "gore"
)

const (
	DefaultThreshold = 0.85
	DefaultInterval  = 5 * time.Second
)

// Verdict holds per-category confidence scores in [0, 1].
type Verdict struct {
	Scores map[Violation]float64
}

// Worst returns the highest scoring category at or above threshold, or
// ViolationNone.
func (v Verdict) Worst(threshold float64) (Violation, float64) {
	worst, score := ViolationNone, 0.0
	for kind, s := range v.Scores {
		if kind == ViolationNone || s < threshold {
			continue
		}
		// Ties resolve by name so the result does not depend on map order.
		if s > score || (s == score && kind < worst) {
			worst, score = kind, s
		}
	}
	return worst, score
}

// Analyzer inspects the current state of a live stream.
type Analyzer interface {
	Analyze(ctx context.Context, streamID string) (Verdict, error)
}

// NoopAnalyzer reports every stream as clean.
type NoopAnalyzer struct{}

func (NoopAnalyzer) Analyze(context.Context, string) (Verdict, error) {
	return Verdict{}, nil
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, streamID string) (Verdict, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, streamID string) (Verdict, error) {
	return f(ctx, streamID)
}

// Config controls polling.
type Config struct {
	Interval  time.Duration
	Threshold float64
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
}

// TerminateFunc is called once when a stream is taken down.
type TerminateFunc func(streamID string, violation Violation, score float64)
