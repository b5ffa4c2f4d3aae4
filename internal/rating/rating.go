// Package rating computes a book's aggregate score from the scores left on return.
package rating

import (
	"errors"
	"fmt"
	"strings"

	"librarymanager/internal/entity"
)

// NoScore is the aggregate reported for a book nobody has scored yet.
const NoScore = -1.0

const (
	MinExclusive = 0.0
	MaxInclusive = 10.0
)

var (
	ErrOutOfRange      = errors.New("score must be greater than 0 and at most 10")
	ErrUnknownStrategy = errors.New("unknown scoring strategy")
)

// Strategy selects how Engine maintains Book.Score. A deployment picks one and keeps it.
type Strategy string

const (
	// StrategyIncremental folds each new score into the stored mean using the
	// distinct returner count as the denominator. Only exact while every return
	// produces one score from a first-time returner.
	//
	// Deprecated: kept for deployments that still rely on it; prefer StrategyRecompute.
	StrategyIncremental Strategy = "incremental"
	// StrategyRecompute takes the mean of the full score history.
	StrategyRecompute Strategy = "recompute"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyRecompute:
		return StrategyRecompute, nil
	case StrategyIncremental:
		return StrategyIncremental, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
}

// NeedsHistory reports whether Apply reads Book.Scores.
func (s Strategy) NeedsHistory() bool {
	return s != StrategyIncremental
}

// Validate rejects values outside (0, 10].
func Validate(value float64) error {
	if !(value > MinExclusive && value <= MaxInclusive) {
		return ErrOutOfRange
	}
	return nil
}

// Mean is the arithmetic mean of all score values, or NoScore for an empty history.
func Mean(scores []entity.Score) float64 {
	if len(scores) == 0 {
		return NoScore
	}
	var sum float64
	for _, s := range scores {
		sum += s.Value
	}
	return sum / float64(len(scores))
}

// Incremental returns the running mean after adding value. priorReturners must be
// read before the current returner is appended to the book.
func Incremental(current float64, priorReturners int, value float64) float64 {
	if current == NoScore {
		return value
	}
	n := float64(priorReturners)
	return (current*n + value) / (n + 1)
}
