package core

import (
	"errors"
	"strings"
)

const (
	// DefaultName is stored when a submission carries no player or preset name.
	DefaultName = "AAA"
	// MaxScoreEntries is the number of score entries retained after a serialized submit.
	MaxScoreEntries = 12
	// DefaultTopLimit is the leaderboard size returned when the caller gives none.
	DefaultTopLimit = 10
	// DefaultPresetValue is substituted for every tuning field missing from a submission.
	DefaultPresetValue int64 = 1
)

// ErrInvalidInput reports a submission with a missing or mistyped required field.
var ErrInvalidInput = errors.New("invalid input")

// ScoreEntry is one persisted highscore. Entries are never updated in place.
type ScoreEntry struct {
	ID    int64  `json:"id" db:"id"`
	Score int64  `json:"score" db:"score"`
	Name  string `json:"name" db:"name"`
}

// ScoreInput is an unvalidated score submission. A nil Score is rejected.
type ScoreInput struct {
	Score *int64
	Name  string
}

// Entry validates the input and returns the entry to persist (without an ID).
func (in ScoreInput) Entry() (ScoreEntry, error) {
	if in.Score == nil {
		return ScoreEntry{}, ErrInvalidInput
	}
	return ScoreEntry{Score: *in.Score, Name: NormalizeName(in.Name)}, nil
}

// Submission is the outcome of a stored score: the new entry and, when the
// board went over capacity, the entry that was evicted to make room.
type Submission struct {
	Entry   ScoreEntry
	Evicted *ScoreEntry
}

// NormalizeName substitutes DefaultName for blank names.
func NormalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return name
}

// ClampLimit maps non-positive limits to fallback, or to DefaultTopLimit when
// fallback is not positive either.
func ClampLimit(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTopLimit
}
