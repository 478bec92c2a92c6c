package engine

import (
	"context"

	"scorekeeper/core"
)

// LeaderboardStorage persists score entries under a retention cap.
//
// SubmitScore stores the entry with a fresh ID; when the stored count then
// exceeds capacity it deletes exactly one lowest-scoring entry.
type LeaderboardStorage interface {
	SubmitScore(ctx context.Context, entry core.ScoreEntry, capacity int) (core.Submission, error)
	TopScores(ctx context.Context, limit int) ([]core.ScoreEntry, error)
	CountScores(ctx context.Context) (int, error)
}

// PresetStorage persists write-once instructor presets.
type PresetStorage interface {
	SubmitPreset(ctx context.Context, preset core.InstructorPreset) (core.InstructorPreset, error)
	ListPresets(ctx context.Context) ([]core.InstructorPreset, error)
}

// Storage is implemented by adapters that serve both stores.
type Storage interface {
	LeaderboardStorage
	PresetStorage
}
