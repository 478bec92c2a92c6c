package memory

import (
	"context"
	"sync"

	"scorekeeper/core"
	"scorekeeper/leaderboard"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	mu          sync.Mutex
	board       leaderboard.Board
	nextScoreID int64

	presets      []core.InstructorPreset
	nextPresetID int64
}

func New() *Store { return &Store{board: leaderboard.NewSkipList()} }

// SubmitScore inserts and evicts under one lock, so the cap holds even under
// concurrent submits.
func (s *Store) SubmitScore(_ context.Context, entry core.ScoreEntry, capacity int) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScoreID++
	entry.ID = s.nextScoreID
	s.board.Insert(entry)
	sub := core.Submission{Entry: entry}
	if s.board.Len() > capacity {
		if last, ok := s.board.Last(); ok {
			s.board.Remove(last.ID)
			sub.Evicted = &last
		}
	}
	return sub, nil
}

func (s *Store) TopScores(_ context.Context, limit int) ([]core.ScoreEntry, error) {
	return s.board.TopN(limit), nil
}

func (s *Store) CountScores(_ context.Context) (int, error) {
	return s.board.Len(), nil
}

func (s *Store) SubmitPreset(_ context.Context, p core.InstructorPreset) (core.InstructorPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPresetID++
	p.ID = s.nextPresetID
	s.presets = append(s.presets, p)
	return p, nil
}

func (s *Store) ListPresets(_ context.Context) ([]core.InstructorPreset, error) {
	s.mu.Lock()
	out := make([]core.InstructorPreset, len(s.presets))
	copy(out, s.presets)
	s.mu.Unlock()
	core.SortPresets(out)
	return out, nil
}

var _ interface {
	SubmitScore(context.Context, core.ScoreEntry, int) (core.Submission, error)
	TopScores(context.Context, int) ([]core.ScoreEntry, error)
	CountScores(context.Context) (int, error)
	SubmitPreset(context.Context, core.InstructorPreset) (core.InstructorPreset, error)
	ListPresets(context.Context) ([]core.InstructorPreset, error)
} = (*Store)(nil)
