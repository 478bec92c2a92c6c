package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"scorekeeper/core"
	"scorekeeper/leaderboard"
)

// Store persists the whole data set to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory copy, rewritten to disk after every change
	board        leaderboard.Board
	presets      []core.InstructorPreset
	nextScoreID  int64
	nextPresetID int64
}

type document struct {
	NextScoreID  int64                   `json:"next_score_id"`
	NextPresetID int64                   `json:"next_preset_id"`
	Scores       []core.ScoreEntry       `json:"scores"`
	Presets      []core.InstructorPreset `json:"presets"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, board: leaderboard.NewSkipList()}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	for _, e := range doc.Scores {
		s.board.Insert(e)
		s.nextScoreID = max(s.nextScoreID, e.ID)
	}
	for _, p := range doc.Presets {
		s.nextPresetID = max(s.nextPresetID, p.ID)
	}
	s.presets = doc.Presets
	s.nextScoreID = max(s.nextScoreID, doc.NextScoreID)
	s.nextPresetID = max(s.nextPresetID, doc.NextPresetID)
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	doc := document{
		NextScoreID:  s.nextScoreID,
		NextPresetID: s.nextPresetID,
		Scores:       s.board.TopN(math.MaxInt),
		Presets:      s.presets,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// SubmitScore applies insert and eviction in memory and writes the file once.
// If the write fails the in-memory change is undone.
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
	if err := s.persist(); err != nil {
		s.board.Remove(entry.ID)
		if sub.Evicted != nil {
			s.board.Insert(*sub.Evicted)
		}
		return core.Submission{}, err
	}
	return sub, nil
}

func (s *Store) TopScores(_ context.Context, limit int) ([]core.ScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.TopN(limit), nil
}

func (s *Store) CountScores(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Len(), nil
}

func (s *Store) SubmitPreset(_ context.Context, p core.InstructorPreset) (core.InstructorPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPresetID++
	p.ID = s.nextPresetID
	s.presets = append(s.presets, p)
	if err := s.persist(); err != nil {
		s.presets = s.presets[:len(s.presets)-1]
		return core.InstructorPreset{}, err
	}
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
