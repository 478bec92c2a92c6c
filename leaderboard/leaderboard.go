package leaderboard

import "scorekeeper/core"

// Board abstracts an in-memory ranking of score entries.
//
// Ranking order is score descending, then ID ascending, so among equal
// scores the earlier entry ranks higher and Last returns the newest of the
// lowest scores.
type Board interface {
	Insert(e core.ScoreEntry)
	Remove(id int64) bool
	TopN(n int) []core.ScoreEntry
	Last() (core.ScoreEntry, bool)
	Len() int
}
