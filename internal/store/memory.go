// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for local development and tests, or when durability is not required.
//
// Characteristics:
//   - One mutex serializes every mutation, which makes each operation atomic.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
)

type memoryScore struct {
	score int
	seq   int // arrival order of the user's first point
}

type memory struct {
	mu      sync.RWMutex // guards everything below
	round   *Round
	guesses map[string]struct{}
	scores  map[string]*memoryScore
	seq     int
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{scores: make(map[string]*memoryScore)}
}

func (m *memory) Active(ctx context.Context) (*Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == nil {
		return nil, nil
	}
	r := *m.round
	r.Guesses = make([]string, 0, len(m.guesses))
	for g := range m.guesses {
		r.Guesses = append(r.Guesses, g)
	}
	r.Guesses = sortedCopy(r.Guesses)
	return &r, nil
}

func (m *memory) CreateIfAbsent(ctx context.Context, r Round) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round != nil {
		return false, nil
	}
	r.Guesses = nil
	m.round = &r
	m.guesses = make(map[string]struct{})
	return true, nil
}

func (m *memory) AppendGuessIfNew(ctx context.Context, roundID, guess string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round == nil || m.round.ID != roundID {
		return false, ErrNoActiveRound
	}
	if _, ok := m.guesses[guess]; ok {
		return false, nil
	}
	m.guesses[guess] = struct{}{}
	return true, nil
}

func (m *memory) FinishAndAward(ctx context.Context, roundID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round == nil || m.round.ID != roundID {
		return 0, ErrNoActiveRound
	}
	s, ok := m.scores[userID]
	if !ok {
		m.seq++
		s = &memoryScore{seq: m.seq}
		m.scores[userID] = s
	}
	s.score++
	m.round, m.guesses = nil, nil
	return s.score, nil
}

func (m *memory) ClearRound(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.round, m.guesses = nil, nil
	return nil
}

func (m *memory) DeleteLeaderboardEntry(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.scores[userID]
	delete(m.scores, userID)
	return ok, nil
}

func (m *memory) TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type row struct {
		LeaderboardEntry
		seq int
	}
	rows := make([]row, 0, len(m.scores))
	for id, s := range m.scores {
		rows = append(rows, row{LeaderboardEntry{UserID: id, Score: s.score}, s.seq})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].seq < rows[j].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = r.LeaderboardEntry
	}
	return out, nil
}

func (m *memory) Close() error { return nil }
