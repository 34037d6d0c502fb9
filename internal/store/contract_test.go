package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises every Store operation against a fresh store from newStore.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	fake := gofakeit.New(7)
	round := func(secret string) Round {
		return Round{
			ID:        fake.UUID(),
			Secret:    secret,
			StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("no round initially", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Active(context.Background())
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("create then active", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		want := round("pikachu")

		ok, err := s.CreateIfAbsent(ctx, want)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.Active(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, "pikachu", got.Secret)
		assert.Empty(t, got.Guesses)
		assert.True(t, want.StartedAt.Equal(got.StartedAt), "started at %v", got.StartedAt)
	})

	t.Run("create refuses second round", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		first := round("pikachu")

		ok, err := s.CreateIfAbsent(ctx, first)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.CreateIfAbsent(ctx, round("eevee"))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "pikachu", got.Secret)
	})

	t.Run("append guesses", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		r := round("pikachu")
		_, err := s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)

		for _, g := range []string{"raichu", "eevee", "bulbasaur"} {
			added, err := s.AppendGuessIfNew(ctx, r.ID, g)
			require.NoError(t, err)
			assert.True(t, added, g)
		}
		added, err := s.AppendGuessIfNew(ctx, r.ID, "eevee")
		require.NoError(t, err)
		assert.False(t, added)

		got, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"bulbasaur", "eevee", "raichu"}, got.Guesses)
	})

	t.Run("append to stale round", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.AppendGuessIfNew(ctx, "missing", "eevee")
		assert.ErrorIs(t, err, ErrNoActiveRound)

		_, err = s.CreateIfAbsent(ctx, round("pikachu"))
		require.NoError(t, err)
		_, err = s.AppendGuessIfNew(ctx, "other", "eevee")
		assert.ErrorIs(t, err, ErrNoActiveRound)
	})

	t.Run("finish awards and clears", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := fake.Username()

		for want := 1; want <= 3; want++ {
			r := round("pikachu")
			ok, err := s.CreateIfAbsent(ctx, r)
			require.NoError(t, err)
			require.True(t, ok)
			_, err = s.AppendGuessIfNew(ctx, r.ID, "raichu")
			require.NoError(t, err)

			score, err := s.FinishAndAward(ctx, r.ID, user)
			require.NoError(t, err)
			assert.Equal(t, want, score)

			active, err := s.Active(ctx)
			require.NoError(t, err)
			assert.Nil(t, active)
		}

		// The next round starts with no guesses left over.
		r := round("eevee")
		_, err := s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		got, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Empty(t, got.Guesses)
	})

	t.Run("finish stale round awards nothing", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.FinishAndAward(ctx, "missing", "ash")
		assert.ErrorIs(t, err, ErrNoActiveRound)

		r := round("pikachu")
		_, err = s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		_, err = s.FinishAndAward(ctx, "other", "ash")
		assert.ErrorIs(t, err, ErrNoActiveRound)

		top, err := s.TopScores(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, top)

		active, err := s.Active(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, r.ID, active.ID)
	})

	t.Run("clear round keeps scores", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		r := round("pikachu")
		_, err := s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		_, err = s.FinishAndAward(ctx, r.ID, "misty")
		require.NoError(t, err)

		r = round("eevee")
		_, err = s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		_, err = s.AppendGuessIfNew(ctx, r.ID, "vaporeon")
		require.NoError(t, err)

		require.NoError(t, s.ClearRound(ctx))
		require.NoError(t, s.ClearRound(ctx))

		active, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)

		top, err := s.TopScores(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []LeaderboardEntry{{UserID: "misty", Score: 1}}, top)
	})

	t.Run("leaderboard order and limit", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		// brock scores first, so he stays ahead of misty on ties.
		wins := []string{"brock", "misty", "ash", "ash", "gary", "tracey", "may", "ash", "misty"}
		for _, u := range wins {
			r := round("pikachu")
			_, err := s.CreateIfAbsent(ctx, r)
			require.NoError(t, err)
			_, err = s.FinishAndAward(ctx, r.ID, u)
			require.NoError(t, err)
		}

		top, err := s.TopScores(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []LeaderboardEntry{
			{UserID: "ash", Score: 3},
			{UserID: "misty", Score: 2},
			{UserID: "brock", Score: 1},
			{UserID: "gary", Score: 1},
			{UserID: "tracey", Score: 1},
		}, top)

		all, err := s.TopScores(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 6)
	})

	t.Run("delete leaderboard entry", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		r := round("pikachu")
		_, err := s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		_, err = s.FinishAndAward(ctx, r.ID, "ash")
		require.NoError(t, err)

		deleted, err := s.DeleteLeaderboardEntry(ctx, "ash")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteLeaderboardEntry(ctx, "ash")
		require.NoError(t, err)
		assert.False(t, deleted)

		// A deleted user starts again from one.
		r = round("eevee")
		_, err = s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)
		score, err := s.FinishAndAward(ctx, r.ID, "ash")
		require.NoError(t, err)
		assert.Equal(t, 1, score)
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.CreateIfAbsent(ctx, round("pikachu"))
				if assert.NoError(t, err) && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("concurrent correct guesses award once", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		r := round("pikachu")
		_, err := s.CreateIfAbsent(ctx, r)
		require.NoError(t, err)

		var awarded atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.FinishAndAward(ctx, r.ID, "ash")
				if err == nil {
					awarded.Add(1)
					return
				}
				assert.ErrorIs(t, err, ErrNoActiveRound)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), awarded.Load())

		top, err := s.TopScores(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []LeaderboardEntry{{UserID: "ash", Score: 1}}, top)
	})
}
