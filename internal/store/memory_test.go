package store

import (
	"bugfind/internal/events"
	"bugfind/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRoom(t *testing.T, m *Memory, id, code string) model.Room {
	t.Helper()
	r := model.Room{
		ID:         id,
		Code:       code,
		Status:     model.StatusWaiting,
		MaxPlayers: model.DefaultMaxPlayers,
		HostID:     "host",
		Difficulty: model.DifficultyBeginner,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.InsertRoom(context.Background(), r))
	return r
}

func TestMemory_RoomCodeUnique(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	seedRoom(t, m, "r1", "ABC234")

	err := m.InsertRoom(context.Background(), model.Room{ID: "r2", Code: "abc234"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := m.GetRoomByCode(context.Background(), "abc234")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestMemory_GetRoomNotFound(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	_, err := m.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetRoomByCode(context.Background(), "NOPE22")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_PlayersOrderedByJoin(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	seedRoom(t, m, "r1", "ABC234")
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, m.InsertPlayer(ctx, model.Player{ID: "p2", RoomID: "r1", Nickname: "Bo", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, m.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "Al", CreatedAt: base}))

	players, err := m.ListPlayers(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "p1", players[0].ID)
	assert.Equal(t, "p2", players[1].ID)
}

func TestMemory_PlayerConstraints(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()

	err := m.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "ghost", Nickname: "Al"})
	assert.ErrorIs(t, err, ErrConstraint)

	seedRoom(t, m, "r1", "ABC234")
	err = m.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "   "})
	assert.ErrorIs(t, err, ErrConstraint)

	err = m.DeletePlayer(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_VoteConstraints(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	seedRoom(t, m, "r1", "ABC234")
	ctx := context.Background()

	require.NoError(t, m.InsertVote(ctx, model.Vote{ID: "v1", RoomID: "r1", VoterID: "a", TargetID: "b"}))

	err := m.InsertVote(ctx, model.Vote{ID: "v2", RoomID: "r1", VoterID: "a", TargetID: "c"})
	assert.ErrorIs(t, err, ErrConflict)

	err = m.InsertVote(ctx, model.Vote{ID: "v3", RoomID: "r1", VoterID: "c", TargetID: "c"})
	assert.ErrorIs(t, err, ErrConstraint)

	require.NoError(t, m.DeleteVotes(ctx, "r1"))
	votes, err := m.ListVotes(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestMemory_AtomicallyRollsBack(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Atomically(ctx, func(tx Ops) error {
		if err := tx.InsertRoom(ctx, model.Room{ID: "r1", Code: "ABC234"}); err != nil {
			return err
		}
		if err := tx.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "Al"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	players, err := m.ListPlayers(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestMemory_AtomicallyReadsOwnWrites(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()

	err := m.Atomically(ctx, func(tx Ops) error {
		if err := tx.InsertRoom(ctx, model.Room{ID: "r1", Code: "ABC234"}); err != nil {
			return err
		}
		r, err := tx.GetRoom(ctx, "r1")
		if err != nil {
			return err
		}
		r.CurrentPlayers = 1
		return tx.UpdateRoom(ctx, r)
	})
	require.NoError(t, err)

	r, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.CurrentPlayers)
}

func TestMemory_SubscribeReceivesCommittedChanges(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()
	seedRoom(t, m, "r1", "ABC234")

	sub, err := m.Subscribe(ctx, events.Filter{Table: events.TablePlayers, RoomID: "r1"})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, m.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "Al"}))

	select {
	case c := <-sub.Changes():
		assert.Equal(t, events.Change{Table: events.TablePlayers, Op: events.OpInsert, RoomID: "r1", RowID: "p1"}, c)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestMemory_SubscribeStartsAfterEarlierCommits(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()
	seedRoom(t, m, "r1", "ABC234")
	require.NoError(t, m.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "Al"}))

	sub, err := m.Subscribe(ctx, events.Filter{Table: events.TableRooms, RoomID: "r1"})
	require.NoError(t, err)
	defer sub.Close()

	select {
	case c := <-sub.Changes():
		t.Fatalf("change committed before Subscribe was delivered: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_RolledBackWritesNotPublished(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()
	ctx := context.Background()
	seedRoom(t, m, "r1", "ABC234")

	sub, err := m.Subscribe(ctx, events.Filter{Table: events.TablePlayers, RoomID: "r1"})
	require.NoError(t, err)
	defer sub.Close()

	_ = m.Atomically(ctx, func(tx Ops) error {
		_ = tx.InsertPlayer(ctx, model.Player{ID: "p1", RoomID: "r1", Nickname: "Al"})
		return errors.New("abort")
	})

	select {
	case c := <-sub.Changes():
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_SubscribeRejectsBadFilter(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	_, err := m.Subscribe(context.Background(), events.Filter{Table: "scores", RoomID: "r1"})
	assert.Error(t, err)
	_, err = m.Subscribe(context.Background(), events.Filter{Table: events.TableRooms})
	assert.Error(t, err)
}

func TestMemory_ClosedStoreUnavailable(t *testing.T) {
	m := NewMemory(nil)
	require.NoError(t, m.Close())

	_, err := m.GetRoom(context.Background(), "r1")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestMemory_ListWordsByTier(t *testing.T) {
	m := NewMemory(SeedWords())
	defer m.Close()

	for _, d := range []model.Difficulty{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced} {
		words, err := m.ListWords(context.Background(), d)
		require.NoError(t, err)
		assert.NotEmpty(t, words, d)
		for _, w := range words {
			assert.Equal(t, d, w.Difficulty)
			assert.NotEqual(t, model.OddOneOutWord, w.Word)
		}
	}
}
