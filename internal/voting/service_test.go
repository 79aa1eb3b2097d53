package voting

import (
	"bugfind/internal/model"
	"bugfind/internal/store"
	"bugfind/internal/store/storetest"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func votingRoom(t *testing.T) (*store.Memory, model.Room, []model.Player) {
	t.Helper()
	m := store.NewMemory(store.SeedWords())
	t.Cleanup(func() { m.Close() })
	room, ps := storetest.SeedRoom(t, m, "al", "bo", "cy")
	ctx := context.Background()

	room.Status = model.StatusPlaying
	room.Phase = model.PhaseVoting
	room.Difficulty = model.DifficultyBeginner
	require.NoError(t, m.UpdateRoom(ctx, room))
	for i, p := range ps {
		p.Role, p.Word = model.RoleEngineer, "Loop"
		if i == 1 {
			p.Role, p.Word = model.RoleOddOneOut, model.OddOneOutWord
		}
		require.NoError(t, m.UpdatePlayer(ctx, p))
		ps[i] = p
	}
	return m, room, ps
}

func TestCast(t *testing.T) {
	m, room, ps := votingRoom(t)
	ctx := context.Background()

	v, err := NewService(m).Cast(ctx, room.ID, ps[0].ID, ps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, ps[0].ID, v.VoterID)
	assert.NotEmpty(t, v.ID)

	stored, err := m.ListVotes(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCast_OnlyFirstVoteCounts(t *testing.T) {
	m, room, ps := votingRoom(t)
	ctx := context.Background()
	s := NewService(m)

	_, err := s.Cast(ctx, room.ID, ps[0].ID, ps[1].ID)
	require.NoError(t, err)
	_, err = s.Cast(ctx, room.ID, ps[0].ID, ps[2].ID)
	assert.ErrorIs(t, err, model.ErrDuplicateVote)

	stored, err := m.ListVotes(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ps[1].ID, stored[0].TargetID)
}

func TestCast_ConcurrentDuplicates(t *testing.T) {
	m, room, ps := votingRoom(t)
	ctx := context.Background()
	s := NewService(m)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Cast(ctx, room.ID, ps[0].ID, ps[1+i%2].ID); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestCast_Rejections(t *testing.T) {
	m, room, ps := votingRoom(t)
	ctx := context.Background()
	s := NewService(m)

	_, err := s.Cast(ctx, room.ID, ps[0].ID, ps[0].ID)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = s.Cast(ctx, room.ID, "stranger", ps[0].ID)
	assert.ErrorIs(t, err, model.ErrNotMember)

	_, err = s.Cast(ctx, room.ID, ps[0].ID, "stranger")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = s.Cast(ctx, room.ID, ps[0].ID, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = s.Cast(ctx, "ghost", ps[0].ID, ps[1].ID)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	room.Phase = model.PhaseDiscussion
	require.NoError(t, m.UpdateRoom(ctx, room))
	_, err = s.Cast(ctx, room.ID, ps[0].ID, ps[1].ID)
	assert.ErrorIs(t, err, model.ErrWrongPhase)
}

func TestRestart(t *testing.T) {
	m, room, ps := votingRoom(t)
	ctx := context.Background()
	s := NewService(m)
	for _, pair := range [][2]int{{0, 1}, {1, 2}, {2, 1}} {
		_, err := s.Cast(ctx, room.ID, ps[pair[0]].ID, ps[pair[1]].ID)
		require.NoError(t, err)
	}

	got, err := s.Restart(ctx, room.ID, ps[2].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaiting, got.Status)
	assert.Equal(t, model.PhaseNone, got.Phase)
	assert.Equal(t, model.DifficultyBeginner, got.Difficulty)
	assert.Equal(t, ps[0].ID, got.HostID)

	votes, err := m.ListVotes(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
	roster, err := m.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 3)
	for _, p := range roster {
		assert.Equal(t, model.RoleNone, p.Role)
		assert.Empty(t, p.Word)
	}

	again, err := s.Restart(ctx, room.ID, ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestRestart_RequiresMembership(t *testing.T) {
	m, room, _ := votingRoom(t)
	_, err := NewService(m).Restart(context.Background(), room.ID, "stranger")
	assert.ErrorIs(t, err, model.ErrNotMember)
}
