package storetest

import (
	"bugfind/internal/model"
	"bugfind/internal/store"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

var seq atomic.Int64

// SeedRoom inserts a waiting room whose host is the first of the named
// players. Players join one second apart in the given order.
func SeedRoom(t testing.TB, s store.Store, names ...string) (model.Room, []model.Player) {
	t.Helper()
	ctx := context.Background()
	n := seq.Add(1)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	room := model.Room{
		ID:             fmt.Sprintf("room-%d", n),
		Code:           fmt.Sprintf("T%05d", n),
		Status:         model.StatusWaiting,
		MaxPlayers:     model.DefaultMaxPlayers,
		CurrentPlayers: len(names),
		Difficulty:     model.DifficultyNone,
		CreatedAt:      base,
	}
	players := make([]model.Player, 0, len(names))
	for i, name := range names {
		players = append(players, model.Player{
			ID:        fmt.Sprintf("%s-%d", name, n),
			RoomID:    room.ID,
			Nickname:  name,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	if len(players) > 0 {
		room.HostID = players[0].ID
	}

	err := s.Atomically(ctx, func(ops store.Ops) error {
		if err := ops.InsertRoom(ctx, room); err != nil {
			return err
		}
		for _, p := range players {
			if err := ops.InsertPlayer(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding room: %v", err)
	}
	return room, players
}
