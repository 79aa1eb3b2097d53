package store

import (
	"bugfind/internal/events"
	"bugfind/internal/model"
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("row not found")
	ErrConflict   = errors.New("unique constraint violated")
	ErrConstraint = errors.New("constraint violated")
	ErrClosed     = fmt.Errorf("%w: store closed", model.ErrStoreUnavailable)
)

// Subscription delivers change notifications until Close. The channel is
// closed once the subscription is released.
type Subscription interface {
	Changes() <-chan events.Change
	Close()
}

// Ops are the row operations on the four logical tables. Player and vote
// listings are ordered by creation time, then id.
type Ops interface {
	InsertRoom(ctx context.Context, r model.Room) error
	UpdateRoom(ctx context.Context, r model.Room) error
	GetRoom(ctx context.Context, id string) (model.Room, error)
	GetRoomByCode(ctx context.Context, code string) (model.Room, error)

	InsertPlayer(ctx context.Context, p model.Player) error
	UpdatePlayer(ctx context.Context, p model.Player) error
	DeletePlayer(ctx context.Context, id string) error
	ListPlayers(ctx context.Context, roomID string) ([]model.Player, error)

	InsertVote(ctx context.Context, v model.Vote) error
	DeleteVotes(ctx context.Context, roomID string) error
	ListVotes(ctx context.Context, roomID string) ([]model.Vote, error)

	ListWords(ctx context.Context, d model.Difficulty) ([]model.WordEntry, error)
}

// Store is the shared, subscribable backend every client talks to.
type Store interface {
	Ops
	// Atomically runs fn so that either all of its writes commit or none do.
	// Rooms read through the Ops passed to fn stay locked until fn returns.
	Atomically(ctx context.Context, fn func(Ops) error) error
	Subscribe(ctx context.Context, f events.Filter) (Subscription, error)
}

func ValidateFilter(f events.Filter) error {
	switch f.Table {
	case events.TableRooms, events.TablePlayers, events.TableVotes:
	default:
		return fmt.Errorf("subscribing: unknown table %q", f.Table)
	}
	if f.RoomID == "" {
		return fmt.Errorf("subscribing to %s: empty room id", f.Table)
	}
	return nil
}

// FindRoom reads a room through ops, reporting a missing row as
// model.ErrRoomNotFound.
func FindRoom(ctx context.Context, ops Ops, id string) (model.Room, error) {
	r, err := ops.GetRoom(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return model.Room{}, fmt.Errorf("%w: %s", model.ErrRoomNotFound, id)
	}
	if err != nil {
		return model.Room{}, err
	}
	return r, nil
}
