// Package storetest wraps a store.Store with injectable failures.
package storetest

import (
	"bugfind/internal/model"
	"bugfind/internal/store"
	"context"
	"sync"
)

// Faulty fails named operations with a configured error. Failures apply both
// inside and outside Atomically, so a failing step rolls the whole
// transaction back.
type Faulty struct {
	store.Store

	mu       sync.Mutex
	failures map[string]error
	calls    map[string]int
}

func New(s store.Store) *Faulty {
	return &Faulty{Store: s, failures: make(map[string]error), calls: make(map[string]int)}
}

// FailOn makes every call to op return err until Reset.
func (f *Faulty) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

// Calls reports how often op was invoked.
func (f *Faulty) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failures[op]
}

func (f *Faulty) Atomically(ctx context.Context, fn func(store.Ops) error) error {
	if err := f.check("Atomically"); err != nil {
		return err
	}
	return f.Store.Atomically(ctx, func(ops store.Ops) error {
		return fn(&faultyOps{Ops: ops, f: f})
	})
}

func (f *Faulty) InsertRoom(ctx context.Context, r model.Room) error {
	return (&faultyOps{Ops: f.Store, f: f}).InsertRoom(ctx, r)
}

func (f *Faulty) UpdateRoom(ctx context.Context, r model.Room) error {
	return (&faultyOps{Ops: f.Store, f: f}).UpdateRoom(ctx, r)
}

func (f *Faulty) GetRoom(ctx context.Context, id string) (model.Room, error) {
	return (&faultyOps{Ops: f.Store, f: f}).GetRoom(ctx, id)
}

func (f *Faulty) GetRoomByCode(ctx context.Context, code string) (model.Room, error) {
	return (&faultyOps{Ops: f.Store, f: f}).GetRoomByCode(ctx, code)
}

func (f *Faulty) InsertPlayer(ctx context.Context, p model.Player) error {
	return (&faultyOps{Ops: f.Store, f: f}).InsertPlayer(ctx, p)
}

func (f *Faulty) UpdatePlayer(ctx context.Context, p model.Player) error {
	return (&faultyOps{Ops: f.Store, f: f}).UpdatePlayer(ctx, p)
}

func (f *Faulty) DeletePlayer(ctx context.Context, id string) error {
	return (&faultyOps{Ops: f.Store, f: f}).DeletePlayer(ctx, id)
}

func (f *Faulty) ListPlayers(ctx context.Context, roomID string) ([]model.Player, error) {
	return (&faultyOps{Ops: f.Store, f: f}).ListPlayers(ctx, roomID)
}

func (f *Faulty) InsertVote(ctx context.Context, v model.Vote) error {
	return (&faultyOps{Ops: f.Store, f: f}).InsertVote(ctx, v)
}

func (f *Faulty) DeleteVotes(ctx context.Context, roomID string) error {
	return (&faultyOps{Ops: f.Store, f: f}).DeleteVotes(ctx, roomID)
}

func (f *Faulty) ListVotes(ctx context.Context, roomID string) ([]model.Vote, error) {
	return (&faultyOps{Ops: f.Store, f: f}).ListVotes(ctx, roomID)
}

func (f *Faulty) ListWords(ctx context.Context, d model.Difficulty) ([]model.WordEntry, error) {
	return (&faultyOps{Ops: f.Store, f: f}).ListWords(ctx, d)
}

type faultyOps struct {
	store.Ops
	f *Faulty
}

func (o *faultyOps) InsertRoom(ctx context.Context, r model.Room) error {
	if err := o.f.check("InsertRoom"); err != nil {
		return err
	}
	return o.Ops.InsertRoom(ctx, r)
}

func (o *faultyOps) UpdateRoom(ctx context.Context, r model.Room) error {
	if err := o.f.check("UpdateRoom"); err != nil {
		return err
	}
	return o.Ops.UpdateRoom(ctx, r)
}

func (o *faultyOps) GetRoom(ctx context.Context, id string) (model.Room, error) {
	if err := o.f.check("GetRoom"); err != nil {
		return model.Room{}, err
	}
	return o.Ops.GetRoom(ctx, id)
}

func (o *faultyOps) GetRoomByCode(ctx context.Context, code string) (model.Room, error) {
	if err := o.f.check("GetRoomByCode"); err != nil {
		return model.Room{}, err
	}
	return o.Ops.GetRoomByCode(ctx, code)
}

func (o *faultyOps) InsertPlayer(ctx context.Context, p model.Player) error {
	if err := o.f.check("InsertPlayer"); err != nil {
		return err
	}
	return o.Ops.InsertPlayer(ctx, p)
}

func (o *faultyOps) UpdatePlayer(ctx context.Context, p model.Player) error {
	if err := o.f.check("UpdatePlayer"); err != nil {
		return err
	}
	return o.Ops.UpdatePlayer(ctx, p)
}

func (o *faultyOps) DeletePlayer(ctx context.Context, id string) error {
	if err := o.f.check("DeletePlayer"); err != nil {
		return err
	}
	return o.Ops.DeletePlayer(ctx, id)
}

func (o *faultyOps) ListPlayers(ctx context.Context, roomID string) ([]model.Player, error) {
	if err := o.f.check("ListPlayers"); err != nil {
		return nil, err
	}
	return o.Ops.ListPlayers(ctx, roomID)
}

func (o *faultyOps) InsertVote(ctx context.Context, v model.Vote) error {
	if err := o.f.check("InsertVote"); err != nil {
		return err
	}
	return o.Ops.InsertVote(ctx, v)
}

func (o *faultyOps) DeleteVotes(ctx context.Context, roomID string) error {
	if err := o.f.check("DeleteVotes"); err != nil {
		return err
	}
	return o.Ops.DeleteVotes(ctx, roomID)
}

func (o *faultyOps) ListVotes(ctx context.Context, roomID string) ([]model.Vote, error) {
	if err := o.f.check("ListVotes"); err != nil {
		return nil, err
	}
	return o.Ops.ListVotes(ctx, roomID)
}

func (o *faultyOps) ListWords(ctx context.Context, d model.Difficulty) ([]model.WordEntry, error) {
	if err := o.f.check("ListWords"); err != nil {
		return nil, err
	}
	return o.Ops.ListWords(ctx, d)
}
