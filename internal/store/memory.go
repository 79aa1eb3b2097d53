package store

import (
	"bugfind/internal/broadcast"
	"bugfind/internal/events"
	"bugfind/internal/model"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is a process-local Store. Each Atomically call works on a copy of
// the tables and swaps it in only when fn succeeds.
type Memory struct {
	mu     sync.Mutex
	state  *tables
	words  []model.WordEntry
	closed bool

	Broadcaster *broadcast.Broadcaster
}

type tables struct {
	rooms   map[string]model.Room
	players map[string]model.Player
	votes   map[string]model.Vote
}

func newTables() *tables {
	return &tables{
		rooms:   make(map[string]model.Room),
		players: make(map[string]model.Player),
		votes:   make(map[string]model.Vote),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		rooms:   make(map[string]model.Room, len(t.rooms)),
		players: make(map[string]model.Player, len(t.players)),
		votes:   make(map[string]model.Vote, len(t.votes)),
	}
	for k, v := range t.rooms {
		c.rooms[k] = v
	}
	for k, v := range t.players {
		c.players[k] = v
	}
	for k, v := range t.votes {
		c.votes[k] = v
	}
	return c
}

func NewMemory(words []model.WordEntry) *Memory {
	return &Memory{
		state:       newTables(),
		words:       words,
		Broadcaster: broadcast.NewBroadcaster(nil),
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Atomically(ctx context.Context, fn func(Ops) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	tx := &memTx{t: m.state.clone(), words: m.words}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.t
	// Published under the lock: a later Subscribe never sees this commit.
	for _, c := range tx.changes {
		m.Broadcaster.Publish(c)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, f events.Filter) (Subscription, error) {
	if err := ValidateFilter(f); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return m.Broadcaster.Subscribe(f), nil
}

func (m *Memory) read(ctx context.Context, fn func(*memTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return fn(&memTx{t: m.state, words: m.words})
}

func (m *Memory) write(ctx context.Context, fn func(Ops) error) error {
	return m.Atomically(ctx, fn)
}

func (m *Memory) InsertRoom(ctx context.Context, r model.Room) error {
	return m.write(ctx, func(tx Ops) error { return tx.InsertRoom(ctx, r) })
}

func (m *Memory) UpdateRoom(ctx context.Context, r model.Room) error {
	return m.write(ctx, func(tx Ops) error { return tx.UpdateRoom(ctx, r) })
}

func (m *Memory) GetRoom(ctx context.Context, id string) (room model.Room, err error) {
	err = m.read(ctx, func(tx *memTx) error {
		room, err = tx.GetRoom(ctx, id)
		return err
	})
	return room, err
}

func (m *Memory) GetRoomByCode(ctx context.Context, code string) (room model.Room, err error) {
	err = m.read(ctx, func(tx *memTx) error {
		room, err = tx.GetRoomByCode(ctx, code)
		return err
	})
	return room, err
}

func (m *Memory) InsertPlayer(ctx context.Context, p model.Player) error {
	return m.write(ctx, func(tx Ops) error { return tx.InsertPlayer(ctx, p) })
}

func (m *Memory) UpdatePlayer(ctx context.Context, p model.Player) error {
	return m.write(ctx, func(tx Ops) error { return tx.UpdatePlayer(ctx, p) })
}

func (m *Memory) DeletePlayer(ctx context.Context, id string) error {
	return m.write(ctx, func(tx Ops) error { return tx.DeletePlayer(ctx, id) })
}

func (m *Memory) ListPlayers(ctx context.Context, roomID string) (players []model.Player, err error) {
	err = m.read(ctx, func(tx *memTx) error {
		players, err = tx.ListPlayers(ctx, roomID)
		return err
	})
	return players, err
}

func (m *Memory) InsertVote(ctx context.Context, v model.Vote) error {
	return m.write(ctx, func(tx Ops) error { return tx.InsertVote(ctx, v) })
}

func (m *Memory) DeleteVotes(ctx context.Context, roomID string) error {
	return m.write(ctx, func(tx Ops) error { return tx.DeleteVotes(ctx, roomID) })
}

func (m *Memory) ListVotes(ctx context.Context, roomID string) (votes []model.Vote, err error) {
	err = m.read(ctx, func(tx *memTx) error {
		votes, err = tx.ListVotes(ctx, roomID)
		return err
	})
	return votes, err
}

func (m *Memory) ListWords(ctx context.Context, d model.Difficulty) (words []model.WordEntry, err error) {
	err = m.read(ctx, func(tx *memTx) error {
		words, err = tx.ListWords(ctx, d)
		return err
	})
	return words, err
}

// memTx enforces the same constraints the Postgres schema does.
type memTx struct {
	t       *tables
	words   []model.WordEntry
	changes []events.Change
}

func (tx *memTx) record(table events.Table, op events.Op, roomID, rowID string) {
	tx.changes = append(tx.changes, events.Change{Table: table, Op: op, RoomID: roomID, RowID: rowID})
}

func (tx *memTx) codeTaken(code, exceptID string) bool {
	for id, r := range tx.t.rooms {
		if id != exceptID && strings.EqualFold(r.Code, code) {
			return true
		}
	}
	return false
}

func (tx *memTx) InsertRoom(_ context.Context, r model.Room) error {
	if _, ok := tx.t.rooms[r.ID]; ok {
		return fmt.Errorf("inserting room %s: %w", r.ID, ErrConflict)
	}
	if tx.codeTaken(r.Code, "") {
		return fmt.Errorf("inserting room code %s: %w", r.Code, ErrConflict)
	}
	tx.t.rooms[r.ID] = r
	tx.record(events.TableRooms, events.OpInsert, r.ID, r.ID)
	return nil
}

func (tx *memTx) UpdateRoom(_ context.Context, r model.Room) error {
	if _, ok := tx.t.rooms[r.ID]; !ok {
		return fmt.Errorf("updating room %s: %w", r.ID, ErrNotFound)
	}
	if tx.codeTaken(r.Code, r.ID) {
		return fmt.Errorf("updating room code %s: %w", r.Code, ErrConflict)
	}
	tx.t.rooms[r.ID] = r
	tx.record(events.TableRooms, events.OpUpdate, r.ID, r.ID)
	return nil
}

func (tx *memTx) GetRoom(_ context.Context, id string) (model.Room, error) {
	r, ok := tx.t.rooms[id]
	if !ok {
		return model.Room{}, fmt.Errorf("getting room %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (tx *memTx) GetRoomByCode(_ context.Context, code string) (model.Room, error) {
	for _, r := range tx.t.rooms {
		if strings.EqualFold(r.Code, code) {
			return r, nil
		}
	}
	return model.Room{}, fmt.Errorf("getting room by code %s: %w", code, ErrNotFound)
}

func (tx *memTx) InsertPlayer(_ context.Context, p model.Player) error {
	if _, ok := tx.t.players[p.ID]; ok {
		return fmt.Errorf("inserting player %s: %w", p.ID, ErrConflict)
	}
	if _, ok := tx.t.rooms[p.RoomID]; !ok {
		return fmt.Errorf("inserting player into room %s: %w", p.RoomID, ErrConstraint)
	}
	if strings.TrimSpace(p.Nickname) == "" {
		return fmt.Errorf("inserting player with empty nickname: %w", ErrConstraint)
	}
	tx.t.players[p.ID] = p
	tx.record(events.TablePlayers, events.OpInsert, p.RoomID, p.ID)
	return nil
}

func (tx *memTx) UpdatePlayer(_ context.Context, p model.Player) error {
	if _, ok := tx.t.players[p.ID]; !ok {
		return fmt.Errorf("updating player %s: %w", p.ID, ErrNotFound)
	}
	tx.t.players[p.ID] = p
	tx.record(events.TablePlayers, events.OpUpdate, p.RoomID, p.ID)
	return nil
}

func (tx *memTx) DeletePlayer(_ context.Context, id string) error {
	p, ok := tx.t.players[id]
	if !ok {
		return fmt.Errorf("deleting player %s: %w", id, ErrNotFound)
	}
	delete(tx.t.players, id)
	tx.record(events.TablePlayers, events.OpDelete, p.RoomID, p.ID)
	return nil
}

func (tx *memTx) ListPlayers(_ context.Context, roomID string) ([]model.Player, error) {
	players := make([]model.Player, 0)
	for _, p := range tx.t.players {
		if p.RoomID == roomID {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].CreatedAt.Before(players[j].CreatedAt)
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (tx *memTx) InsertVote(_ context.Context, v model.Vote) error {
	if _, ok := tx.t.votes[v.ID]; ok {
		return fmt.Errorf("inserting vote %s: %w", v.ID, ErrConflict)
	}
	if _, ok := tx.t.rooms[v.RoomID]; !ok {
		return fmt.Errorf("inserting vote into room %s: %w", v.RoomID, ErrConstraint)
	}
	if v.VoterID == v.TargetID {
		return fmt.Errorf("inserting self vote: %w", ErrConstraint)
	}
	for _, existing := range tx.t.votes {
		if existing.RoomID == v.RoomID && existing.VoterID == v.VoterID {
			return fmt.Errorf("inserting second vote by %s: %w", v.VoterID, ErrConflict)
		}
	}
	tx.t.votes[v.ID] = v
	tx.record(events.TableVotes, events.OpInsert, v.RoomID, v.ID)
	return nil
}

func (tx *memTx) DeleteVotes(_ context.Context, roomID string) error {
	for id, v := range tx.t.votes {
		if v.RoomID == roomID {
			delete(tx.t.votes, id)
			tx.record(events.TableVotes, events.OpDelete, roomID, id)
		}
	}
	return nil
}

func (tx *memTx) ListVotes(_ context.Context, roomID string) ([]model.Vote, error) {
	votes := make([]model.Vote, 0)
	for _, v := range tx.t.votes {
		if v.RoomID == roomID {
			votes = append(votes, v)
		}
	}
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].CreatedAt.Before(votes[j].CreatedAt)
		}
		return votes[i].ID < votes[j].ID
	})
	return votes, nil
}

func (tx *memTx) ListWords(_ context.Context, d model.Difficulty) ([]model.WordEntry, error) {
	words := make([]model.WordEntry, 0)
	for _, w := range tx.words {
		if w.Difficulty == d {
			words = append(words, w)
		}
	}
	return words, nil
}
