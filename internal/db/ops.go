package db

import (
	"bugfind/internal/model"
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	roomColumns   = `id, code, status, phase, max_players, current_players, host_id, difficulty, discussion_ends_at, created_at`
	playerColumns = `id, room_id, nickname, role, word, created_at`
	voteColumns   = `id, room_id, voter_id, target_id, created_at`
)

// ops runs store.Ops against either the pool or a transaction. Inside a
// transaction room reads take a row lock.
type ops struct {
	q    sqlx.ExtContext
	lock bool
}

func (o ops) InsertRoom(ctx context.Context, r model.Room) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO rooms (id, code, status, phase, max_players, current_players, host_id, difficulty, discussion_ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
	`, r.ID, r.Code, string(r.Status), nullString(string(r.Phase)), r.MaxPlayers, r.CurrentPlayers,
		r.HostID, nullString(string(r.Difficulty)), nullTimePtr(r.DiscussionEndsAt), nullTime(r.CreatedAt))
	if err != nil {
		return wrap(fmt.Sprintf("inserting room %s", r.ID), err)
	}
	return nil
}

func (o ops) UpdateRoom(ctx context.Context, r model.Room) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE rooms
		SET code = $2, status = $3, phase = $4, max_players = $5, current_players = $6,
		    host_id = $7, difficulty = $8, discussion_ends_at = $9
		WHERE id = $1
	`, r.ID, r.Code, string(r.Status), nullString(string(r.Phase)), r.MaxPlayers, r.CurrentPlayers,
		r.HostID, nullString(string(r.Difficulty)), nullTimePtr(r.DiscussionEndsAt))
	return affected(fmt.Sprintf("updating room %s", r.ID), res, err)
}

func (o ops) GetRoom(ctx context.Context, id string) (model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	if o.lock {
		query += ` FOR UPDATE`
	}
	var row roomRow
	if err := sqlx.GetContext(ctx, o.q, &row, query, id); err != nil {
		return model.Room{}, wrap(fmt.Sprintf("getting room %s", id), err)
	}
	return row.model(), nil
}

func (o ops) GetRoomByCode(ctx context.Context, code string) (model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE upper(code) = upper($1)`
	if o.lock {
		query += ` FOR UPDATE`
	}
	var row roomRow
	if err := sqlx.GetContext(ctx, o.q, &row, query, code); err != nil {
		return model.Room{}, wrap(fmt.Sprintf("getting room by code %s", code), err)
	}
	return row.model(), nil
}

func (o ops) InsertPlayer(ctx context.Context, p model.Player) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO players (id, room_id, nickname, role, word, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, p.ID, p.RoomID, p.Nickname, nullString(string(p.Role)), nullString(p.Word), nullTime(p.CreatedAt))
	if err != nil {
		return wrap(fmt.Sprintf("inserting player %s", p.ID), err)
	}
	return nil
}

func (o ops) UpdatePlayer(ctx context.Context, p model.Player) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE players SET nickname = $2, role = $3, word = $4 WHERE id = $1
	`, p.ID, p.Nickname, nullString(string(p.Role)), nullString(p.Word))
	return affected(fmt.Sprintf("updating player %s", p.ID), res, err)
}

func (o ops) DeletePlayer(ctx context.Context, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	return affected(fmt.Sprintf("deleting player %s", id), res, err)
}

func (o ops) ListPlayers(ctx context.Context, roomID string) ([]model.Player, error) {
	var rows []playerRow
	err := sqlx.SelectContext(ctx, o.q, &rows, `
		SELECT `+playerColumns+` FROM players WHERE room_id = $1 ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, wrap(fmt.Sprintf("listing players of %s", roomID), err)
	}
	players := make([]model.Player, 0, len(rows))
	for _, r := range rows {
		players = append(players, r.model())
	}
	return players, nil
}

func (o ops) InsertVote(ctx context.Context, v model.Vote) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO votes (id, room_id, voter_id, target_id, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, v.ID, v.RoomID, v.VoterID, v.TargetID, nullTime(v.CreatedAt))
	if err != nil {
		return wrap(fmt.Sprintf("inserting vote by %s", v.VoterID), err)
	}
	return nil
}

func (o ops) DeleteVotes(ctx context.Context, roomID string) error {
	if _, err := o.q.ExecContext(ctx, `DELETE FROM votes WHERE room_id = $1`, roomID); err != nil {
		return wrap(fmt.Sprintf("deleting votes of %s", roomID), err)
	}
	return nil
}

func (o ops) ListVotes(ctx context.Context, roomID string) ([]model.Vote, error) {
	var rows []voteRow
	err := sqlx.SelectContext(ctx, o.q, &rows, `
		SELECT `+voteColumns+` FROM votes WHERE room_id = $1 ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, wrap(fmt.Sprintf("listing votes of %s", roomID), err)
	}
	votes := make([]model.Vote, 0, len(rows))
	for _, r := range rows {
		votes = append(votes, r.model())
	}
	return votes, nil
}

func (o ops) ListWords(ctx context.Context, d model.Difficulty) ([]model.WordEntry, error) {
	var rows []wordRow
	err := sqlx.SelectContext(ctx, o.q, &rows, `
		SELECT id, word, difficulty, COALESCE(description, '') AS description
		FROM words WHERE difficulty = $1 ORDER BY id
	`, string(d))
	if err != nil {
		return nil, wrap(fmt.Sprintf("listing %s words", d), err)
	}
	words := make([]model.WordEntry, 0, len(rows))
	for _, r := range rows {
		words = append(words, r.model())
	}
	return words, nil
}

func affected(action string, res sql.Result, err error) error {
	if err != nil {
		return wrap(action, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(action, err)
	}
	if n == 0 {
		return wrap(action, sql.ErrNoRows)
	}
	return nil
}
