package db

import (
	"bugfind/internal/model"
	"database/sql"
	"time"
)

type roomRow struct {
	ID               string         `db:"id"`
	Code             string         `db:"code"`
	Status           string         `db:"status"`
	Phase            sql.NullString `db:"phase"`
	MaxPlayers       int            `db:"max_players"`
	CurrentPlayers   int            `db:"current_players"`
	HostID           string         `db:"host_id"`
	Difficulty       sql.NullString `db:"difficulty"`
	DiscussionEndsAt sql.NullTime   `db:"discussion_ends_at"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r roomRow) model() model.Room {
	room := model.Room{
		ID:             r.ID,
		Code:           r.Code,
		Status:         model.Status(r.Status),
		Phase:          model.Phase(r.Phase.String),
		MaxPlayers:     r.MaxPlayers,
		CurrentPlayers: r.CurrentPlayers,
		HostID:         r.HostID,
		Difficulty:     model.Difficulty(r.Difficulty.String),
		CreatedAt:      r.CreatedAt,
	}
	if r.DiscussionEndsAt.Valid {
		t := r.DiscussionEndsAt.Time
		room.DiscussionEndsAt = &t
	}
	return room
}

type playerRow struct {
	ID        string         `db:"id"`
	RoomID    string         `db:"room_id"`
	Nickname  string         `db:"nickname"`
	Role      sql.NullString `db:"role"`
	Word      sql.NullString `db:"word"`
	CreatedAt time.Time      `db:"created_at"`
}

func (p playerRow) model() model.Player {
	return model.Player{
		ID:        p.ID,
		RoomID:    p.RoomID,
		Nickname:  p.Nickname,
		Role:      model.Role(p.Role.String),
		Word:      p.Word.String,
		CreatedAt: p.CreatedAt,
	}
}

type voteRow struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	VoterID   string    `db:"voter_id"`
	TargetID  string    `db:"target_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (v voteRow) model() model.Vote {
	return model.Vote(v)
}

type wordRow struct {
	ID          int64  `db:"id"`
	Word        string `db:"word"`
	Difficulty  string `db:"difficulty"`
	Description string `db:"description"`
}

func (w wordRow) model() model.WordEntry {
	return model.WordEntry{
		ID:          w.ID,
		Word:        w.Word,
		Difficulty:  model.Difficulty(w.Difficulty),
		Description: w.Description,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime maps the zero time to NULL so the column default applies.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
