package model

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Phase is only meaningful while a room is playing.
type Phase string

const (
	PhaseNone       Phase = ""
	PhaseDiscussion Phase = "discussion"
	PhaseVoting     Phase = "voting"
)

type Role string

const (
	RoleNone      Role = ""
	RoleEngineer  Role = "engineer"
	RoleOddOneOut Role = "bug"
)

type Difficulty string

const (
	DifficultyNone         Difficulty = ""
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ParseDifficulty maps an empty tier to beginner.
func ParseDifficulty(s string) (Difficulty, error) {
	if s == "" {
		return DifficultyBeginner, nil
	}
	d := Difficulty(s)
	if !d.Valid() {
		return DifficultyNone, Validation("unknown difficulty %q", s)
	}
	return d, nil
}

const (
	DefaultMaxPlayers = 8
	MinPlayers        = 3
	// MinActivePlayers is the head count below which a running round is abandoned.
	MinActivePlayers = 2
	CodeLength       = 6

	// OddOneOutWord is handed to the odd one out instead of the shared word.
	OddOneOutWord = "[bug]"
)

type Room struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Status           Status     `json:"status"`
	Phase            Phase      `json:"phase"`
	MaxPlayers       int        `json:"maxPlayers"`
	CurrentPlayers   int        `json:"currentPlayers"`
	HostID           string     `json:"hostId"`
	Difficulty       Difficulty `json:"difficulty"`
	DiscussionEndsAt *time.Time `json:"discussionEndsAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (r Room) Playing() bool {
	return r.Status == StatusPlaying
}

func (r Room) Full() bool {
	return r.CurrentPlayers >= r.MaxPlayers
}

// Player ids are the session id of the participant that created the row.
type Player struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Nickname  string    `json:"nickname"`
	Role      Role      `json:"role"`
	Word      string    `json:"word,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Player) Assigned() bool {
	return p.Role != RoleNone
}

// ClearRound drops the per-round secret.
func (p *Player) ClearRound() {
	p.Role = RoleNone
	p.Word = ""
}

type Vote struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	VoterID   string    `json:"voterId"`
	TargetID  string    `json:"targetId"`
	CreatedAt time.Time `json:"createdAt"`
}

type WordEntry struct {
	ID          int64      `json:"id"`
	Word        string     `json:"word"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description,omitempty"`
}
