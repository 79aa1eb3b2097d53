package gamedata

import (
	"bugfind/internal/model"
	"bugfind/internal/phase"
	"bugfind/internal/players"
	"bugfind/internal/voting"
	"sort"
	"time"
)

type Screen string

const (
	ScreenNotMember  = Screen("not_member")
	ScreenLobby      = Screen("lobby")
	ScreenLoading    = Screen("loading")
	ScreenDiscussion = Screen("discussion")
	ScreenVoting     = Screen("voting")
	ScreenResults    = Screen("results")
)

// Snapshot is one consistent-enough read of a room's rows. Reads of the
// three tables are not atomic with each other, so Derive tolerates mixes
// such as a playing room whose players are not dealt yet.
type Snapshot struct {
	Room    model.Room
	Players []model.Player
	Votes   []model.Vote
}

// Countdown is the local timer state for a discussion.
type Countdown struct {
	Deadline time.Time
	Now      time.Time
	Duration time.Duration
}

type PlayerData struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	IsHost   bool   `json:"isHost"`
	IsMe     bool   `json:"isMe"`
	HasVoted bool   `json:"hasVoted,omitempty"`
	Votes    int    `json:"votes,omitempty"`
	Accused  bool   `json:"accused,omitempty"`
}

type Results struct {
	Outcome           voting.Outcome `json:"outcome"`
	OddOneOutID       string         `json:"oddOneOutId,omitempty"`
	OddOneOutNickname string         `json:"oddOneOutNickname,omitempty"`
	Word              string         `json:"word,omitempty"`
	MaxVotes          int            `json:"maxVotes"`
	Accused           []string       `json:"accused"`
}

// GameData is everything the local UI renders for one room.
type GameData struct {
	Screen      Screen           `json:"screen"`
	RoomID      string           `json:"roomId"`
	RoomCode    string           `json:"roomCode"`
	Status      model.Status     `json:"status"`
	Phase       model.Phase      `json:"phase,omitempty"`
	Difficulty  model.Difficulty `json:"difficulty,omitempty"`
	MaxPlayers  int              `json:"maxPlayers"`
	PlayerCount int              `json:"playerCount"`
	Player      *PlayerData      `json:"player,omitempty"`
	Players     []PlayerData     `json:"players"`
	IsHost      bool             `json:"isHost"`
	CanStart    bool             `json:"canStart"`
	Role        model.Role       `json:"role,omitempty"`
	Word        string           `json:"word,omitempty"`
	TimeLeft    int              `json:"timeLeft,omitempty"`
	ShowStop    bool             `json:"showStop,omitempty"`
	HasVoted    bool             `json:"hasVoted,omitempty"`
	VotesCast   int              `json:"votesCast,omitempty"`
	Targets     []PlayerData     `json:"targets,omitempty"`
	Results     *Results         `json:"results,omitempty"`
}

// Derive is the single reducer from a snapshot to what self sees. It reads
// nothing but its arguments, so re-deriving after every change is safe in any
// delivery order.
func Derive(snap Snapshot, self string, cd *Countdown) GameData {
	roster := players.NewRoster(snap.Players)
	room := snap.Room
	data := GameData{
		RoomID:      room.ID,
		RoomCode:    room.Code,
		Status:      room.Status,
		Phase:       room.Phase,
		Difficulty:  room.Difficulty,
		MaxPlayers:  room.MaxPlayers,
		PlayerCount: roster.Len(),
	}

	me, ok := roster.Me(self)
	if !ok {
		data.Screen = ScreenNotMember
		return data
	}

	voted := voterSet(roster, snap.Votes)
	data.IsHost = room.HostID == me.ID
	data.Players = playerList(roster.List(), room.HostID, me.ID, voted)
	for i := range data.Players {
		if data.Players[i].IsMe {
			data.Player = &data.Players[i]
		}
	}

	if !room.Playing() {
		data.Screen = ScreenLobby
		data.CanStart = data.IsHost && room.Status == model.StatusWaiting && roster.Len() >= model.MinPlayers
		return data
	}

	if !me.Assigned() || (room.Phase != model.PhaseDiscussion && room.Phase != model.PhaseVoting) {
		data.Screen = ScreenLoading
		return data
	}
	data.Role = me.Role
	data.Word = me.Word

	if room.Phase == model.PhaseDiscussion {
		data.Screen = ScreenDiscussion
		if cd != nil {
			rem := phase.Remaining(cd.Deadline, cd.Now)
			data.TimeLeft = int((rem + time.Second - 1) / time.Second)
			data.ShowStop = phase.StopVisible(rem, cd.Duration)
		}
		return data
	}

	data.HasVoted = voted[me.ID]
	data.VotesCast = len(voted)
	if !voting.Complete(roster, snap.Votes) {
		data.Screen = ScreenVoting
		if !data.HasVoted {
			data.Targets = playerList(roster.Others(me.ID), room.HostID, me.ID, voted)
		}
		return data
	}

	data.Screen = ScreenResults
	r := results(roster, snap.Votes)
	data.Results = r.Results
	for i := range data.Players {
		p := &data.Players[i]
		p.Votes = r.tally[p.ID]
		p.Accused = r.accused[p.ID]
	}
	return data
}

func voterSet(roster players.Roster, votes []model.Vote) map[string]bool {
	voted := make(map[string]bool, len(votes))
	for _, v := range votes {
		if roster.Contains(v.VoterID) {
			voted[v.VoterID] = true
		}
	}
	return voted
}

func playerList(ps []model.Player, hostID, self string, voted map[string]bool) []PlayerData {
	out := make([]PlayerData, 0, len(ps))
	for _, p := range ps {
		out = append(out, PlayerData{
			ID:       p.ID,
			Nickname: p.Nickname,
			IsHost:   p.ID == hostID,
			IsMe:     p.ID == self,
			HasVoted: voted[p.ID],
		})
	}
	return out
}

type resolved struct {
	*Results
	tally   map[string]int
	accused map[string]bool
}

func results(roster players.Roster, votes []model.Vote) resolved {
	res := voting.Resolve(roster, votes)
	accused := res.Tally.Accused.Slice()
	sort.Strings(accused)

	out := resolved{
		Results: &Results{
			Outcome:           res.Outcome,
			OddOneOutID:       res.OddOneOut.ID,
			OddOneOutNickname: res.OddOneOut.Nickname,
			MaxVotes:          res.Tally.Max,
			Accused:           accused,
		},
		tally:   res.Tally.Counts,
		accused: make(map[string]bool, len(accused)),
	}
	for _, id := range accused {
		out.accused[id] = true
	}
	for _, p := range roster.List() {
		if p.Role == model.RoleEngineer {
			out.Word = p.Word
			break
		}
	}
	return out
}
