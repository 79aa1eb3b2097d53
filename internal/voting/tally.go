package voting

import (
	"bugfind/internal/model"
	"bugfind/internal/players"

	"github.com/hashicorp/go-set/v3"
)

type Outcome string

const (
	// OutcomeUndecided covers an empty tally and rounds without an odd one out.
	OutcomeUndecided        Outcome = "undecided"
	OutcomeEngineersWin     Outcome = "engineers_win"
	OutcomeOddOneOutEscapes Outcome = "odd_one_out_escapes"
)

// Tally is the per-player vote count restricted to the current roster.
type Tally struct {
	Counts  map[string]int
	Max     int
	Accused *set.Set[string]
}

// Count tallies votes whose voter and target are both still in the roster.
// The accusation set is every player sharing the maximum count, ties
// included. With no counted votes it is empty.
func Count(roster players.Roster, votes []model.Vote) Tally {
	t := Tally{Counts: make(map[string]int), Accused: set.New[string](0)}
	for _, v := range votes {
		if !roster.Contains(v.VoterID) || !roster.Contains(v.TargetID) {
			continue
		}
		t.Counts[v.TargetID]++
	}
	for _, n := range t.Counts {
		if n > t.Max {
			t.Max = n
		}
	}
	if t.Max == 0 {
		return t
	}
	for id, n := range t.Counts {
		if n == t.Max {
			t.Accused.Insert(id)
		}
	}
	return t
}

// Cast counts the distinct roster members that have voted.
func Cast(roster players.Roster, votes []model.Vote) int {
	voters := set.New[string](len(votes))
	for _, v := range votes {
		if roster.Contains(v.VoterID) {
			voters.Insert(v.VoterID)
		}
	}
	return voters.Size()
}

// Complete reports whether every current roster member has voted. A departed
// player's vote neither counts nor blocks.
func Complete(roster players.Roster, votes []model.Vote) bool {
	return roster.Len() > 0 && Cast(roster, votes) == roster.Len()
}

// Decide applies the win condition: the engineers win when the odd one out
// is among the accused.
func Decide(oddOneOutID string, accused *set.Set[string]) Outcome {
	if oddOneOutID == "" || accused == nil || accused.Empty() {
		return OutcomeUndecided
	}
	if accused.Contains(oddOneOutID) {
		return OutcomeEngineersWin
	}
	return OutcomeOddOneOutEscapes
}

type Result struct {
	Tally     Tally
	OddOneOut model.Player
	Outcome   Outcome
}

// Resolve tallies the round and decides its outcome.
func Resolve(roster players.Roster, votes []model.Vote) Result {
	t := Count(roster, votes)
	odd, _ := roster.OddOneOut()
	return Result{
		Tally:     t,
		OddOneOut: odd,
		Outcome:   Decide(odd.ID, t.Accused),
	}
}
