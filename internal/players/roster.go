package players

import (
	"bugfind/internal/model"
	"sort"

	"github.com/hashicorp/go-set/v3"
)

// Roster is an immutable snapshot of a room's players in join order.
type Roster struct {
	players []model.Player
	ids     *set.Set[string]
}

func NewRoster(ps []model.Player) Roster {
	players := make([]model.Player, len(ps))
	copy(players, ps)
	sort.SliceStable(players, func(i, j int) bool {
		if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].CreatedAt.Before(players[j].CreatedAt)
		}
		return players[i].ID < players[j].ID
	})
	ids := set.New[string](len(players))
	for _, p := range players {
		ids.Insert(p.ID)
	}
	return Roster{players: players, ids: ids}
}

func (r Roster) Len() int {
	return len(r.players)
}

// List returns a copy of the players in join order.
func (r Roster) List() []model.Player {
	out := make([]model.Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r Roster) Contains(id string) bool {
	return r.ids != nil && r.ids.Contains(id)
}

// IDs returns the member ids as a fresh set.
func (r Roster) IDs() *set.Set[string] {
	if r.ids == nil {
		return set.New[string](0)
	}
	return r.ids.Copy()
}

func (r Roster) Get(id string) (model.Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return model.Player{}, false
}

// Me resolves the local participant. ok is false once another client's
// action removed the player.
func (r Roster) Me(sessionID string) (model.Player, bool) {
	if sessionID == "" {
		return model.Player{}, false
	}
	return r.Get(sessionID)
}

// AllAssigned reports whether every player holds a role, which is how a
// fully dealt round looks.
func (r Roster) AllAssigned() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.Assigned() {
			return false
		}
	}
	return true
}

func (r Roster) OddOneOut() (model.Player, bool) {
	for _, p := range r.players {
		if p.Role == model.RoleOddOneOut {
			return p, true
		}
	}
	return model.Player{}, false
}

// Others lists everyone except id, in join order. These are the players id
// may vote for.
func (r Roster) Others(id string) []model.Player {
	out := make([]model.Player, 0, len(r.players))
	for _, p := range r.players {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
