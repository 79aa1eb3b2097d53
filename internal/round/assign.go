package round

import (
	"bugfind/internal/model"
	"fmt"
	"math/rand/v2"
	"strings"
)

// PickWord chooses uniformly among usable entries. Blank entries and entries
// spelling the odd-one-out sentinel are never chosen.
func PickWord(entries []model.WordEntry, rng *rand.Rand) (model.WordEntry, error) {
	usable := make([]model.WordEntry, 0, len(entries))
	for _, e := range entries {
		w := strings.TrimSpace(e.Word)
		if w == "" || w == model.OddOneOutWord {
			continue
		}
		usable = append(usable, e)
	}
	if len(usable) == 0 {
		return model.WordEntry{}, model.ErrNoWordsAvailable
	}
	return usable[rng.IntN(len(usable))], nil
}

// Assign returns a copy of roster where exactly one player, chosen uniformly,
// is the odd one out holding the sentinel word and everyone else is an
// engineer holding word.
func Assign(roster []model.Player, word string, rng *rand.Rand) ([]model.Player, error) {
	if len(roster) < model.MinPlayers {
		return nil, fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientPlayers, len(roster), model.MinPlayers)
	}
	odd := rng.IntN(len(roster))
	assigned := make([]model.Player, len(roster))
	for i, p := range roster {
		if i == odd {
			p.Role = model.RoleOddOneOut
			p.Word = model.OddOneOutWord
		} else {
			p.Role = model.RoleEngineer
			p.Word = word
		}
		assigned[i] = p
	}
	return assigned, nil
}
