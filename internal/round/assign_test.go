package round

import (
	"bugfind/internal/model"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(n int) []model.Player {
	players := make([]model.Player, n)
	for i := range players {
		players[i] = model.Player{ID: fmt.Sprintf("p%d", i), Nickname: fmt.Sprintf("n%d", i)}
	}
	return players
}

func TestAssign_ExactlyOneOddOneOut(t *testing.T) {
	for n := model.MinPlayers; n <= model.DefaultMaxPlayers; n++ {
		for seed := uint64(0); seed < 50; seed++ {
			rng := rand.New(rand.NewPCG(seed, uint64(n)))
			got, err := Assign(roster(n), "Docker", rng)
			require.NoError(t, err)
			require.Len(t, got, n)

			odd, engineers := 0, 0
			for _, p := range got {
				switch p.Role {
				case model.RoleOddOneOut:
					odd++
					assert.Equal(t, model.OddOneOutWord, p.Word)
				case model.RoleEngineer:
					engineers++
					assert.Equal(t, "Docker", p.Word)
				default:
					t.Fatalf("player %s left without a role", p.ID)
				}
			}
			assert.Equal(t, 1, odd, "n=%d seed=%d", n, seed)
			assert.Equal(t, n-1, engineers, "n=%d seed=%d", n, seed)
		}
	}
}

func TestAssign_EveryPlayerCanBeChosen(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	chosen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		got, err := Assign(roster(4), "Git", rng)
		require.NoError(t, err)
		for _, p := range got {
			if p.Role == model.RoleOddOneOut {
				chosen[p.ID] = true
			}
		}
	}
	assert.Len(t, chosen, 4)
}

func TestAssign_DoesNotMutateInput(t *testing.T) {
	in := roster(3)
	_, err := Assign(in, "CSS", rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	for _, p := range in {
		assert.Equal(t, model.RoleNone, p.Role)
		assert.Empty(t, p.Word)
	}
}

func TestAssign_TooFewPlayers(t *testing.T) {
	_, err := Assign(roster(2), "CSS", rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, model.ErrInsufficientPlayers)
}

func TestPickWord(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	_, err := PickWord(nil, rng)
	assert.ErrorIs(t, err, model.ErrNoWordsAvailable)

	_, err = PickWord([]model.WordEntry{{Word: model.OddOneOutWord}, {Word: "  "}}, rng)
	assert.ErrorIs(t, err, model.ErrNoWordsAvailable)

	for i := 0; i < 20; i++ {
		got, err := PickWord([]model.WordEntry{{Word: model.OddOneOutWord}, {Word: "Loop"}}, rng)
		require.NoError(t, err)
		assert.Equal(t, "Loop", got.Word)
	}
}
