package round

import (
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/model"
	"bugfind/internal/store"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultDiscussion = 120 * time.Second

type Setup struct {
	store      store.Store
	log        zerolog.Logger
	now        func() time.Time
	discussion time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Setup)

func WithClock(now func() time.Time) Option {
	return func(s *Setup) { s.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Setup) { s.rng = rng }
}

func NewSetup(st store.Store, discussion time.Duration, opts ...Option) *Setup {
	if discussion <= 0 {
		discussion = DefaultDiscussion
	}
	s := &Setup{
		store:      st,
		log:        logger.New("round"),
		now:        time.Now,
		discussion: discussion,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Setup) Discussion() time.Duration {
	return s.discussion
}

// Start deals a new round in one transaction: roles and words for every
// player, a purge of leftover votes, then the room flip to discussion with a
// shared deadline. Nothing is written when any step fails.
func (s *Setup) Start(ctx context.Context, roomID, actorID string, difficulty model.Difficulty) (model.Room, error) {
	tier, err := model.ParseDifficulty(string(difficulty))
	if err != nil {
		return model.Room{}, err
	}

	var started model.Room
	err = s.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := store.FindRoom(ctx, ops, roomID)
		if err != nil {
			return err
		}
		if room.HostID != actorID {
			return model.ErrPermissionDenied
		}
		if room.Status != model.StatusWaiting {
			return fmt.Errorf("%w: room is %s", model.ErrWrongPhase, room.Status)
		}

		roster, err := ops.ListPlayers(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		if len(roster) < model.MinPlayers {
			return fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientPlayers, len(roster), model.MinPlayers)
		}

		entries, err := ops.ListWords(ctx, tier)
		if err != nil {
			return fmt.Errorf("listing words: %w", err)
		}

		s.rngMu.Lock()
		entry, err := PickWord(entries, s.rng)
		var assigned []model.Player
		if err == nil {
			assigned, err = Assign(roster, entry.Word, s.rng)
		}
		s.rngMu.Unlock()
		if err != nil {
			return fmt.Errorf("dealing %s round: %w", tier, err)
		}

		for _, p := range assigned {
			if err := ops.UpdatePlayer(ctx, p); err != nil {
				return fmt.Errorf("assigning player %s: %w", p.ID, err)
			}
		}
		if err := ops.DeleteVotes(ctx, roomID); err != nil {
			return fmt.Errorf("clearing stale votes: %w", err)
		}

		ends := s.now().Add(s.discussion)
		room.Status = model.StatusPlaying
		room.Phase = model.PhaseDiscussion
		room.Difficulty = tier
		room.DiscussionEndsAt = &ends
		room.CurrentPlayers = len(roster)
		if err := ops.UpdateRoom(ctx, room); err != nil {
			return fmt.Errorf("updating room: %w", err)
		}
		started = room
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("round start rejected")
		return model.Room{}, fmt.Errorf("starting round: %w", err)
	}

	metrics.RoundsStarted.WithLabelValues(string(tier)).Inc()
	s.log.Info().Str("room", roomID).Str("difficulty", string(tier)).Int("players", started.CurrentPlayers).Msg("round started")
	return started, nil
}

// Reset clears the round inside an open transaction: votes deleted, roles
// and words cleared, room back to waiting with no phase.
func Reset(ctx context.Context, ops store.Ops, room model.Room) (model.Room, error) {
	if err := ops.DeleteVotes(ctx, room.ID); err != nil {
		return model.Room{}, fmt.Errorf("deleting votes: %w", err)
	}
	roster, err := ops.ListPlayers(ctx, room.ID)
	if err != nil {
		return model.Room{}, fmt.Errorf("listing players: %w", err)
	}
	for _, p := range roster {
		if !p.Assigned() && p.Word == "" {
			continue
		}
		p.ClearRound()
		if err := ops.UpdatePlayer(ctx, p); err != nil {
			return model.Room{}, fmt.Errorf("clearing player %s: %w", p.ID, err)
		}
	}
	room.Status = model.StatusWaiting
	room.Phase = model.PhaseNone
	room.DiscussionEndsAt = nil
	room.CurrentPlayers = len(roster)
	if err := ops.UpdateRoom(ctx, room); err != nil {
		return model.Room{}, fmt.Errorf("updating room: %w", err)
	}
	return room, nil
}
