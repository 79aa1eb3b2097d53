package voting

import (
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/model"
	"bugfind/internal/players"
	"bugfind/internal/round"
	"bugfind/internal/store"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		log:   logger.New("voting"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Cast records voterID's accusation of targetID. A second vote by the same
// voter in the round is rejected with model.ErrDuplicateVote; the store's
// uniqueness constraint backs the check.
func (s *Service) Cast(ctx context.Context, roomID, voterID, targetID string) (model.Vote, error) {
	if targetID == "" {
		return model.Vote{}, model.Validation("vote target is required")
	}
	if voterID == targetID {
		return model.Vote{}, model.Validation("players cannot vote for themselves")
	}

	var vote model.Vote
	err := s.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := store.FindRoom(ctx, ops, roomID)
		if err != nil {
			return err
		}
		if !room.Playing() || room.Phase != model.PhaseVoting {
			return fmt.Errorf("%w: voting is closed", model.ErrWrongPhase)
		}

		ps, err := ops.ListPlayers(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		roster := players.NewRoster(ps)
		if !roster.Contains(voterID) {
			return fmt.Errorf("%w: %s", model.ErrNotMember, voterID)
		}
		if !roster.Contains(targetID) {
			return model.Validation("vote target %s is not in the room", targetID)
		}

		vote = model.Vote{
			ID:        s.newID(),
			RoomID:    roomID,
			VoterID:   voterID,
			TargetID:  targetID,
			CreatedAt: s.now(),
		}
		switch err := ops.InsertVote(ctx, vote); {
		case errors.Is(err, store.ErrConflict):
			return model.ErrDuplicateVote
		case errors.Is(err, store.ErrConstraint):
			return model.Validation("vote rejected by store: %v", err)
		case err != nil:
			return fmt.Errorf("inserting vote: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Str("voter", voterID).Msg("vote rejected")
		return model.Vote{}, fmt.Errorf("casting vote: %w", err)
	}

	metrics.VotesCast.Inc()
	s.log.Info().Str("room", roomID).Str("voter", voterID).Msg("vote cast")
	return vote, nil
}

// Restart returns the room to the lobby with the same roster. Any member may
// restart, and restarting a waiting room changes nothing.
func (s *Service) Restart(ctx context.Context, roomID, actorID string) (model.Room, error) {
	var restarted model.Room
	err := s.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := store.FindRoom(ctx, ops, roomID)
		if err != nil {
			return err
		}
		ps, err := ops.ListPlayers(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		if !players.NewRoster(ps).Contains(actorID) {
			return fmt.Errorf("%w: %s", model.ErrNotMember, actorID)
		}
		if room.Status == model.StatusWaiting {
			restarted = room
			return nil
		}
		restarted, err = round.Reset(ctx, ops, room)
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("restart failed")
		return model.Room{}, fmt.Errorf("restarting round: %w", err)
	}
	s.log.Info().Str("room", roomID).Str("by", actorID).Msg("round restarted")
	return restarted, nil
}
