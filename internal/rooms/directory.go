package rooms

import (
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/model"
	"bugfind/internal/round"
	"bugfind/internal/store"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	codeAttempts      = 10
	maxNicknameLength = 24
)

var errCodeTaken = errors.New("room code taken")

// Directory creates, joins and leaves rooms. Every operation is a single
// store transaction and current_players is always recounted from the roster.
type Directory struct {
	store      store.Store
	log        zerolog.Logger
	maxPlayers int
	now        func() time.Time
	newID      func() string
	newCode    func() (string, error)
}

type Option func(*Directory)

func WithMaxPlayers(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.maxPlayers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(d *Directory) { d.newCode = gen }
}

func NewDirectory(st store.Store, opts ...Option) *Directory {
	d := &Directory{
		store:      st,
		log:        logger.New("rooms"),
		maxPlayers: model.DefaultMaxPlayers,
		now:        time.Now,
		newID:      uuid.NewString,
		newCode:    GenerateCode,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func validNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", model.Validation("nickname is required")
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		return "", model.Validation("nickname longer than %d characters", maxNicknameLength)
	}
	return nickname, nil
}

// Create opens a waiting room hosted by playerID and seats the host in it.
func (d *Directory) Create(ctx context.Context, playerID, nickname string) (model.Room, model.Player, error) {
	nickname, err := validNickname(nickname)
	if err != nil {
		return model.Room{}, model.Player{}, err
	}
	if playerID == "" {
		return model.Room{}, model.Player{}, model.Validation("player id is required")
	}

	// Try up to 10 times to find an unused code
	for range codeAttempts {
		code, err := d.newCode()
		if err != nil {
			return model.Room{}, model.Player{}, fmt.Errorf("generating room code: %w", err)
		}

		now := d.now()
		room := model.Room{
			ID:             d.newID(),
			Code:           code,
			Status:         model.StatusWaiting,
			Phase:          model.PhaseNone,
			MaxPlayers:     d.maxPlayers,
			CurrentPlayers: 1,
			HostID:         playerID,
			CreatedAt:      now,
		}
		player := model.Player{
			ID:        playerID,
			RoomID:    room.ID,
			Nickname:  nickname,
			CreatedAt: now,
		}

		err = d.store.Atomically(ctx, func(ops store.Ops) error {
			if err := ops.InsertRoom(ctx, room); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return errCodeTaken
				}
				return fmt.Errorf("inserting room: %w", err)
			}
			if err := ops.InsertPlayer(ctx, player); err != nil {
				return fmt.Errorf("inserting host: %w", err)
			}
			return nil
		})
		if errors.Is(err, errCodeTaken) {
			d.log.Debug().Str("code", code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			metrics.StoreErrors.WithLabelValues("create_room").Inc()
			d.log.Error().Err(err).Msg("creating room")
			return model.Room{}, model.Player{}, fmt.Errorf("creating room: %w", err)
		}

		metrics.RoomsCreated.Inc()
		d.log.Info().Str("room", room.ID).Str("code", code).Str("host", playerID).Msg("room created")
		return room, player, nil
	}
	return model.Room{}, model.Player{}, fmt.Errorf("failed to generate unique room code after %d attempts", codeAttempts)
}

// Join seats playerID in the room with the given code. Capacity is checked
// against the live roster inside the same transaction as the insert.
func (d *Directory) Join(ctx context.Context, code, playerID, nickname string) (model.Room, model.Player, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Room{}, model.Player{}, model.Validation("room code is required")
	}
	nickname, err := validNickname(nickname)
	if err != nil {
		return model.Room{}, model.Player{}, err
	}
	if playerID == "" {
		return model.Room{}, model.Player{}, model.Validation("player id is required")
	}

	var (
		joined model.Room
		player model.Player
	)
	err = d.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := ops.GetRoomByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", model.ErrRoomNotFound, code)
		}
		if err != nil {
			return fmt.Errorf("looking up room: %w", err)
		}

		roster, err := ops.ListPlayers(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		if len(roster) >= room.MaxPlayers {
			return fmt.Errorf("%w: %d of %d seats taken", model.ErrRoomFull, len(roster), room.MaxPlayers)
		}

		player = model.Player{
			ID:        playerID,
			RoomID:    room.ID,
			Nickname:  nickname,
			CreatedAt: d.now(),
		}
		if err := ops.InsertPlayer(ctx, player); err != nil {
			return fmt.Errorf("inserting player: %w", err)
		}
		room.CurrentPlayers = len(roster) + 1
		if err := ops.UpdateRoom(ctx, room); err != nil {
			return fmt.Errorf("updating occupancy: %w", err)
		}
		joined = room
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Str("code", code).Msg("join rejected")
		return model.Room{}, model.Player{}, fmt.Errorf("joining room: %w", err)
	}

	metrics.Joins.Inc()
	d.log.Info().Str("room", joined.ID).Str("player", playerID).Int("players", joined.CurrentPlayers).Msg("player joined")
	return joined, player, nil
}

// Leave removes playerID from the room. A running round that drops below
// two players is abandoned, and a departing host hands over to the
// earliest-joined remaining player.
func (d *Directory) Leave(ctx context.Context, roomID, playerID string) (model.Room, error) {
	var (
		left      model.Room
		abandoned bool
	)
	err := d.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := store.FindRoom(ctx, ops, roomID)
		if err != nil {
			return err
		}
		members, err := ops.ListPlayers(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing players: %w", err)
		}
		roster := make([]model.Player, 0, len(members))
		for _, p := range members {
			if p.ID != playerID {
				roster = append(roster, p)
			}
		}
		if len(roster) == len(members) {
			return fmt.Errorf("%w: %s", model.ErrNotMember, playerID)
		}
		if err := ops.DeletePlayer(ctx, playerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", model.ErrNotMember, playerID)
			}
			return fmt.Errorf("deleting player: %w", err)
		}
		if room.HostID == playerID && len(roster) > 0 {
			room.HostID = roster[0].ID
		}

		if room.Playing() && len(roster) < model.MinActivePlayers {
			abandoned = true
			room, err = round.Reset(ctx, ops, room)
			if err != nil {
				return fmt.Errorf("abandoning round: %w", err)
			}
		} else {
			room.CurrentPlayers = len(roster)
			if err := ops.UpdateRoom(ctx, room); err != nil {
				return fmt.Errorf("updating occupancy: %w", err)
			}
		}
		left = room
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Str("room", roomID).Str("player", playerID).Msg("leave failed")
		return model.Room{}, fmt.Errorf("leaving room: %w", err)
	}

	metrics.Leaves.WithLabelValues(fmt.Sprint(abandoned)).Inc()
	d.log.Info().Str("room", roomID).Str("player", playerID).Bool("abandoned", abandoned).Msg("player left")
	return left, nil
}

// Lookup resolves a join code without joining.
func (d *Directory) Lookup(ctx context.Context, code string) (model.Room, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Room{}, model.Validation("room code is required")
	}
	room, err := d.store.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return model.Room{}, fmt.Errorf("%w: %s", model.ErrRoomNotFound, code)
	}
	if err != nil {
		return model.Room{}, fmt.Errorf("looking up room: %w", err)
	}
	return room, nil
}
