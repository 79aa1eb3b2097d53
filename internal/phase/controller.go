package phase

import (
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/model"
	"bugfind/internal/store"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const tickInterval = time.Second

// Tick is one countdown observation.
type Tick struct {
	Remaining time.Duration
	// Stop is the halfway advisory.
	Stop bool
}

type Controller struct {
	store    store.Store
	log      zerolog.Logger
	clock    Clock
	duration time.Duration
}

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func NewController(st store.Store, duration time.Duration, opts ...Option) *Controller {
	c := &Controller{
		store:    st,
		log:      logger.New("phase"),
		clock:    RealClock(),
		duration: duration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Duration() time.Duration {
	return c.duration
}

func (c *Controller) Now() time.Time {
	return c.clock.Now()
}

// Deadline is the room's shared discussion deadline, or a full local
// countdown from observedAt when the row carries none.
func (c *Controller) Deadline(room model.Room, observedAt time.Time) time.Time {
	if room.DiscussionEndsAt != nil {
		return *room.DiscussionEndsAt
	}
	return observedAt.Add(c.duration)
}

func (c *Controller) TickAt(deadline, now time.Time) Tick {
	rem := Remaining(deadline, now)
	return Tick{Remaining: rem, Stop: StopVisible(rem, c.duration)}
}

// Remaining is the time left until deadline, never negative.
func Remaining(deadline, now time.Time) time.Duration {
	if rem := deadline.Sub(now); rem > 0 {
		return rem
	}
	return 0
}

// StopVisible reports whether the STOP advisory shows: at or past half of
// the discussion.
func StopVisible(remaining, duration time.Duration) bool {
	return remaining <= duration/2
}

// AdvanceToVoting moves a room in discussion to voting. Any other state is
// left untouched and reported as not advanced, so every client may call it
// when its countdown expires.
func (c *Controller) AdvanceToVoting(ctx context.Context, roomID string) (bool, error) {
	advanced := false
	err := c.store.Atomically(ctx, func(ops store.Ops) error {
		room, err := store.FindRoom(ctx, ops, roomID)
		if err != nil {
			return err
		}
		if !room.Playing() || room.Phase != model.PhaseDiscussion {
			return nil
		}
		room.Phase = model.PhaseVoting
		if err := ops.UpdateRoom(ctx, room); err != nil {
			return fmt.Errorf("updating room: %w", err)
		}
		advanced = true
		return nil
	})
	if err != nil {
		metrics.PhaseAdvances.WithLabelValues("error").Inc()
		c.log.Error().Err(err).Str("room", roomID).Msg("advancing to voting")
		return false, fmt.Errorf("advancing to voting: %w", err)
	}
	if advanced {
		metrics.PhaseAdvances.WithLabelValues("advanced").Inc()
		c.log.Info().Str("room", roomID).Msg("discussion over, voting open")
	} else {
		metrics.PhaseAdvances.WithLabelValues("noop").Inc()
	}
	return advanced, nil
}

// Run reports a Tick every second until deadline, then advances the room to
// voting. It returns early without writing when ctx is cancelled.
func (c *Controller) Run(ctx context.Context, roomID string, deadline time.Time, onTick func(Tick)) error {
	ticks, stop := c.clock.Ticker(tickInterval)
	defer stop()

	expired := func() bool {
		t := c.TickAt(deadline, c.clock.Now())
		if onTick != nil {
			onTick(t)
		}
		return t.Remaining == 0
	}

	for !expired() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	_, err := c.AdvanceToVoting(ctx, roomID)
	return err
}
