package watch

import (
	"bugfind/internal/events"
	"bugfind/internal/gamedata"
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"bugfind/internal/model"
	"bugfind/internal/phase"
	"bugfind/internal/players"
	"bugfind/internal/store"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const eventBuffer = 32

// Watcher keeps one local view of a room current. Every change notification
// for the room triggers a full refetch and a fresh Derive; events are handled
// one at a time on the watcher's own goroutine.
type Watcher struct {
	store  store.Store
	ctl    *phase.Controller
	log    zerolog.Logger
	roomID string
	self   string
	onView func(gamedata.GameData)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	changes chan events.Change
	ticks   chan phase.Tick

	mu   sync.Mutex
	subs map[events.Table]store.Subscription
	view gamedata.GameData

	// owned by the event loop
	snap       gamedata.Snapshot
	haveSnap   bool
	cdKey      string
	cdDeadline time.Time
	cdCancel   context.CancelFunc
}

// Open subscribes to the room and player rows of roomID, derives the first
// view synchronously and starts the event loop. onView is called with every
// new view from the loop goroutine and must not call Close.
func Open(ctx context.Context, st store.Store, ctl *phase.Controller, roomID, self string, onView func(gamedata.GameData)) (*Watcher, error) {
	wctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		store:   st,
		ctl:     ctl,
		log:     logger.New("watch").With().Str("room", roomID).Logger(),
		roomID:  roomID,
		self:    self,
		onView:  onView,
		ctx:     wctx,
		cancel:  cancel,
		changes: make(chan events.Change, eventBuffer),
		ticks:   make(chan phase.Tick, 1),
		subs:    make(map[events.Table]store.Subscription),
	}

	for _, table := range []events.Table{events.TableRooms, events.TablePlayers} {
		if err := w.subscribe(ctx, table); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.refresh(ctx); err != nil {
		w.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	w.log.Debug().Str("self", self).Msg("watching room")
	return w, nil
}

func (w *Watcher) RoomID() string {
	return w.roomID
}

// View returns the latest derived view.
func (w *Watcher) View() gamedata.GameData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Close releases every subscription and stops the loop and countdown. No
// onView call happens after Close returns.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.cancel()
		w.mu.Lock()
		for table, sub := range w.subs {
			sub.Close()
			delete(w.subs, table)
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.log.Debug().Msg("stopped watching room")
	})
}

func (w *Watcher) subscribe(ctx context.Context, table events.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return nil
	}
	if _, ok := w.subs[table]; ok {
		return nil
	}
	sub, err := w.store.Subscribe(ctx, events.Filter{Table: table, RoomID: w.roomID})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", table, err)
	}
	w.subs[table] = sub

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for c := range sub.Changes() {
			select {
			case w.changes <- c:
			case <-w.ctx.Done():
				return
			}
		}
	}()
	w.log.Debug().Str("table", string(table)).Msg("subscribed")
	return nil
}

func (w *Watcher) unsubscribe(table events.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sub, ok := w.subs[table]; ok {
		sub.Close()
		delete(w.subs, table)
		w.log.Debug().Str("table", string(table)).Msg("unsubscribed")
	}
}

// Subscribed reports whether the watcher currently listens to table.
func (w *Watcher) Subscribed(table events.Table) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.subs[table]
	return ok
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer w.stopCountdown()
	for {
		select {
		case <-w.ctx.Done():
			return
		case c := <-w.changes:
			metrics.ChangeEvents.WithLabelValues(string(c.Table), "received").Inc()
			w.drain()
			if err := w.refresh(w.ctx); err != nil && w.ctx.Err() == nil {
				w.log.Error().Err(err).Msg("refreshing room view")
			}
		case <-w.ticks:
			if w.haveSnap {
				w.publish(w.derive())
			}
		}
	}
}

// drain folds queued notifications into the refresh about to run.
func (w *Watcher) drain() {
	for {
		select {
		case c := <-w.changes:
			metrics.ChangeEvents.WithLabelValues(string(c.Table), "coalesced").Inc()
		default:
			return
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) error {
	room, err := w.store.GetRoom(ctx, w.roomID)
	if errors.Is(err, store.ErrNotFound) {
		if w.ctx.Err() != nil {
			return nil
		}
		w.publish(gamedata.GameData{Screen: gamedata.ScreenNotMember, RoomID: w.roomID})
		return fmt.Errorf("%w: %s", model.ErrRoomNotFound, w.roomID)
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_room").Inc()
		return fmt.Errorf("fetching room: %w", err)
	}
	ps, err := w.store.ListPlayers(ctx, w.roomID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list_players").Inc()
		return fmt.Errorf("fetching players: %w", err)
	}

	var votes []model.Vote
	if room.Playing() && room.Phase == model.PhaseVoting {
		if err := w.subscribe(ctx, events.TableVotes); err != nil {
			return err
		}
		votes, err = w.store.ListVotes(ctx, w.roomID)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("list_votes").Inc()
			return fmt.Errorf("fetching votes: %w", err)
		}
	} else {
		w.unsubscribe(events.TableVotes)
	}

	if w.ctx.Err() != nil {
		metrics.ChangeEvents.WithLabelValues("refresh", "discarded").Inc()
		return nil
	}

	w.snap = gamedata.Snapshot{Room: room, Players: ps, Votes: votes}
	w.haveSnap = true
	w.syncCountdown(room, players.NewRoster(ps))
	w.publish(w.derive())
	return nil
}

func (w *Watcher) derive() gamedata.GameData {
	var cd *gamedata.Countdown
	if w.cdKey != "" {
		cd = &gamedata.Countdown{Deadline: w.cdDeadline, Now: w.ctl.Now(), Duration: w.ctl.Duration()}
	}
	return gamedata.Derive(w.snap, w.self, cd)
}

func (w *Watcher) publish(v gamedata.GameData) {
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	if w.onView != nil {
		w.onView(v)
	}
}

// syncCountdown runs exactly one countdown per discussion this client takes
// part in. A room without a shared deadline counts down from the moment the
// discussion was first observed.
func (w *Watcher) syncCountdown(room model.Room, roster players.Roster) {
	me, ok := roster.Me(w.self)
	if !room.Playing() || room.Phase != model.PhaseDiscussion || !ok || !me.Assigned() {
		w.stopCountdown()
		return
	}

	key := "local"
	if room.DiscussionEndsAt != nil {
		key = room.DiscussionEndsAt.UTC().Format(time.RFC3339Nano)
	}
	if key == w.cdKey {
		return
	}
	w.stopCountdown()

	w.cdKey = key
	w.cdDeadline = w.ctl.Deadline(room, w.ctl.Now())
	ctx, cancel := context.WithCancel(w.ctx)
	w.cdCancel = cancel

	deadline := w.cdDeadline
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		err := w.ctl.Run(ctx, w.roomID, deadline, func(tk phase.Tick) {
			select {
			case w.ticks <- tk:
			default:
			}
		})
		if err != nil {
			w.log.Error().Err(err).Msg("discussion countdown")
		}
	}()
	w.log.Debug().Time("deadline", deadline).Msg("countdown started")
}

func (w *Watcher) stopCountdown() {
	if w.cdCancel != nil {
		w.cdCancel()
		w.cdCancel = nil
	}
	w.cdKey = ""
	w.cdDeadline = time.Time{}
}
