// Package client is one participant's entry point. It is the only place the
// persisted session id is read; everything below it takes the id as an
// argument.
package client

import (
	"bugfind/internal/gamedata"
	"bugfind/internal/logger"
	"bugfind/internal/model"
	"bugfind/internal/phase"
	"bugfind/internal/rooms"
	"bugfind/internal/round"
	"bugfind/internal/session"
	"bugfind/internal/store"
	"bugfind/internal/voting"
	"bugfind/internal/watch"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var errNoRoom = fmt.Errorf("%w: no active room", model.ErrNotMember)

type Options struct {
	Discussion time.Duration
	MaxPlayers int
	Clock      phase.Clock
}

type Client struct {
	store    store.Store
	sessions *session.Store
	dir      *rooms.Directory
	setup    *round.Setup
	ctl      *phase.Controller
	votes    *voting.Service
	log      zerolog.Logger

	mu      sync.Mutex
	watcher *watch.Watcher
	self    string
	onView  func(gamedata.GameData)
}

// New wires the game services over st. onView receives every view of the
// active room.
func New(st store.Store, sessions *session.Store, opts Options, onView func(gamedata.GameData)) *Client {
	if opts.Discussion <= 0 {
		opts.Discussion = round.DefaultDiscussion
	}
	if opts.Clock == nil {
		opts.Clock = phase.RealClock()
	}
	return &Client{
		store:    st,
		sessions: sessions,
		dir:      rooms.NewDirectory(st, rooms.WithMaxPlayers(opts.MaxPlayers), rooms.WithClock(opts.Clock.Now)),
		setup:    round.NewSetup(st, opts.Discussion, round.WithClock(opts.Clock.Now)),
		ctl:      phase.NewController(st, opts.Discussion, phase.WithClock(opts.Clock)),
		votes:    voting.NewService(st),
		log:      logger.New("client"),
		onView:   onView,
	}
}

// Identity returns the persisted session id, creating one when absent. It
// does not rotate, so repeated calls agree.
func (c *Client) Identity() (string, error) {
	return c.sessions.GetOrCreate()
}

// CreateRoom leaves any active room, then opens and watches a new one under a
// fresh session id.
func (c *Client) CreateRoom(ctx context.Context, nickname string) (gamedata.GameData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.leaveLocked(ctx); err != nil && !errors.Is(err, errNoRoom) {
		return gamedata.GameData{}, err
	}
	id, err := c.sessions.Rotate()
	if err != nil {
		return gamedata.GameData{}, fmt.Errorf("issuing session: %w", err)
	}
	room, _, err := c.dir.Create(ctx, id, nickname)
	if err != nil {
		return gamedata.GameData{}, err
	}
	return c.watchLocked(ctx, room.ID, id)
}

// JoinRoom leaves any active room, then joins and watches the room with code.
func (c *Client) JoinRoom(ctx context.Context, code, nickname string) (gamedata.GameData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.leaveLocked(ctx); err != nil && !errors.Is(err, errNoRoom) {
		return gamedata.GameData{}, err
	}
	id, err := c.sessions.Rotate()
	if err != nil {
		return gamedata.GameData{}, fmt.Errorf("issuing session: %w", err)
	}
	room, _, err := c.dir.Join(ctx, code, id, nickname)
	if err != nil {
		return gamedata.GameData{}, err
	}
	return c.watchLocked(ctx, room.ID, id)
}

// Resume re-attaches to roomID under the persisted session id, as after a
// restart. The id must still hold a seat in the room.
func (c *Client) Resume(ctx context.Context, roomID string) (gamedata.GameData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.sessions.Current()
	if err != nil {
		return gamedata.GameData{}, fmt.Errorf("reading session: %w", err)
	}
	if id == "" {
		return gamedata.GameData{}, errNoRoom
	}
	if c.watcher != nil && c.watcher.RoomID() == roomID && c.self == id {
		return c.watcher.View(), nil
	}
	w, err := watch.Open(ctx, c.store, c.ctl, roomID, id, c.onView)
	if err != nil {
		c.republishLocked()
		return gamedata.GameData{}, fmt.Errorf("watching room: %w", err)
	}
	view := w.View()
	if view.Screen == gamedata.ScreenNotMember {
		w.Close()
		c.republishLocked()
		return gamedata.GameData{}, fmt.Errorf("%w: %s", model.ErrNotMember, id)
	}
	c.closeWatcherLocked()
	c.watcher, c.self = w, id
	c.log.Info().Str("room", roomID).Msg("resumed room")
	return view, nil
}

func (c *Client) StartRound(ctx context.Context, difficulty model.Difficulty) error {
	roomID, self, err := c.active()
	if err != nil {
		return err
	}
	_, err = c.setup.Start(ctx, roomID, self, difficulty)
	return err
}

func (c *Client) Vote(ctx context.Context, targetID string) error {
	roomID, self, err := c.active()
	if err != nil {
		return err
	}
	_, err = c.votes.Cast(ctx, roomID, self, targetID)
	return err
}

func (c *Client) Restart(ctx context.Context) error {
	roomID, self, err := c.active()
	if err != nil {
		return err
	}
	_, err = c.votes.Restart(ctx, roomID, self)
	return err
}

// Leave gives up the seat, releases the room view and forgets the session.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaveLocked(ctx)
}

// View returns the latest view of the active room.
func (c *Client) View() gamedata.GameData {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return gamedata.GameData{Screen: gamedata.ScreenNotMember}
	}
	return c.watcher.View()
}

// Close releases the room view without leaving the room.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeWatcherLocked()
}

func (c *Client) active() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return "", "", errNoRoom
	}
	return c.watcher.RoomID(), c.self, nil
}

func (c *Client) watchLocked(ctx context.Context, roomID, self string) (gamedata.GameData, error) {
	c.closeWatcherLocked()
	w, err := watch.Open(ctx, c.store, c.ctl, roomID, self, c.onView)
	if err != nil {
		return gamedata.GameData{}, fmt.Errorf("watching room: %w", err)
	}
	c.watcher = w
	c.self = self
	return w.View(), nil
}

// republishLocked restores the active room's view after a failed resume
// published someone else's.
func (c *Client) republishLocked() {
	if c.watcher != nil && c.onView != nil {
		c.onView(c.watcher.View())
	}
}

func (c *Client) closeWatcherLocked() {
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
		c.self = ""
	}
}

func (c *Client) leaveLocked(ctx context.Context) error {
	if c.watcher == nil {
		return errNoRoom
	}
	roomID, self := c.watcher.RoomID(), c.self
	c.closeWatcherLocked()

	_, leaveErr := c.dir.Leave(ctx, roomID, self)
	if leaveErr != nil {
		c.log.Warn().Err(leaveErr).Str("room", roomID).Msg("leave failed, dropping local session anyway")
	}
	if err := c.sessions.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if c.onView != nil {
		c.onView(gamedata.GameData{Screen: gamedata.ScreenNotMember})
	}
	return leaveErr
}
