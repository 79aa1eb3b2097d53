package broadcast

import (
	"bugfind/internal/events"
	"testing"
	"time"
)

var playersR1 = events.Filter{Table: events.TablePlayers, RoomID: "r1"}

func TestNewBroadcaster(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
	bus.Close()
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster(nil)

	c := b.Subscribe(playersR1)
	if c == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if b.Count() != 1 {
		t.Errorf("clients count = %d, want 1", b.Count())
	}

	c.Close()
	if b.Count() != 0 {
		t.Errorf("clients count after close = %d, want 0", b.Count())
	}
	if _, ok := <-c.Changes(); ok {
		t.Error("channel should be closed after Close()")
	}

	// Second close is a no-op.
	c.Close()
}

func TestBroadcaster_PublishFilters(t *testing.T) {
	b := NewBroadcaster(nil)

	players := b.Subscribe(playersR1)
	votes := b.Subscribe(events.Filter{Table: events.TableVotes, RoomID: "r1"})
	defer players.Close()
	defer votes.Close()

	b.Publish(events.Change{Table: events.TablePlayers, Op: events.OpInsert, RoomID: "r1", RowID: "p1"})
	b.Publish(events.Change{Table: events.TablePlayers, Op: events.OpInsert, RoomID: "r2", RowID: "p2"})

	select {
	case ev := <-players.Changes():
		if ev.RowID != "p1" {
			t.Errorf("players got %+v, want row p1", ev)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("players subscriber timed out")
	}

	select {
	case ev := <-players.Changes():
		t.Errorf("players should not receive other rooms, got %+v", ev)
	case ev := <-votes.Changes():
		t.Errorf("votes should not receive player changes, got %+v", ev)
	default:
	}
}

func TestBroadcaster_ResyncReachesEveryone(t *testing.T) {
	b := NewBroadcaster(nil)
	c1 := b.Subscribe(playersR1)
	c2 := b.Subscribe(events.Filter{Table: events.TableRooms, RoomID: "r9"})
	defer c1.Close()
	defer c2.Close()

	b.Publish(events.Change{Op: events.OpResync})

	for i, c := range []*Client{c1, c2} {
		select {
		case ev := <-c.Changes():
			if ev.Op != events.OpResync {
				t.Errorf("client %d got %+v, want resync", i, ev)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("client %d timed out", i)
		}
	}
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	b := NewBroadcaster(nil)
	dropped := 0
	b.OnDrop = func(events.Change) { dropped++ }

	c := b.Subscribe(playersR1)
	defer c.Close()

	for i := 0; i < clientBuffer; i++ {
		b.Publish(events.Change{Table: events.TablePlayers, RoomID: "r1"})
	}

	done := make(chan bool)
	go func() {
		b.Publish(events.Change{Table: events.TablePlayers, RoomID: "r1"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Publish blocked on full channel")
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestBroadcaster_BusForwarding(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	defer bus.Close()

	c := b.Subscribe(playersR1)
	defer c.Close()

	bus.Changes <- events.Change{Table: events.TablePlayers, Op: events.OpDelete, RoomID: "r1", RowID: "p1"}

	select {
	case ev := <-c.Changes():
		if ev.Op != events.OpDelete || ev.RowID != "p1" {
			t.Errorf("got %+v, want delete of p1", ev)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for forwarded change")
	}
}
