package broadcast

import (
	"bugfind/internal/events"
	"sync"
)

const clientBuffer = 16

// Client is one filtered subscription. Its channel is closed on Close.
type Client struct {
	filter events.Filter
	ch     chan events.Change
	b      *Broadcaster
	once   sync.Once
}

func (c *Client) Changes() <-chan events.Change {
	return c.ch
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.b.Unsubscribe(c)
	})
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[*Client]bool
	// OnDrop is called when a change is skipped for a full client.
	OnDrop func(events.Change)
}

// NewBroadcaster fans out every change read from bus until the bus is closed.
// A nil bus gives a broadcaster that is only fed through Publish.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[*Client]bool),
	}
	if bus != nil {
		go func() {
			for ev := range bus.Changes {
				b.Publish(ev)
			}
		}()
	}
	return b
}

func (b *Broadcaster) Subscribe(f events.Filter) *Client {
	c := &Client{
		filter: f,
		ch:     make(chan events.Change, clientBuffer),
		b:      b,
	}
	b.Mu.Lock()
	b.Clients[c] = true
	b.Mu.Unlock()
	return c
}

func (b *Broadcaster) Unsubscribe(c *Client) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if _, ok := b.Clients[c]; ok {
		delete(b.Clients, c)
		close(c.ch)
	}
}

func (b *Broadcaster) Publish(ev events.Change) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for c := range b.Clients {
		if !c.filter.Match(ev) {
			continue
		}
		select {
		case c.ch <- ev:
		default:
			// A full buffer already holds a pending change, and subscribers
			// refetch everything, so the skipped one is covered.
			if b.OnDrop != nil {
				b.OnDrop(ev)
			}
		}
	}
}

// Count returns the number of live subscriptions.
func (b *Broadcaster) Count() int {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return len(b.Clients)
}
