package db

import (
	"bugfind/internal/events"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	notifyChannel       = "bugfind_changes"
	listenerMinBackoff  = 2 * time.Second
	listenerMaxBackoff  = time.Minute
	listenerPingTimeout = 90 * time.Second
)

// Listen starts forwarding Postgres notifications into the broadcaster. A
// reconnect is forwarded as a resync since notifications sent while the
// connection was down are lost.
func (d *DB) Listen() error {
	l := pq.NewListener(d.dsn, listenerMinBackoff, listenerMaxBackoff, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			d.log.Warn().Err(err).Msg("change listener disconnected")
		case pq.ListenerEventReconnected:
			d.log.Info().Msg("change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			d.log.Warn().Err(err).Msg("change listener reconnect failed")
		}
	})
	if err := l.Listen(notifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("listening on %s: %w", notifyChannel, err)
	}
	d.listener = l

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				c, err := decodeNotification(n)
				if err != nil {
					d.log.Error().Err(err).Msg("dropping notification")
					continue
				}
				select {
				case d.bus.Changes <- c:
				case <-d.done:
					return
				}
			case <-time.After(listenerPingTimeout):
				go l.Ping()
			case <-d.done:
				return
			}
		}
	}()
	return nil
}

// decodeNotification maps a nil notification, which pq sends after a
// reconnect, to a resync.
func decodeNotification(n *pq.Notification) (events.Change, error) {
	if n == nil {
		return events.Change{Op: events.OpResync}, nil
	}
	var c events.Change
	if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
		return events.Change{}, fmt.Errorf("decoding notification: %w", err)
	}
	return c, nil
}
