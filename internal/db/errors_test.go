package db

import (
	"bugfind/internal/events"
	"bugfind/internal/model"
	"bugfind/internal/store"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", &pq.Error{Code: "23505"}, store.ErrConflict},
		{"check", &pq.Error{Code: "23514"}, store.ErrConstraint},
		{"foreign key", &pq.Error{Code: "23503"}, store.ErrConstraint},
		{"bad conn", driver.ErrBadConn, model.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrap("doing thing", tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), "doing thing")
		})
	}
}

func TestWrap_PassesUnknownErrors(t *testing.T) {
	other := errors.New("syntax")
	got := wrap("querying", other)
	assert.ErrorIs(t, got, other)
	assert.NotErrorIs(t, got, store.ErrNotFound)
}

func TestDecodeNotification(t *testing.T) {
	c, err := decodeNotification(&pq.Notification{
		Channel: notifyChannel,
		Extra:   `{"table":"votes","op":"insert","room_id":"r1","row_id":"v1"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, events.Change{Table: events.TableVotes, Op: events.OpInsert, RoomID: "r1", RowID: "v1"}, c)

	c, err = decodeNotification(nil)
	require.NoError(t, err)
	assert.Equal(t, events.OpResync, c.Op)

	_, err = decodeNotification(&pq.Notification{Extra: "not json"})
	assert.Error(t, err)
}
