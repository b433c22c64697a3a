package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabry/collabry-go/internal/httpx"
)

type notifyBackend struct {
	srv      *httptest.Server
	failMut  atomic.Bool
	listHits atomic.Int32
}

func newNotifyBackend(t *testing.T) *notifyBackend {
	t.Helper()
	b := &notifyBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/influencer/notifications", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b.listHits.Add(1)
			page := r.URL.Query().Get("page")
			items := []map[string]any{}
			if page == "1" {
				items = []map[string]any{
					{"id": "n1", "title": "New applicant", "body": "Ava applied", "read": false},
					{"id": "n2", "title": "Message", "body": "You have a reply", "read": true},
					{"id": "n3", "title": "Payout", "body": "Subscription renewed", "read": false},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "total": 3})
		case http.MethodDelete:
			if b.failMut.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	for _, p := range []string{"mark-read", "mark-all-read"} {
		path := "/api/v1/influencer/notifications/" + p
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if b.failMut.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newFeed(t *testing.T, b *notifyBackend) *Feed {
	t.Helper()
	hc := httpx.New(httpx.Options{BaseURL: b.srv.URL, Logger: zerolog.Nop()})
	return NewFeed(NewClient(hc, "influencer", zerolog.Nop()), 20)
}

func TestRefreshAndUnreadBadge(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)

	require.NoError(t, f.Refresh(context.Background()))
	assert.Len(t, f.Items(), 3)
	assert.Equal(t, 2, f.Unread())
}

func TestMarkReadOptimisticThenConfirmed(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.MarkRead(context.Background(), "n1"))
	assert.Equal(t, 1, f.Unread())

	// Marking an already-read entry is a no-op, not a request.
	require.NoError(t, f.MarkRead(context.Background(), "n2"))
	assert.Equal(t, 1, f.Unread())
}

func TestMarkReadRollsBackOnFailure(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)
	require.NoError(t, f.Refresh(context.Background()))

	b.failMut.Store(true)
	err := f.MarkRead(context.Background(), "n1")
	require.Error(t, err)
	assert.Equal(t, 2, f.Unread(), "read flag restored after failed request")
}

func TestMarkAllReadRollsBackOnFailure(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)
	require.NoError(t, f.Refresh(context.Background()))

	b.failMut.Store(true)
	require.Error(t, f.MarkAllRead(context.Background()))
	assert.Equal(t, 2, f.Unread())

	b.failMut.Store(false)
	require.NoError(t, f.MarkAllRead(context.Background()))
	assert.Zero(t, f.Unread())
}

func TestDeleteRollsBackAtOriginalPosition(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)
	require.NoError(t, f.Refresh(context.Background()))

	b.failMut.Store(true)
	require.Error(t, f.Delete(context.Background(), "n2"))
	items := f.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "n2", items[1].ID, "failed delete restores the entry where it was")

	b.failMut.Store(false)
	require.NoError(t, f.Delete(context.Background(), "n2"))
	items = f.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []string{"n1", "n3"}, []string{items[0].ID, items[1].ID})

	// Deleting an unknown id is a local no-op.
	require.NoError(t, f.Delete(context.Background(), "missing"))
}

func TestLoadMoreAppends(t *testing.T) {
	b := newNotifyBackend(t)
	f := newFeed(t, b)
	require.NoError(t, f.Refresh(context.Background()))
	require.NoError(t, f.LoadMore(context.Background()))
	assert.Len(t, f.Items(), 3, "empty second page appends nothing")
	assert.Equal(t, int32(2), b.listHits.Load())
}
