package notify

import (
	"context"
	"sync"

	"github.com/collabry/collabry-go/internal/models"
)

// Feed is the in-memory view of the notification list. Read/delete are
// applied optimistically so the badge updates immediately; a failed request
// restores the previous local state and returns the error for the banner.
type Feed struct {
	api  *Client
	size int

	mu    sync.Mutex
	items []models.Notification
	total int
	page  int
}

func NewFeed(api *Client, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Feed{api: api, size: pageSize}
}

// Refresh reloads the first page.
func (f *Feed) Refresh(ctx context.Context) error {
	p, err := f.api.List(ctx, 1, f.size)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.items = p.Items
	f.total = p.Total
	f.page = 1
	f.mu.Unlock()
	return nil
}

// LoadMore appends the next page.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	next := f.page + 1
	f.mu.Unlock()

	p, err := f.api.List(ctx, next, f.size)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.items = append(f.items, p.Items...)
	f.total = p.Total
	f.page = next
	f.mu.Unlock()
	return nil
}

// Items returns a snapshot of the feed.
func (f *Feed) Items() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread counts the locally unread entries, feeding the badge.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkRead flips the entry locally, then confirms with the backend.
func (f *Feed) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	idx := f.indexLocked(id)
	if idx < 0 || f.items[idx].Read {
		f.mu.Unlock()
		return nil
	}
	f.items[idx].Read = true
	f.mu.Unlock()

	if err := f.api.MarkRead(ctx, id); err != nil {
		f.mu.Lock()
		if idx := f.indexLocked(id); idx >= 0 {
			f.items[idx].Read = false
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// MarkAllRead flips everything locally, restoring the individual flags if
// the backend call fails.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	prev := make([]bool, len(f.items))
	for i := range f.items {
		prev[i] = f.items[i].Read
		f.items[i].Read = true
	}
	f.mu.Unlock()

	if err := f.api.MarkAllRead(ctx); err != nil {
		f.mu.Lock()
		for i := range f.items {
			if i < len(prev) {
				f.items[i].Read = prev[i]
			}
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// Delete removes the entry locally and reinserts it at its old position on
// failure.
func (f *Feed) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	idx := f.indexLocked(id)
	if idx < 0 {
		f.mu.Unlock()
		return nil
	}
	removed := f.items[idx]
	f.items = append(f.items[:idx], f.items[idx+1:]...)
	f.mu.Unlock()

	if err := f.api.Delete(ctx, id); err != nil {
		f.mu.Lock()
		if idx > len(f.items) {
			idx = len(f.items)
		}
		f.items = append(f.items[:idx], append([]models.Notification{removed}, f.items[idx:]...)...)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *Feed) indexLocked(id string) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}
