package sandbox

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabry/collabry-go/internal/models"
)

// RoomStore keeps rooms and their messages in memory. One conversation per
// participant pair, found or created on demand.
type RoomStore struct {
	mu        sync.RWMutex
	rooms     map[string]*models.Room
	messages  map[string][]models.Message
	userIndex map[string][]string
	seen      map[string]map[string]time.Time
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:     make(map[string]*models.Room),
		messages:  make(map[string][]models.Message),
		userIndex: make(map[string][]string),
		seen:      make(map[string]map[string]time.Time),
	}
}

// EnsureRoom finds the conversation between the two participants or creates
// it.
func (s *RoomStore) EnsureRoom(a, b models.Participant) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, roomID := range s.userIndex[a.ID] {
		room := s.rooms[roomID]
		for _, p := range room.Participants {
			if p.ID == b.ID {
				return room
			}
		}
	}
	room := &models.Room{
		ID:           uuid.NewString(),
		Participants: []models.Participant{a, b},
	}
	s.rooms[room.ID] = room
	s.userIndex[a.ID] = append(s.userIndex[a.ID], room.ID)
	s.userIndex[b.ID] = append(s.userIndex[b.ID], room.ID)
	return room
}

func (s *RoomStore) Room(id string) (*models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *RoomStore) RoomsFor(userID string) []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Room, 0, len(s.userIndex[userID]))
	for _, roomID := range s.userIndex[userID] {
		out = append(out, *s.rooms[roomID])
	}
	return out
}

// NewMessage stamps, stores and returns the confirmed copy of an incoming
// send. The reply snapshot is denormalized here so clients render chips
// without a second lookup.
func (s *RoomStore) NewMessage(roomID, senderID, text, replyToID, tempID string, atts []models.Attachment) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, false
	}
	msg := models.Message{
		ID:          uuid.NewString(),
		TempID:      tempID,
		RoomID:      roomID,
		SenderID:    senderID,
		Text:        text,
		SentAt:      time.Now().UTC(),
		Attachments: atts,
	}
	if replyToID != "" {
		for i := range s.messages[roomID] {
			if s.messages[roomID][i].ID == replyToID {
				msg.ReplyTo = s.messages[roomID][i].SnapshotFor()
				break
			}
		}
	}
	s.messages[roomID] = append(s.messages[roomID], msg)
	return &msg, true
}

// History returns up to limit most recent messages, oldest first.
func (s *RoomStore) History(roomID string, limit int) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *RoomStore) MarkSeen(roomID, userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[roomID] == nil {
		s.seen[roomID] = make(map[string]time.Time)
	}
	s.seen[roomID][userID] = at
}

// LastSeen reports when userID last read the room, zero if never.
func (s *RoomStore) LastSeen(roomID, userID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[roomID][userID]
}

// NotificationStore keeps one feed per role.
type NotificationStore struct {
	mu    sync.RWMutex
	feeds map[string][]models.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{feeds: make(map[string][]models.Notification)}
}

func (s *NotificationStore) Add(role string, n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.feeds[role] = append(s.feeds[role], n)
}

// List pages through the feed newest first.
func (s *NotificationStore) List(role string, page, size int) ([]models.Notification, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed := make([]models.Notification, len(s.feeds[role]))
	copy(feed, s.feeds[role])
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	total := len(feed)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []models.Notification{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return feed[start:end], total
}

func (s *NotificationStore) MarkRead(role, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feeds[role] {
		if s.feeds[role][i].ID == id {
			s.feeds[role][i].Read = true
			return true
		}
	}
	return false
}

func (s *NotificationStore) MarkAllRead(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feeds[role] {
		s.feeds[role][i].Read = true
	}
}

func (s *NotificationStore) Delete(role, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := s.feeds[role]
	for i := range feed {
		if feed[i].ID == id {
			s.feeds[role] = append(feed[:i], feed[i+1:]...)
			return true
		}
	}
	return false
}

// BlobStore holds uploaded attachment bytes, served back under /file/.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	mime string
	data []byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// Put stores data and returns the path it is served under.
func (s *BlobStore) Put(name, mime string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uuid.NewString() + "-" + name
	s.blobs[key] = blob{mime: mime, data: data}
	return "/file/" + key
}

func (s *BlobStore) Get(key string) (string, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b.mime, b.data, ok
}
