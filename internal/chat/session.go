package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/pkg/apperr"
)

// SessionOptions configures one room view.
type SessionOptions struct {
	API            *API
	WSURL          string
	RoomID         string
	SelfID         string
	HistoryLimit   int
	MaxFileSize    int64
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
	Logger         zerolog.Logger
}

// Session wires the store, connection manager and composer for a single
// room. It owns the goroutines behind them and tears everything down on
// Close.
type Session struct {
	Store    *MessageStore
	Composer *Composer

	api     *API
	conn    *Conn
	roomID  string
	selfID  string
	limit   int
	log     zerolog.Logger
	updates chan *models.Message
	cancel  context.CancelFunc

	mu          sync.Mutex
	counterpart *models.Participant
	roomErr     error
}

func NewSession(opts SessionOptions) *Session {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	store := NewMessageStore()
	s := &Session{
		Store:    store,
		Composer: NewComposer(opts.API, store, opts.RoomID, opts.SelfID, opts.MaxFileSize, opts.Logger),
		api:      opts.API,
		roomID:   opts.RoomID,
		selfID:   opts.SelfID,
		limit:    opts.HistoryLimit,
		log:      opts.Logger,
		updates:  make(chan *models.Message, 64),
	}
	s.conn = NewConn(ConnConfig{
		URL:            opts.WSURL,
		RoomID:         opts.RoomID,
		BackoffFloor:   opts.BackoffFloor,
		BackoffCeiling: opts.BackoffCeiling,
		Logger:         opts.Logger,
	})
	return s
}

// Start opens the websocket, loads history and kicks off the presence
// lookups. A history failure is returned for the inline banner but the
// session stays usable: the socket keeps running and sends still work.
func (s *Session) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.conn.Run(ctx)
	go s.pump()

	// Fire-and-forget; a failed mark-seen is invisible to the user.
	go func() {
		if err := s.api.MarkSeen(ctx, s.roomID, s.selfID); err != nil {
			s.log.Debug().Err(err).Msg("mark-seen failed")
		}
	}()

	// The counterpart name is cosmetic: a failure is recorded, not fatal.
	go func() {
		room, err := s.api.Room(ctx, s.roomID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.roomErr = err
			return
		}
		s.counterpart = room.Counterpart(s.selfID)
	}()

	msgs, err := s.api.History(ctx, s.roomID, s.limit)
	if err != nil {
		return apperr.Wrap(apperr.CodeOf(err), "failed to load messages", err)
	}
	s.Store.ReplaceAll(msgs)
	return nil
}

// Updates delivers messages newly appended from the websocket. The channel
// closes when the session shuts down.
func (s *Session) Updates() <-chan *models.Message { return s.updates }

// ConnState exposes the connection lifecycle for the status line.
func (s *Session) ConnState() State { return s.conn.State() }

// Counterpart returns the other participant once resolved.
func (s *Session) Counterpart() *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// CounterpartLabel is the display name for the header, falling back to the
// room id until (or unless) resolution succeeds.
func (s *Session) CounterpartLabel() string {
	if p := s.Counterpart(); p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return fmt.Sprintf("room %s", s.roomID)
}

// RoomError reports the non-fatal participant-resolution failure, if any.
func (s *Session) RoomError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomErr
}

// Close stops the websocket (suppressing reconnects) and cancels in-flight
// loads.
func (s *Session) Close() {
	s.conn.Close()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) pump() {
	defer close(s.updates)
	for m := range s.conn.Events() {
		// Drop the echo of an own send: the confirmation path already
		// appended it (possibly under a different id than the broadcast).
		if s.Composer.ConsumeTemp(m.TempID) {
			continue
		}
		if !s.Store.Append(*m) {
			continue
		}
		select {
		case s.updates <- m:
		default:
			s.log.Warn().Msg("update buffer full, dropping notification")
		}
	}
}
