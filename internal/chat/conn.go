package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/models"
)

// State of the websocket connection lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// wsConn is the slice of *websocket.Conn the manager needs; tests substitute
// scripted fakes through ConnConfig.Dial.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type ConnConfig struct {
	URL            string
	RoomID         string
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
	// Dial defaults to the gorilla websocket dialer.
	Dial   func(ctx context.Context, url string) (wsConn, error)
	Logger zerolog.Logger
}

// Conn owns one websocket per room view. It joins the room on open, hands
// chat-message events for the current room to Events, and reconnects with
// capped exponential backoff until Close is called. It never gives up on
// its own.
type Conn struct {
	cfg     ConnConfig
	state   atomic.Int32
	events  chan *models.Message
	done    chan struct{}
	closeMu sync.Once

	mu     sync.Mutex // guards ws and roomID
	ws     wsConn
	roomID string

	bo  *backoff
	log zerolog.Logger
}

func NewConn(cfg ConnConfig) *Conn {
	if cfg.Dial == nil {
		cfg.Dial = gorillaDial
	}
	c := &Conn{
		cfg:    cfg,
		events: make(chan *models.Message, 256),
		done:   make(chan struct{}),
		bo:     newBackoff(cfg.BackoffFloor, cfg.BackoffCeiling),
		roomID: cfg.RoomID,
		log:    cfg.Logger,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func gorillaDial(ctx context.Context, url string) (wsConn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws, err
}

// Events delivers normalized chat messages scoped to the current room.
func (c *Conn) Events() <-chan *models.Message { return c.events }

func (c *Conn) State() State { return State(c.state.Load()) }

// Run drives the connect/read/reconnect loop until Close or ctx
// cancellation. Call it on its own goroutine; the Events channel is closed
// when the loop exits.
func (c *Conn) Run(ctx context.Context) {
	defer close(c.events)
	for {
		if c.closed() {
			return
		}
		ws, err := c.cfg.Dial(ctx, c.cfg.URL)
		if err != nil {
			c.log.Debug().Err(err).Msg("websocket dial failed")
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}
		if c.closed() {
			_ = ws.Close()
			return
		}

		c.attach(ws)
		c.bo.reset()
		c.state.Store(int32(StateOpen))
		c.log.Debug().Str("room", c.currentRoom()).Msg("websocket open, joined room")

		c.readLoop(ws)
		c.detach(ws)

		if !c.waitReconnect(ctx) {
			return
		}
	}
}

// SetRoom switches the joined room. On a live socket the join frame is
// re-sent rather than reopening the connection.
func (c *Conn) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	if c.ws != nil && c.State() == StateOpen {
		if err := c.ws.WriteMessage(websocket.TextMessage, models.JoinFrame(roomID)); err != nil {
			c.log.Debug().Err(err).Msg("re-join frame failed")
		}
	}
}

// Close shuts the socket down with a normal-closure frame and suppresses any
// further reconnects.
func (c *Conn) Close() {
	c.closeMu.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		c.mu.Lock()
		if c.ws != nil {
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving"))
			_ = c.ws.Close()
			c.ws = nil
		}
		c.mu.Unlock()
	})
}

func (c *Conn) closed() bool { return c.State() == StateClosed }

func (c *Conn) attach(ws wsConn) {
	c.mu.Lock()
	c.ws = ws
	room := c.roomID
	if err := ws.WriteMessage(websocket.TextMessage, models.JoinFrame(room)); err != nil {
		c.log.Debug().Err(err).Msg("join frame failed")
	}
	c.mu.Unlock()
}

func (c *Conn) detach(ws wsConn) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()
	_ = ws.Close()
}

func (c *Conn) readLoop(ws wsConn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !c.closed() {
				c.log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Conn) handleFrame(data []byte) {
	ev, err := models.ParseEvent(data)
	if err != nil {
		// Unparseable frames are dropped, never surfaced.
		c.log.Debug().Err(err).Msg("dropping malformed frame")
		return
	}
	if ev.Type != models.EventChatMessage || ev.RoomID != c.currentRoom() {
		return
	}
	msg, err := ev.ChatMessage()
	if err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed chat message")
		return
	}
	select {
	case c.events <- msg:
	case <-c.done:
	default:
		c.log.Warn().Msg("event buffer full, dropping message")
	}
}

// waitReconnect sleeps for the next backoff delay. It returns false when the
// connection was closed or the context cancelled while waiting.
func (c *Conn) waitReconnect(ctx context.Context) bool {
	if c.closed() {
		return false
	}
	c.state.Store(int32(StateReconnecting))
	delay := c.bo.next()
	c.log.Debug().Dur("delay", delay).Msg("scheduling reconnect")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !c.closed()
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Conn) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

var _ wsConn = (*websocket.Conn)(nil)
