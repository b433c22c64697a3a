package sandbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabry/collabry-go/internal/chat"
	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/internal/notify"
)

func startSandbox(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := NewServer(zerolog.Nop())
	roomID := s.Seed()
	s.Start(ctx)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv, roomID
}

func apiFor(srv *httptest.Server) *chat.API {
	hc := httpx.New(httpx.Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	return chat.NewAPI(hc, zerolog.Nop())
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, models.JoinFrame(roomID)))
	// Let the hub process the join before any broadcast fires.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func readChatMessage(t *testing.T, conn *websocket.Conn) *models.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := models.ParseEvent(data)
	require.NoError(t, err)
	msg, err := ev.ChatMessage()
	require.NoError(t, err)
	return msg
}

func TestSendEchoesSameIDOverWebSocket(t *testing.T) {
	_, srv, roomID := startSandbox(t)
	api := apiFor(srv)
	conn := dialRoom(t, srv, roomID)

	confirmed, err := api.SendText(context.Background(), chat.SendRequest{
		RoomID:   roomID,
		SenderID: "inf-ava",
		Text:     "sounds good, send the brief",
		TempID:   "tmp-123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, confirmed.ID)
	assert.Equal(t, "tmp-123", confirmed.TempID)

	echo := readChatMessage(t, conn)
	assert.Equal(t, confirmed.ID, echo.ID, "broadcast echo carries the confirmed id")
	assert.Equal(t, "tmp-123", echo.TempID)
	assert.Equal(t, roomID, echo.RoomID)
}

func TestHistoryOrderLimitAndReplySnapshot(t *testing.T) {
	_, srv, roomID := startSandbox(t)
	api := apiFor(srv)

	all, err := api.History(context.Background(), roomID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].SentAt.Before(all[2].SentAt) || all[0].SentAt.Equal(all[2].SentAt),
		"history is oldest first")

	require.NotNil(t, all[1].ReplyTo)
	assert.Equal(t, all[0].ID, all[1].ReplyTo.MessageID)
	assert.Equal(t, all[0].Text, all[1].ReplyTo.Text)

	last, err := api.History(context.Background(), roomID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, all[1].ID, last[0].ID, "limit keeps the most recent messages")
}

func TestRoomLookupAndUnknownRoom(t *testing.T) {
	_, srv, roomID := startSandbox(t)
	api := apiFor(srv)

	room, err := api.Room(context.Background(), roomID)
	require.NoError(t, err)
	counterpart := room.Counterpart("inf-ava")
	require.NotNil(t, counterpart)
	assert.Equal(t, "Glow Cosmetics", counterpart.DisplayName)

	rooms, err := api.Rooms(context.Background(), "brand-glow")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, roomID, rooms[0].ID)

	_, err = api.Room(context.Background(), "nope")
	require.Error(t, err)

	_, err = api.SendText(context.Background(), chat.SendRequest{
		RoomID: "nope", SenderID: "inf-ava", Text: "hello?",
	})
	require.Error(t, err)
}

func TestSendFileStoresAndServesBlob(t *testing.T) {
	_, srv, roomID := startSandbox(t)
	api := apiFor(srv)

	confirmed, err := api.SendFiles(context.Background(),
		chat.SendRequest{RoomID: roomID, SenderID: "brand-glow", Text: "here is the brief"},
		[]httpx.Upload{{
			Name:        "brief.pdf",
			ContentType: "application/octet-stream",
			Data:        []byte("%PDF-1.7 brief"),
		}})
	require.NoError(t, err)
	require.Len(t, confirmed.Attachments, 1)

	att := confirmed.Attachments[0]
	assert.Equal(t, "brief.pdf", att.Name)
	assert.Equal(t, "application/octet-stream", att.MIMEType, "declared type kept, mislabel and all")
	assert.Equal(t, int64(len("%PDF-1.7 brief")), att.Size)

	resp, err := http.Get(srv.URL + att.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
}

func TestSwitchingRoomsRescopesDelivery(t *testing.T) {
	s, srv, roomID := startSandbox(t)
	api := apiFor(srv)

	other := s.Rooms.EnsureRoom(
		models.Participant{ID: "inf-ava", Role: "influencer"},
		models.Participant{ID: "brand-peak", DisplayName: "Peak Fitness", Role: "brand"},
	)

	conn := dialRoom(t, srv, roomID)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, models.JoinFrame(other.ID)))
	// Give the join a moment to land before broadcasting.
	time.Sleep(50 * time.Millisecond)

	_, err := api.SendText(context.Background(), chat.SendRequest{
		RoomID: roomID, SenderID: "inf-ava", Text: "old room",
	})
	require.NoError(t, err)
	sent, err := api.SendText(context.Background(), chat.SendRequest{
		RoomID: other.ID, SenderID: "inf-ava", Text: "new room",
	})
	require.NoError(t, err)

	echo := readChatMessage(t, conn)
	assert.Equal(t, sent.ID, echo.ID, "only the joined room is delivered")
}

func TestMarkSeenRecordsTimestamp(t *testing.T) {
	s, srv, roomID := startSandbox(t)
	api := apiFor(srv)

	require.NoError(t, api.MarkSeen(context.Background(), roomID, "inf-ava"))
	assert.False(t, s.Rooms.LastSeen(roomID, "inf-ava").IsZero())
	assert.True(t, s.Rooms.LastSeen(roomID, "brand-glow").IsZero())
}

func TestNotificationEndpoints(t *testing.T) {
	_, srv, _ := startSandbox(t)
	hc := httpx.New(httpx.Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	nc := notify.NewClient(hc, "influencer", zerolog.Nop())

	page, err := nc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Total)

	var unread string
	for _, n := range page.Items {
		if !n.Read {
			unread = n.ID
		}
	}
	require.NotEmpty(t, unread)
	require.NoError(t, nc.MarkRead(context.Background(), unread))

	page, err = nc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	for _, n := range page.Items {
		assert.True(t, n.Read)
	}

	require.NoError(t, nc.Delete(context.Background(), unread))
	page, err = nc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	require.Error(t, nc.MarkRead(context.Background(), "missing"))
	require.NoError(t, nc.MarkAllRead(context.Background()))
}
