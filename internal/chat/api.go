package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/models"
)

// API is the REST surface the chat core consumes. The marketplace backend
// defines these routes; the sandbox package mirrors them for local use.
type API struct {
	http *httpx.Client
	log  zerolog.Logger
}

func NewAPI(http *httpx.Client, log zerolog.Logger) *API {
	return &API{http: http, log: log}
}

// Rooms lists the conversations the user takes part in.
func (a *API) Rooms(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	path := "/api/v1/chat/rooms?user_id=" + url.QueryEscape(userID)
	if err := a.http.GetJSON(ctx, path, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Room resolves a single room's participant list.
func (a *API) Room(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	path := "/api/v1/chat/room?room_id=" + url.QueryEscape(roomID)
	if err := a.http.GetJSON(ctx, path, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// History fetches up to limit most recent messages for the room. Entries
// that fail normalization are dropped individually, the same policy applied
// to malformed websocket frames.
func (a *API) History(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var raw []json.RawMessage
	path := fmt.Sprintf("/api/v1/chat/history?room_id=%s&limit=%d", url.QueryEscape(roomID), limit)
	if err := a.http.GetJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(raw))
	for _, r := range raw {
		m, err := models.NormalizeMessage(r)
		if err != nil {
			a.log.Debug().Err(err).Msg("dropping malformed history entry")
			continue
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

// MarkSeen tells the backend the room was read. Callers treat it as
// fire-and-forget.
func (a *API) MarkSeen(ctx context.Context, roomID, userID string) error {
	body := map[string]string{"roomId": roomID, "userId": userID}
	return a.http.PostJSON(ctx, "/api/v1/chat/seen", body, nil)
}

// SendRequest is an outgoing message before confirmation.
type SendRequest struct {
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
	TempID    string `json:"tempId,omitempty"`
}

// SendText posts a text-only message and returns the server-confirmed copy.
func (a *API) SendText(ctx context.Context, req SendRequest) (*models.Message, error) {
	var raw json.RawMessage
	if err := a.http.PostJSON(ctx, "/api/v1/chat/send", req, &raw); err != nil {
		return nil, err
	}
	return models.NormalizeMessage(raw)
}

// SendFiles posts a multipart message carrying one or more attachments.
func (a *API) SendFiles(ctx context.Context, req SendRequest, files []httpx.Upload) (*models.Message, error) {
	fields := map[string]string{
		"roomId":   req.RoomID,
		"senderId": req.SenderID,
	}
	if req.Text != "" {
		fields["text"] = req.Text
	}
	if req.ReplyToID != "" {
		fields["replyToId"] = req.ReplyToID
	}
	if req.TempID != "" {
		fields["tempId"] = req.TempID
	}
	var raw json.RawMessage
	if err := a.http.PostMultipart(ctx, "/api/v1/chat/send-file", fields, files, &raw); err != nil {
		return nil, err
	}
	return models.NormalizeMessage(raw)
}
