package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/collabry/collabry-go/pkg/apperr"
)

// The backend has grown several spellings for the same message fields across
// endpoint generations. NormalizeMessage folds them into one typed Message
// instead of letting render code guess with fallback chains. A payload that
// cannot yield an id and a sender is rejected as malformed.
func NormalizeMessage(raw json.RawMessage) (*Message, error) {
	var lm looseMessage
	if err := json.Unmarshal(raw, &lm); err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedPayload, "undecodable message payload", err)
	}

	id := first(lm.ID, lm.UnderscoreID, lm.MessageID)
	sender := first(lm.SenderID, lm.SenderSnake, lm.Sender)
	if id == "" {
		return nil, apperr.Malformed("message payload missing id")
	}
	if sender == "" {
		return nil, apperr.Malformed("message payload missing sender")
	}

	m := &Message{
		ID:       id,
		TempID:   lm.TempID,
		RoomID:   first(lm.RoomID, lm.RoomSnake, lm.ChatID),
		SenderID: sender,
		Text:     first(lm.Text, lm.Content, lm.Body),
		SentAt:   lm.bestTime(),
	}

	if lm.ReplyTo != nil {
		m.ReplyTo = &ReplySnapshot{
			MessageID:     first(lm.ReplyTo.MessageID, lm.ReplyTo.ID, lm.ReplyTo.MessageSnake),
			SenderID:      first(lm.ReplyTo.SenderID, lm.ReplyTo.SenderSnake),
			Text:          first(lm.ReplyTo.Text, lm.ReplyTo.Content),
			HasAttachment: lm.ReplyTo.HasAttachment,
		}
	}

	src := lm.Attachments
	if len(src) == 0 {
		src = lm.Files
	}
	for _, la := range src {
		url := first(la.URL, la.FileURL, la.Path)
		if url == "" {
			continue
		}
		m.Attachments = append(m.Attachments, Attachment{
			URL:          url,
			Name:         first(la.Name, la.Filename, la.OriginalName),
			MIMEType:     first(la.MIMEType, la.ContentType, la.Type),
			Size:         la.Size,
			Width:        la.Width,
			Height:       la.Height,
			Duration:     la.Duration,
			ThumbnailURL: first(la.ThumbnailURL, la.Thumb),
			StorageClass: la.StorageClass,
		})
	}
	return m, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type looseMessage struct {
	ID           string `json:"id"`
	UnderscoreID string `json:"_id"`
	MessageID    string `json:"messageId"`
	TempID       string `json:"tempId"`

	RoomID    string `json:"roomId"`
	RoomSnake string `json:"room_id"`
	ChatID    string `json:"chatId"`

	SenderID    string `json:"senderId"`
	SenderSnake string `json:"sender_id"`
	Sender      string `json:"sender"`

	Text    string `json:"text"`
	Content string `json:"content"`
	Body    string `json:"message"`

	SentAt    looseTime `json:"sentAt"`
	CreatedAt looseTime `json:"createdAt"`
	Timestamp looseTime `json:"timestamp"`

	ReplyTo     *looseReply       `json:"replyTo"`
	Attachments []looseAttachment `json:"attachments"`
	Files       []looseAttachment `json:"files"`
}

func (lm *looseMessage) bestTime() time.Time {
	for _, t := range []looseTime{lm.SentAt, lm.CreatedAt, lm.Timestamp} {
		if !t.Time.IsZero() {
			return t.Time
		}
	}
	return time.Time{}
}

type looseReply struct {
	MessageID     string `json:"messageId"`
	MessageSnake  string `json:"message_id"`
	ID            string `json:"id"`
	SenderID      string `json:"senderId"`
	SenderSnake   string `json:"sender_id"`
	Text          string `json:"text"`
	Content       string `json:"content"`
	HasAttachment bool   `json:"hasAttachment"`
}

type looseAttachment struct {
	URL          string  `json:"url"`
	FileURL      string  `json:"fileUrl"`
	Path         string  `json:"path"`
	Name         string  `json:"name"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"originalName"`
	MIMEType     string  `json:"mimeType"`
	ContentType  string  `json:"contentType"`
	Type         string  `json:"type"`
	Size         int64   `json:"size"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Duration     float64 `json:"duration"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Thumb        string  `json:"thumb"`
	StorageClass string  `json:"storageClass"`
}

// looseTime accepts RFC3339 strings, epoch seconds and epoch milliseconds.
type looseTime struct {
	time.Time
}

func (t *looseTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			t.Time = parsed
		}
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	// Heuristic: epoch millis are 13+ digits until the year 33658.
	if n > 1e12 {
		t.Time = time.UnixMilli(n).UTC()
	} else {
		t.Time = time.Unix(n, 0).UTC()
	}
	return nil
}
