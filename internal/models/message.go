package models

import "time"

// Message is one chat bubble in a room. Messages are immutable once
// received; TempID is only set on the optimistic local copy of a send that
// has not been confirmed yet.
type Message struct {
	ID          string         `json:"id"`
	TempID      string         `json:"tempId,omitempty"`
	RoomID      string         `json:"roomId"`
	SenderID    string         `json:"senderId"`
	Text        string         `json:"text"`
	SentAt      time.Time      `json:"sentAt"`
	ReplyTo     *ReplySnapshot `json:"replyTo,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// ReplySnapshot is a denormalized copy of the replied-to message, carried on
// the replying message so the chip renders without a second fetch.
type ReplySnapshot struct {
	MessageID     string `json:"messageId"`
	SenderID      string `json:"senderId"`
	Text          string `json:"text"`
	HasAttachment bool   `json:"hasAttachment"`
}

// Attachment is owned by its parent message and never mutated.
type Attachment struct {
	URL          string  `json:"url"`
	Name         string  `json:"name"`
	MIMEType     string  `json:"mimeType"`
	Size         int64   `json:"size,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	StorageClass string  `json:"storageClass,omitempty"`
}

// HasAttachments reports whether the message carries at least one attachment.
func (m *Message) HasAttachments() bool { return len(m.Attachments) > 0 }

// SnapshotFor builds the reply snapshot a new message should carry when it
// replies to m.
func (m *Message) SnapshotFor() *ReplySnapshot {
	return &ReplySnapshot{
		MessageID:     m.ID,
		SenderID:      m.SenderID,
		Text:          m.Text,
		HasAttachment: m.HasAttachments(),
	}
}
