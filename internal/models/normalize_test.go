package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabry/collabry-go/pkg/apperr"
)

func TestNormalizeMessageCanonical(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "m1", "roomId": "r1", "senderId": "u1", "text": "hello",
		"sentAt": "2026-08-20T10:00:00Z",
		"replyTo": {"messageId": "m0", "senderId": "u2", "text": "hi", "hasAttachment": true},
		"attachments": [{"url": "/file/a.png", "name": "a.png", "mimeType": "image/png", "size": 42}]
	}`)
	m, err := NormalizeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "r1", m.RoomID)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), m.SentAt)
	require.NotNil(t, m.ReplyTo)
	assert.Equal(t, "m0", m.ReplyTo.MessageID)
	assert.True(t, m.ReplyTo.HasAttachment)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "image/png", m.Attachments[0].MIMEType)
}

func TestNormalizeMessageLegacySpelling(t *testing.T) {
	raw := json.RawMessage(`{
		"_id": "m2", "room_id": "r1", "sender_id": "u9",
		"content": "legacy", "timestamp": 1755684000,
		"files": [{"fileUrl": "report.pdf", "filename": "report.pdf", "contentType": "application/pdf"}]
	}`)
	m, err := NormalizeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "m2", m.ID)
	assert.Equal(t, "u9", m.SenderID)
	assert.Equal(t, "legacy", m.Text)
	assert.Equal(t, int64(1755684000), m.SentAt.Unix())
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "report.pdf", m.Attachments[0].URL)
}

func TestNormalizeMessageEpochMillis(t *testing.T) {
	raw := json.RawMessage(`{"id": "m3", "senderId": "u1", "timestamp": 1755684000123}`)
	m, err := NormalizeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1755684000), m.SentAt.Unix())
}

func TestNormalizeMessageMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":   `{"id": `,
		"missing id": `{"senderId": "u1", "text": "x"}`,
		"no sender":  `{"id": "m1", "text": "x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeMessage(json.RawMessage(raw))
			require.Error(t, err)
			assert.Equal(t, apperr.CodeMalformedPayload, apperr.CodeOf(err))
		})
	}
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"chatMessage","roomId":"r1","message":{"id":"m1","senderId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChatMessage, ev.Type)
	msg, err := ev.ChatMessage()
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	_, err = ParseEvent([]byte("not json"))
	assert.Equal(t, apperr.CodeMalformedPayload, apperr.CodeOf(err))

	_, err = ParseEvent([]byte(`{"roomId":"r1"}`))
	assert.Equal(t, apperr.CodeMalformedPayload, apperr.CodeOf(err))
}

func TestJoinFrame(t *testing.T) {
	ev, err := ParseEvent(JoinFrame("r42"))
	require.NoError(t, err)
	assert.Equal(t, EventJoinChat, ev.Type)
	assert.Equal(t, "r42", ev.RoomID)
}

func TestCounterpart(t *testing.T) {
	room := &Room{ID: "r1", Participants: []Participant{
		{ID: "brand-1", DisplayName: "Glow Cosmetics", Role: "brand"},
		{ID: "inf-1", DisplayName: "Ava", Role: "influencer"},
	}}
	other := room.Counterpart("inf-1")
	require.NotNil(t, other)
	assert.Equal(t, "Glow Cosmetics", other.DisplayName)
	assert.Nil(t, (&Room{Participants: []Participant{{ID: "u1"}}}).Counterpart("u1"))
}
