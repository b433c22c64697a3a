package models

import (
	"encoding/json"

	"github.com/collabry/collabry-go/pkg/apperr"
)

// WebSocket frame types exchanged with the backend.
const (
	EventJoinChat    = "joinChat"
	EventChatMessage = "chatMessage"
)

// Event is the JSON envelope carried on the websocket in both directions.
type Event struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message,omitempty"`
}

// ParseEvent decodes a raw frame into an Event. Anything that is not a JSON
// object with a type is reported as a malformed payload; the caller decides
// whether to drop or surface it.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedPayload, "undecodable frame", err)
	}
	if ev.Type == "" {
		return nil, apperr.Malformed("frame missing type")
	}
	return &ev, nil
}

// ChatMessage normalizes the message payload of a chatMessage event.
func (e *Event) ChatMessage() (*Message, error) {
	if e.Type != EventChatMessage {
		return nil, apperr.Malformed("not a chatMessage event")
	}
	if len(e.Message) == 0 {
		return nil, apperr.Malformed("chatMessage event without message")
	}
	return NormalizeMessage(e.Message)
}

// JoinFrame builds the control frame that subscribes the socket to a room.
func JoinFrame(roomID string) []byte {
	data, _ := json.Marshal(Event{Type: EventJoinChat, RoomID: roomID})
	return data
}
