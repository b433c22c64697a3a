package sandbox

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/models"
)

// maxUploadBytes bounds a single send-file request.
const maxUploadBytes = 32 << 20

type Handler struct {
	rooms *RoomStore
	notes *NotificationStore
	blobs *BlobStore
	hub   *Hub
	log   zerolog.Logger
	up    websocket.Upgrader
}

func NewHandler(rooms *RoomStore, notes *NotificationStore, blobs *BlobStore, hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		rooms: rooms,
		notes: notes,
		blobs: blobs,
		hub:   hub,
		log:   log,
		up: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes mounts the chat, notification, asset and websocket endpoints.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/chat/rooms", h.listRooms).Methods(http.MethodGet)
	api.HandleFunc("/chat/room", h.getRoom).Methods(http.MethodGet)
	api.HandleFunc("/chat/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/chat/seen", h.markSeen).Methods(http.MethodPost)
	api.HandleFunc("/chat/send", h.send).Methods(http.MethodPost)
	api.HandleFunc("/chat/send-file", h.sendFile).Methods(http.MethodPost)

	api.HandleFunc("/{role}/notifications", h.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/{role}/notifications", h.deleteNotification).Methods(http.MethodDelete)
	api.HandleFunc("/{role}/notifications/mark-read", h.markNotificationRead).Methods(http.MethodPatch)
	api.HandleFunc("/{role}/notifications/mark-all-read", h.markAllNotificationsRead).Methods(http.MethodPost)

	r.HandleFunc("/file/{name}", h.serveFile).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.serveWS)
	return r
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	writeJSON(w, h.rooms.RoomsFor(userID))
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.rooms.Room(r.URL.Query().Get("room_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, room)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if _, ok := h.rooms.Room(roomID); !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, h.rooms.History(roomID, limit))
}

func (h *Handler) markSeen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "roomId and userId are required")
		return
	}
	h.rooms.MarkSeen(req.RoomID, req.UserID, time.Now().UTC())
	w.WriteHeader(http.StatusNoContent)
}

type sendRequest struct {
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	ReplyToID string `json:"replyToId"`
	TempID    string `json:"tempId"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "undecodable request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	h.confirmAndBroadcast(w, req, nil)
}

func (h *Handler) sendFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "undecodable multipart body")
		return
	}
	req := sendRequest{
		RoomID:    r.FormValue("roomId"),
		SenderID:  r.FormValue("senderId"),
		Text:      r.FormValue("text"),
		ReplyToID: r.FormValue("replyToId"),
		TempID:    r.FormValue("tempId"),
	}

	var atts []models.Attachment
	for _, hdr := range r.MultipartForm.File["files"] {
		f, err := hdr.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		// Served back with whatever type the client declared, mislabels
		// included.
		ctype := hdr.Header.Get("Content-Type")
		atts = append(atts, models.Attachment{
			URL:      h.blobs.Put(hdr.Filename, ctype, data),
			Name:     hdr.Filename,
			MIMEType: ctype,
			Size:     int64(len(data)),
		})
	}
	if req.Text == "" && len(atts) == 0 {
		writeError(w, http.StatusBadRequest, "message needs text or files")
		return
	}
	h.confirmAndBroadcast(w, req, atts)
}

// confirmAndBroadcast stores the message, echoes it to every socket in the
// room and returns the confirmed copy. The echo and the response carry the
// same id; that identity is what lets senders deduplicate.
func (h *Handler) confirmAndBroadcast(w http.ResponseWriter, req sendRequest, atts []models.Attachment) {
	if req.RoomID == "" || req.SenderID == "" {
		writeError(w, http.StatusBadRequest, "roomId and senderId are required")
		return
	}
	msg, ok := h.rooms.NewMessage(req.RoomID, req.SenderID, req.Text, req.ReplyToID, req.TempID, atts)
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	payload, err := json.Marshal(msg)
	if err == nil {
		frame, _ := json.Marshal(models.Event{
			Type:    models.EventChatMessage,
			RoomID:  req.RoomID,
			Message: payload,
		})
		h.hub.Broadcast(req.RoomID, frame)
	}
	writeJSON(w, msg)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	mime, data, ok := h.blobs.Get(mux.Vars(r)["name"])
	if !ok {
		writeError(w, http.StatusNotFound, "no such file")
		return
	}
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	_, _ = w.Write(data)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	items, total := h.notes.List(role, page, size)
	writeJSON(w, map[string]any{"items": items, "total": total})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if !h.notes.MarkRead(mux.Vars(r)["role"], req.ID) {
		writeError(w, http.StatusNotFound, "no such notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	h.notes.MarkAllRead(mux.Vars(r)["role"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if !h.notes.Delete(mux.Vars(r)["role"], id) {
		writeError(w, http.StatusNotFound, "no such notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		userID: r.URL.Query().Get("user_id"),
		send:   make(chan []byte, 64),
	}
	h.hub.add(c)

	go func() {
		for data := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				break
			}
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		ev, err := models.ParseEvent(data)
		if err != nil {
			h.log.Debug().Err(err).Msg("dropping malformed client frame")
			continue
		}
		if ev.Type == models.EventJoinChat {
			h.hub.switchRoom(c, ev.RoomID)
		}
	}
	h.hub.drop(c)
	conn.Close()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
