package chat

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/pkg/apperr"
)

// Composer holds the draft for one room: text, an optional reply target and
// a queue of selected files. Draft state is cleared only after a successful
// send; failures leave everything intact for a user-initiated retry.
//
// Each send is tracked in a pending map keyed by a client-generated temp id.
// The websocket echo of an own send is recognized by that temp id (or, in
// the common case, by the server reusing the confirmed message id, which the
// store's dedup guard already absorbs). Entries leave the map on the first
// matching echo so the map stays bounded over a long session.
type Composer struct {
	api         *API
	store       *MessageStore
	roomID      string
	selfID      string
	maxFileSize int64
	log         zerolog.Logger

	mu      sync.Mutex
	text    string
	reply   *models.ReplySnapshot
	files   []httpx.Upload
	pending map[string]string // temp id -> confirmed id, "" while in flight
}

func NewComposer(api *API, store *MessageStore, roomID, selfID string, maxFileSize int64, log zerolog.Logger) *Composer {
	return &Composer{
		api:         api,
		store:       store,
		roomID:      roomID,
		selfID:      selfID,
		maxFileSize: maxFileSize,
		log:         log,
		pending:     make(map[string]string),
	}
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SetReply records m as the reply target for the next send.
func (c *Composer) SetReply(m *models.Message) {
	c.mu.Lock()
	c.reply = m.SnapshotFor()
	c.mu.Unlock()
}

func (c *Composer) Reply() *models.ReplySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reply
}

func (c *Composer) ClearReply() {
	c.mu.Lock()
	c.reply = nil
	c.mu.Unlock()
}

// AttachFile reads a local file into the outgoing queue. Oversized files are
// rejected before any request is issued.
func (c *Composer) AttachFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "attachment not readable", err)
	}
	if c.maxFileSize > 0 && info.Size() > c.maxFileSize {
		return apperr.InvalidArg("attachment exceeds the size limit")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "attachment not readable", err)
	}
	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.attach(httpx.Upload{Name: name, ContentType: ct, Data: data})
	return nil
}

// AttachData queues an in-memory attachment.
func (c *Composer) AttachData(name, contentType string, data []byte) error {
	if c.maxFileSize > 0 && int64(len(data)) > c.maxFileSize {
		return apperr.InvalidArg("attachment exceeds the size limit")
	}
	c.attach(httpx.Upload{Name: name, ContentType: contentType, Data: data})
	return nil
}

func (c *Composer) attach(u httpx.Upload) {
	c.mu.Lock()
	c.files = append(c.files, u)
	c.mu.Unlock()
}

func (c *Composer) Attachments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.Name
	}
	return names
}

func (c *Composer) ClearAttachments() {
	c.mu.Lock()
	c.files = nil
	c.mu.Unlock()
}

// ConsumeTemp reports whether tempID belongs to a send issued by this
// composer, pending or already confirmed. A hit removes the entry: one echo
// per send is expected, and later same-id duplicates are absorbed by the
// store's id guard anyway.
func (c *Composer) ConsumeTemp(tempID string) bool {
	if tempID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[tempID]; !ok {
		return false
	}
	delete(c.pending, tempID)
	return true
}

// Send submits the current draft. Text-only drafts go through the JSON send
// endpoint, anything with files through the multipart upload. The confirmed
// message is appended through the same dedup path used for websocket
// delivery, so the later broadcast echo does not duplicate it.
func (c *Composer) Send(ctx context.Context) (*models.Message, error) {
	c.mu.Lock()
	text := c.text
	reply := c.reply
	files := make([]httpx.Upload, len(c.files))
	copy(files, c.files)
	if text == "" && len(files) == 0 {
		c.mu.Unlock()
		return nil, apperr.InvalidArg("nothing to send")
	}
	tempID := uuid.NewString()
	c.pending[tempID] = ""
	c.mu.Unlock()

	req := SendRequest{
		RoomID:   c.roomID,
		SenderID: c.selfID,
		Text:     text,
		TempID:   tempID,
	}
	if reply != nil {
		req.ReplyToID = reply.MessageID
	}

	var (
		confirmed *models.Message
		err       error
	)
	if len(files) > 0 {
		confirmed, err = c.api.SendFiles(ctx, req, files)
	} else {
		confirmed, err = c.api.SendText(ctx, req)
	}
	if err != nil {
		// Roll the pending entry back and keep the draft for retry.
		c.mu.Lock()
		delete(c.pending, tempID)
		c.mu.Unlock()
		return nil, err
	}

	if confirmed.RoomID == "" {
		confirmed.RoomID = c.roomID
	}
	if confirmed.TempID == "" {
		confirmed.TempID = tempID
	}
	if confirmed.ReplyTo == nil && reply != nil {
		confirmed.ReplyTo = reply
	}
	c.store.Append(*confirmed)

	c.mu.Lock()
	// The echo may have raced the confirmation and consumed the entry
	// already; do not resurrect it.
	if _, still := c.pending[tempID]; still {
		c.pending[tempID] = confirmed.ID
	}
	c.text = ""
	c.reply = nil
	c.files = nil
	c.mu.Unlock()

	return confirmed, nil
}
