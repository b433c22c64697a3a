package main

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabry/collabry-go/internal/chat"
	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/internal/render"
)

// newTranscriptTUI builds a ready view over count seeded messages, where the
// message at replyIdx replies to the one at targetIdx.
func newTranscriptTUI(t *testing.T, count, replyIdx, targetIdx int) chatTUI {
	t.Helper()
	sess := chat.NewSession(chat.SessionOptions{RoomID: "r1", SelfID: "me", Logger: zerolog.Nop()})
	for i := 0; i < count; i++ {
		m := models.Message{ID: fmt.Sprintf("m%d", i), RoomID: "r1", SenderID: "other", Text: fmt.Sprintf("line %d", i)}
		if i == replyIdx {
			m.ReplyTo = &models.ReplySnapshot{MessageID: fmt.Sprintf("m%d", targetIdx), SenderID: "other", Text: "orig"}
		}
		require.True(t, sess.Store.Append(m))
	}
	tui := newChatTUI(tuiDeps{
		sess:     sess,
		renderer: render.New(render.Options{SelfID: "me", Width: 80}),
		log:      zerolog.Nop(),
	})
	model, _ := tui.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	return model.(chatTUI)
}

func enterCommand(t *testing.T, m chatTUI, line string) chatTUI {
	t.Helper()
	m.input.SetValue(line)
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return model.(chatTUI)
}

func TestJumpScrollsToRepliedMessage(t *testing.T) {
	m := newTranscriptTUI(t, 12, 11, 2)

	m = enterCommand(t, m, "/jump 12")
	assert.Empty(t, m.banner)
	assert.Equal(t, "m2", m.renderer.Highlighted())

	msgs := m.sess.Store.Messages()
	assert.Equal(t, m.renderer.JumpOffset(msgs, m.sess.CounterpartLabel(), 2), m.vp.YOffset)
	assert.Empty(t, m.input.Value())
}

func TestJumpRejectsNonReplyAndMissingTarget(t *testing.T) {
	m := newTranscriptTUI(t, 3, 2, 0)

	m = enterCommand(t, m, "/jump 1")
	assert.Contains(t, m.banner, "not a reply")

	// A reply whose original fell out of the loaded history.
	require.True(t, m.sess.Store.Append(models.Message{
		ID: "m-re", RoomID: "r1", SenderID: "other", Text: "re",
		ReplyTo: &models.ReplySnapshot{MessageID: "gone", SenderID: "other", Text: "x"},
	}))
	m = enterCommand(t, m, "/jump 4")
	assert.Contains(t, m.banner, "not in this view")
	assert.Empty(t, m.renderer.Highlighted())
}

func TestSendResultKeepsTextTypedDuringFlight(t *testing.T) {
	m := newChatTUI(tuiDeps{log: zerolog.Nop()})

	m.input.SetValue("first draft plus more typing")
	model, _ := m.Update(sendResult{text: "first draft"})
	got := model.(chatTUI)
	assert.Equal(t, "first draft plus more typing", got.input.Value(), "in-flight typing survives the confirmation")

	got.input.SetValue("first draft")
	model, _ = got.Update(sendResult{text: "first draft"})
	assert.Empty(t, model.(chatTUI).input.Value())
}
