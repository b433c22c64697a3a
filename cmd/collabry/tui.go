package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/chat"
	"github.com/collabry/collabry-go/internal/fileurl"
	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/internal/notify"
	"github.com/collabry/collabry-go/internal/render"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type tuiDeps struct {
	sess     *chat.Session
	feed     *notify.Feed
	renderer *render.Renderer
	assets   *render.Assets
	banner   string
	log      zerolog.Logger
}

type chatTUI struct {
	sess     *chat.Session
	feed     *notify.Feed
	renderer *render.Renderer
	assets   *render.Assets
	log      zerolog.Logger

	vp    viewport.Model
	input textinput.Model

	width  int
	height int
	ready  bool

	banner string
	notice string
	// messages that arrived while the viewport was scrolled up
	pendingNew int
	closed     bool
	// when the reply-jump highlight fades
	highlightUntil time.Time
}

type (
	incomingMsg   struct{ m *models.Message }
	updatesClosed struct{}
	sendResult    struct {
		text string
		err  error
	}
	statusTick time.Time
)

func newChatTUI(deps tuiDeps) chatTUI {
	in := textinput.New()
	in.Placeholder = "Message (Enter to send, /help for commands)"
	in.Prompt = "> "
	in.Focus()
	in.CharLimit = 0
	return chatTUI{
		sess:     deps.sess,
		feed:     deps.feed,
		renderer: deps.renderer,
		assets:   deps.assets,
		log:      deps.log,
		banner:   deps.banner,
		input:    in,
	}
}

func (m chatTUI) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.tick(), textinput.Blink)
}

// listen blocks on the session's update channel and feeds messages into the
// program.
func (m chatTUI) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.sess.Updates()
		if !ok {
			return updatesClosed{}
		}
		return incomingMsg{m: msg}
	}
}

func (m chatTUI) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return statusTick(t) })
}

func (m chatTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer.SetWidth(msg.Width)
		m.input.Width = max(msg.Width-4, 10)
		vpHeight := max(msg.Height-5, 3)
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
			m.refresh(true)
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
			m.refresh(false)
		}
		return m, nil

	case incomingMsg:
		atBottom := m.vp.AtBottom()
		m.refresh(atBottom)
		if !atBottom {
			m.pendingNew++
		}
		return m, m.listen()

	case updatesClosed:
		m.closed = true
		return m, nil

	case sendResult:
		if msg.err != nil {
			// Draft and reply state survive; retry is another Enter.
			m.banner = msg.err.Error()
		} else {
			m.banner = ""
			// Keep anything typed while the send was in flight.
			if m.input.Value() == msg.text {
				m.input.SetValue("")
			}
			m.refresh(true)
		}
		return m, nil

	case statusTick:
		if m.renderer.Highlighted() != "" && time.Now().After(m.highlightUntil) {
			m.renderer.ClearHighlight()
			m.refresh(false)
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			if m.vp.AtBottom() {
				m.pendingNew = 0
			}
			return m, cmd
		case "end":
			m.vp.GotoBottom()
			m.pendingNew = 0
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	// Typed characters belong to the input; only non-key events (mouse,
	// frame ticks) reach the viewport here.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m chatTUI) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		model := m.command(text)
		return model, nil
	}
	if text == "" && len(m.sess.Composer.Attachments()) == 0 {
		return m, nil
	}
	m.sess.Composer.SetText(text)
	composer := m.sess.Composer
	return m, func() tea.Msg {
		_, err := composer.Send(context.Background())
		return sendResult{text: text, err: err}
	}
}

// command handles the slash commands. Draft mutations are local; only Enter
// on a non-command line talks to the backend.
func (m chatTUI) command(line string) chatTUI {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	m.notice = ""
	m.banner = ""

	switch cmd {
	case "/help":
		m.notice = "/reply <n> · /jump <n> · /cancel · /attach <path> · /expand <n> · /open <n> · /save <n> <dir> · Esc quits"
	case "/cancel":
		m.sess.Composer.ClearReply()
		m.sess.Composer.ClearAttachments()
		m.notice = "draft reply and attachments cleared"
	case "/reply":
		if target, ok := m.messageArg(args); ok {
			m.sess.Composer.SetReply(&target)
			m.notice = fmt.Sprintf("replying to %s", excerpt(target.Text, 40))
		}
	case "/jump":
		if target, ok := m.messageArg(args); ok {
			m.jumpToReplied(&target)
		}
	case "/expand":
		if target, ok := m.messageArg(args); ok {
			m.renderer.ToggleExpand(target.ID)
			m.refresh(false)
		}
	case "/attach":
		if len(args) != 1 {
			m.banner = "usage: /attach <path>"
			break
		}
		if err := m.sess.Composer.AttachFile(args[0]); err != nil {
			m.banner = err.Error()
			break
		}
		m.notice = "attached: " + strings.Join(m.sess.Composer.Attachments(), ", ")
	case "/open":
		if target, ok := m.messageArg(args); ok {
			m.previewPDF(&target)
		}
	case "/save":
		if len(args) != 2 {
			m.banner = "usage: /save <n> <dir>"
			break
		}
		if target, ok := m.messageArg(args[:1]); ok {
			m.saveAttachments(&target, args[1])
		}
	default:
		m.banner = "unknown command " + cmd
	}
	m.input.SetValue("")
	return m
}

// messageArg resolves a 1-based transcript index from the command arguments.
func (m *chatTUI) messageArg(args []string) (models.Message, bool) {
	if len(args) != 1 {
		m.banner = "expected a message number"
		return models.Message{}, false
	}
	n, err := strconv.Atoi(args[0])
	msgs := m.sess.Store.Messages()
	if err != nil || n < 1 || n > len(msgs) {
		m.banner = fmt.Sprintf("message number must be 1..%d", len(msgs))
		return models.Message{}, false
	}
	return msgs[n-1], true
}

// jumpToReplied scrolls the viewport to the message a reply chip points at
// and highlights it until the next fade tick.
func (m *chatTUI) jumpToReplied(target *models.Message) {
	if target.ReplyTo == nil {
		m.banner = "that message is not a reply"
		return
	}
	idx := m.sess.Store.IndexOf(target.ReplyTo.MessageID)
	if idx < 0 {
		m.banner = "the original message is not in this view"
		return
	}
	msgs := m.sess.Store.Messages()
	m.renderer.SetHighlight(msgs[idx].ID)
	m.highlightUntil = time.Now().Add(3 * time.Second)
	m.refresh(false)
	m.vp.SetYOffset(m.renderer.JumpOffset(msgs, m.sess.CounterpartLabel(), idx))
	m.notice = "jumped to the original message"
}

func (m *chatTUI) previewPDF(target *models.Message) {
	for i := range target.Attachments {
		att := &target.Attachments[i]
		coerced := fileurl.CoerceMIME(att.MIMEType, att.Name)
		if fileurl.Classify(coerced, att.Name) != fileurl.KindPDF {
			continue
		}
		path, err := m.assets.PreviewPDF(context.Background(), att)
		if err != nil {
			m.banner = err.Error()
			return
		}
		m.notice = "preview written to " + path
		return
	}
	m.banner = "no pdf attachment on that message"
}

func (m *chatTUI) saveAttachments(target *models.Message, dir string) {
	if len(target.Attachments) == 0 {
		m.banner = "no attachments on that message"
		return
	}
	var saved []string
	for i := range target.Attachments {
		dest, err := m.assets.Download(context.Background(), &target.Attachments[i], dir)
		if err != nil {
			m.banner = err.Error()
			return
		}
		saved = append(saved, dest)
	}
	m.notice = "saved " + strings.Join(saved, ", ")
}

func (m *chatTUI) refresh(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderer.Transcript(m.sess.Store.Messages(), m.sess.CounterpartLabel()))
	if gotoBottom {
		m.vp.GotoBottom()
		m.pendingNew = 0
	}
}

func (m chatTUI) View() string {
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder

	unread := ""
	if m.feed != nil {
		if n := m.feed.Unread(); n > 0 {
			unread = fmt.Sprintf("  🔔 %d", n)
		}
	}
	state := m.sess.ConnState().String()
	if m.closed {
		state = "closed"
	}
	b.WriteString(headerStyle.Render(m.sess.CounterpartLabel()))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  [%s]%s", state, unread)))
	b.WriteString("\n")

	b.WriteString(m.vp.View())
	b.WriteString("\n")

	if m.pendingNew > 0 {
		b.WriteString(noticeStyle.Render(fmt.Sprintf("↓ %d new message(s), End to jump", m.pendingNew)))
		b.WriteString("\n")
	}

	if reply := m.sess.Composer.Reply(); reply != nil {
		b.WriteString(statusStyle.Render("↩ replying to: " + excerpt(reply.Text, 60)))
		b.WriteString("\n")
	}
	if atts := m.sess.Composer.Attachments(); len(atts) > 0 {
		b.WriteString(statusStyle.Render("📎 " + strings.Join(atts, ", ")))
		b.WriteString("\n")
	}
	if m.banner != "" {
		b.WriteString(bannerStyle.Render(m.banner))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(statusStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	return b.String()
}

func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
