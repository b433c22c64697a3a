// Package render turns the message list into a terminal transcript:
// sender-relative alignment, reply chips, body truncation with a read-more
// toggle and one tile per attachment, dispatched by MIME class.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/collabry/collabry-go/internal/fileurl"
	"github.com/collabry/collabry-go/internal/models"
)

const defaultTruncateAt = 320

type Options struct {
	SelfID     string
	Width      int
	TruncateAt int
	Resolver   *fileurl.Resolver
}

type Renderer struct {
	opts      Options
	expanded  map[string]bool
	highlight string

	selfStyle      lipgloss.Style
	otherStyle     lipgloss.Style
	metaStyle      lipgloss.Style
	chipStyle      lipgloss.Style
	highlightColor lipgloss.Color
}

func New(opts Options) *Renderer {
	if opts.TruncateAt <= 0 {
		opts.TruncateAt = defaultTruncateAt
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	return &Renderer{
		opts:     opts,
		expanded: make(map[string]bool),
		selfStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		otherStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		metaStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		chipStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Italic(true),
		highlightColor: lipgloss.Color("214"),
	}
}

// SetWidth adjusts the layout width on terminal resize. Expanded state is
// kept.
func (r *Renderer) SetWidth(w int) {
	if w > 0 {
		r.opts.Width = w
	}
}

// ToggleExpand flips the read-more state for a message. The full text is
// already in memory; no refetch happens.
func (r *Renderer) ToggleExpand(id string) { r.expanded[id] = !r.expanded[id] }

func (r *Renderer) IsExpanded(id string) bool { return r.expanded[id] }

// SetHighlight marks one message for emphasis on the next render. Reply-jump
// uses it to flag the message the viewport landed on.
func (r *Renderer) SetHighlight(id string) { r.highlight = id }

func (r *Renderer) ClearHighlight() { r.highlight = "" }

func (r *Renderer) Highlighted() string { return r.highlight }

// JumpOffset returns the transcript line on which the message at idx starts,
// suitable for a viewport y-offset.
func (r *Renderer) JumpOffset(msgs []models.Message, counterpartName string, idx int) int {
	offset := 0
	for i := 0; i < idx && i < len(msgs); i++ {
		offset += lipgloss.Height(r.Bubble(&msgs[i], counterpartName))
	}
	return offset
}

// Transcript renders every message in order. An empty list yields an empty
// transcript, not an error state.
func (r *Renderer) Transcript(msgs []models.Message, counterpartName string) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Bubble(&m, counterpartName))
	}
	return b.String()
}

// Bubble renders one message with its reply chip and attachment tiles.
func (r *Renderer) Bubble(m *models.Message, counterpartName string) string {
	var lines []string

	if m.ReplyTo != nil {
		lines = append(lines, r.replyChip(m.ReplyTo))
	}

	body, truncated := r.bodyFor(m)
	if body != "" {
		lines = append(lines, body)
	}
	if truncated {
		label := "… Read more"
		if r.expanded[m.ID] {
			label = "Read less"
		}
		lines = append(lines, r.metaStyle.Render("["+label+"]"))
	}

	for _, att := range m.Attachments {
		lines = append(lines, r.attachmentTile(&att))
	}

	who := counterpartName
	style := r.otherStyle
	align := lipgloss.Left
	if m.SenderID == r.opts.SelfID {
		who = "you"
		style = r.selfStyle
		align = lipgloss.Right
	}
	if m.ID == r.highlight {
		style = style.BorderForeground(r.highlightColor)
	}
	meta := who
	if !m.SentAt.IsZero() {
		meta += " · " + m.SentAt.Format("15:04")
	}
	lines = append(lines, r.metaStyle.Render(meta))

	bubble := style.MaxWidth(r.opts.Width * 3 / 4).Render(strings.Join(lines, "\n"))
	return lipgloss.PlaceHorizontal(r.opts.Width, align, bubble)
}

func (r *Renderer) replyChip(snap *models.ReplySnapshot) string {
	excerpt := snap.Text
	if n := []rune(excerpt); len(n) > 60 {
		excerpt = string(n[:60]) + "…"
	}
	chip := fmt.Sprintf("↩ %s: %s", snap.SenderID, excerpt)
	if snap.HasAttachment {
		chip += " 📎"
	}
	return r.chipStyle.Render(chip)
}

// bodyFor applies the truncation budget unless the message is expanded.
func (r *Renderer) bodyFor(m *models.Message) (string, bool) {
	runes := []rune(m.Text)
	if len(runes) <= r.opts.TruncateAt || r.expanded[m.ID] {
		return m.Text, len(runes) > r.opts.TruncateAt
	}
	return string(runes[:r.opts.TruncateAt]), true
}

func (r *Renderer) attachmentTile(att *models.Attachment) string {
	url := att.URL
	if r.opts.Resolver != nil {
		url = r.opts.Resolver.Resolve(att.URL)
	}
	name := att.Name
	if name == "" {
		name = url
	}
	switch fileurl.Classify(att.MIMEType, att.Name) {
	case fileurl.KindImage:
		dims := ""
		if att.Width > 0 && att.Height > 0 {
			dims = fmt.Sprintf(" %dx%d", att.Width, att.Height)
		}
		return fmt.Sprintf("🖼 %s%s  %s", name, dims, r.metaStyle.Render(url))
	case fileurl.KindVideo:
		return fmt.Sprintf("🎬 %s  %s", name, r.metaStyle.Render(url))
	case fileurl.KindPDF:
		return fmt.Sprintf("📄 %s  %s", name, r.metaStyle.Render("(o: preview, d: download)"))
	default:
		return fmt.Sprintf("📁 %s  %s", name, r.metaStyle.Render("(d: download)"))
	}
}
