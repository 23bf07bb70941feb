package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dooshek/vibe/internal/cloud"
)

type control int

const (
	controlNone control = iota
	controlSend
	controlRecord
	controlSpeak
	controlHealth
)

// Rows outside the cloud: status line, prompt, control bar.
const chromeRows = 3

var (
	healthyColor   = lipgloss.Color("#7cf4ff")
	unhealthyColor = lipgloss.Color("#ff6f91")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c7b8ff"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7394"))
	buttonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e6e9ff"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(unhealthyColor)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7394"))

	roleStyles = map[string]lipgloss.Style{
		RoleYou:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd37c")),
		RoleVibe:   lipgloss.NewStyle().Bold(true).Foreground(healthyColor),
		RoleSystem: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b9a4ff")),
	}
	textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f4f6ff"))
)

type controlSpan struct {
	id    control
	label string
	style lipgloss.Style
	x0    int
	x1    int
}

// controls lays out the control bar, starting at column 1.
func (m Model) controls() []controlSpan {
	send := "[ Send ]"
	sendStyle := buttonStyle
	if m.sending {
		send = "[ Thinking… ]"
		sendStyle = disabledStyle
	}
	record := "[ ● Hold to talk ]"
	recordStyle := buttonStyle
	if m.recording {
		record = "[ ● Recording… ]"
		recordStyle = activeStyle
	}
	speak := "[ ] Speak"
	if m.speak {
		speak = "[x] Speak"
	}

	spans := []controlSpan{
		{id: controlSend, label: send, style: sendStyle},
		{id: controlRecord, label: record, style: recordStyle},
		{id: controlSpeak, label: speak, style: buttonStyle},
		{id: controlHealth, label: "[ ↻ Health ]", style: buttonStyle},
	}
	x := 1
	for i := range spans {
		spans[i].x0 = x
		x += lipgloss.Width(spans[i].label)
		spans[i].x1 = x
		x++
	}
	return spans
}

func (m Model) controlAt(x, y int) control {
	if m.height == 0 || y != m.height-1 {
		return controlNone
	}
	for _, c := range m.controls() {
		if x >= c.x0 && x < c.x1 {
			return c.id
		}
	}
	return controlNone
}

func (m Model) cloudSize() (cols, rows int) {
	return max(0, m.width), max(1, m.height-chromeRows)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.statusView())
	b.WriteByte('\n')

	cols, rows := m.cloudSize()
	canvas := cloud.Raster(m.cloud.Sprites, cols, rows, m.opts.CellWidth, m.opts.CellHeight)
	b.WriteString(canvas.Render(m.chatOverlays(cols, rows)))
	b.WriteByte('\n')

	b.WriteString(" " + m.input.View())
	b.WriteByte('\n')
	b.WriteString(m.controlsView())
	return b.String()
}

func (m Model) statusView() string {
	dot := lipgloss.NewStyle().Foreground(unhealthyColor)
	if m.healthy {
		dot = dot.Foreground(healthyColor)
	}
	left := " " + titleStyle.Render("vibe") + "  " + dot.Render("●") + " " + m.status
	hint := hintStyle.Render("enter send · ctrl+r talk · ctrl+t speak · f5 health · esc quit ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + hint
}

func (m Model) controlsView() string {
	var b strings.Builder
	b.WriteByte(' ')
	for i, c := range m.controls() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.style.Render(c.label))
	}
	return b.String()
}

// chatOverlays wraps the chat log to the cloud width and keeps the newest
// lines that fit, bottom aligned with a blank row between bubbles.
func (m Model) chatOverlays(cols, rows int) []cloud.Overlay {
	const margin = 2
	width := cols - 2*margin
	if width < 8 {
		return nil
	}

	var lines [][]cloud.Overlay
	for i, bubble := range m.bubbles {
		if i > 0 {
			lines = append(lines, nil)
		}
		label := bubble.Role + ": "
		labelWidth := lipgloss.Width(label)
		for j, text := range wrap(bubble.Text, max(1, width-labelWidth)) {
			line := []cloud.Overlay{{Col: margin + labelWidth, Text: text, Style: textStyle}}
			if j == 0 {
				line = append(line, cloud.Overlay{Col: margin, Text: label, Style: roleStyles[bubble.Role]})
			}
			lines = append(lines, line)
		}
	}

	if len(lines) > rows-1 {
		lines = lines[len(lines)-(rows-1):]
	}
	top := rows - 1 - len(lines)

	var out []cloud.Overlay
	for i, line := range lines {
		for _, o := range line {
			o.Row = top + i
			out = append(out, o)
		}
	}
	return out
}

func wrap(text string, width int) []string {
	rendered := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(rendered, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
