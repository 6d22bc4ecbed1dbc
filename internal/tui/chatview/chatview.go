// ABOUTME: Support chat screen with a scrolling message list and an input line
// ABOUTME: Emits messages for send, delete, leave, and input changes; owns no network state

package chatview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/tui/styles"
)

// SendMsg asks to send the input text
type SendMsg struct {
	Text string
}

// DeleteLastMsg asks to delete the user's most recent message
type DeleteLastMsg struct{}

// LeaveMsg asks to close the chat
type LeaveMsg struct{}

// InputChangedMsg reports the current input text after an edit
type InputChangedMsg struct {
	Text string
}

// Chat renders one conversation
type Chat struct {
	viewport viewport.Model
	input    textinput.Model
	ready    bool

	selfID   string
	messages []client.ChatMessage
	typing   bool
	status   string
	err      string
	width    int
	height   int
}

// chrome is the number of lines around the viewport: title, status, input, help
const chrome = 6

// New creates the chat screen for the signed-in user
func New(selfID string) *Chat {
	ti := textinput.New()
	ti.Placeholder = "Type a message"
	ti.CharLimit = 2000
	ti.Prompt = "> "
	ti.Focus()

	return &Chat{
		input:    ti,
		selfID:   selfID,
		status:   "connecting",
		viewport: viewport.New(80, 10),
	}
}

// SetMessages replaces the visible conversation
func (c *Chat) SetMessages(messages []client.ChatMessage, typing bool) {
	atBottom := c.viewport.AtBottom()
	c.messages = messages
	c.typing = typing
	c.viewport.SetContent(c.renderMessages())
	if atBottom || !c.ready {
		c.viewport.GotoBottom()
	}
}

// SetStatus shows the connection mode
func (c *Chat) SetStatus(status string) {
	c.status = status
}

// SetError shows an error line; empty clears it
func (c *Chat) SetError(message string) {
	c.err = message
}

// RestoreInput puts text back into the input after a failed send
func (c *Chat) RestoreInput(text string) {
	c.input.SetValue(text)
	c.input.CursorEnd()
}

// Init implements tea.Model
func (c *Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		c.viewport.Width = msg.Width
		c.viewport.Height = max(3, msg.Height-chrome)
		c.input.Width = max(10, msg.Width-4)
		c.viewport.SetContent(c.renderMessages())
		c.ready = true
		return c, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return c, func() tea.Msg { return LeaveMsg{} }
		case "enter":
			text := c.input.Value()
			if strings.TrimSpace(text) == "" {
				return c, nil
			}
			c.input.Reset()
			c.err = ""
			return c, tea.Batch(
				func() tea.Msg { return SendMsg{Text: text} },
				func() tea.Msg { return InputChangedMsg{} },
			)
		case "ctrl+x":
			return c, func() tea.Msg { return DeleteLastMsg{} }
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			c.viewport, cmd = c.viewport.Update(msg)
			return c, cmd
		}

		before := c.input.Value()
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		if after := c.input.Value(); after != before {
			return c, tea.Batch(cmd, func() tea.Msg { return InputChangedMsg{Text: after} })
		}
		return c, cmd
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// View implements tea.Model
func (c *Chat) View() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Support chat"))
	sb.WriteString(" ")
	sb.WriteString(styles.Subtitle.Render("(" + c.status + ")"))
	sb.WriteString("\n")
	sb.WriteString(c.viewport.View())
	sb.WriteString("\n")
	if c.typing {
		sb.WriteString(styles.PendingText.Render("Support is typing..."))
	}
	sb.WriteString("\n")
	sb.WriteString(c.input.View())
	if c.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.Error.Render(c.err))
	}
	return sb.String()
}

func (c *Chat) renderMessages() string {
	if len(c.messages) == 0 {
		return styles.Subtitle.Render("No messages yet. Say hello!")
	}
	width := c.viewport.Width
	if width <= 0 {
		width = 80
	}
	lines := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		lines = append(lines, renderMessage(m, c.selfID, width))
	}
	return strings.Join(lines, "\n")
}

func renderMessage(m client.ChatMessage, selfID string, width int) string {
	name := styles.AgentName.Render("Support")
	if m.SenderID == selfID {
		name = styles.SelfName.Render("You")
	}
	stamp := styles.Timestamp.Render(m.Timestamp.Local().Format("15:04"))

	text := m.Text
	if m.Pending {
		text = styles.PendingText.Render(text + " (sending)")
	}
	body := lipgloss.NewStyle().Width(max(10, width-2)).Render(text)
	return fmt.Sprintf("%s %s\n%s", stamp, name, body)
}
