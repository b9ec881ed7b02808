package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/czarbot/czarbot/internal/server"
)

// Model is the Bubble Tea model for the chat client. All game state
// lives on the server; the model only renders the line stream and
// forwards typed input.
type Model struct {
	client  *Client
	channel string
	logger  *log.Logger

	// UI components
	logViewport viewport.Model
	chatInput   textinput.Model

	// State
	lines       []string
	quitting    bool
	width       int
	height      int
	initialized bool
}

// serverMsg wraps an incoming server message for the update loop.
type serverMsg struct {
	msg *server.Message
}

// disconnectedMsg signals that the receive channel closed.
type disconnectedMsg struct{}

// NewModel creates the chat model for a connected client.
func NewModel(client *Client, channel string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "Chat, or a command like !start, !join, !pick 2"
	ti.Focus()
	ti.CharLimit = 400
	ti.Width = 80
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		client:      client,
		channel:     channel,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		chatInput:   ti,
		lines:       []string{},
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForServer())
}

// waitForServer returns a command that blocks on the next server
// message.
func (m *Model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Receive()
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles messages in the TUI.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case disconnectedMsg:
		m.quitting = true
		m.appendLine(ErrorStyle.Render("Disconnected from server."))
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case serverMsg:
		m.appendLine(m.renderServerMessage(msg.msg))
		cmds = append(cmds, m.waitForServer())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = m.width
		m.logViewport.Height = max(m.height-4, 3)
		m.chatInput.Width = max(m.width-4, 20)
		m.logViewport.SetContent(strings.Join(m.lines, "\n"))
		m.logViewport.GotoBottom()
		m.initialized = true

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			_ = m.client.Disconnect()
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			text := strings.TrimSpace(m.chatInput.Value())
			if text != "" {
				if err := m.client.Chat(m.channel, text); err != nil {
					m.appendLine(ErrorStyle.Render("Send failed: " + err.Error()))
				}
			}
			m.chatInput.SetValue("")
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	cmds = append(cmds, cmd)

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	header := HeaderStyle.Render(fmt.Sprintf(" %s | %s ", m.channel, m.client.Handle()))
	return strings.Join([]string{
		header,
		m.logViewport.View(),
		m.chatInput.View(),
	}, "\n")
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if m.initialized {
		m.logViewport.SetContent(strings.Join(m.lines, "\n"))
		m.logViewport.GotoBottom()
	}
}

// renderServerMessage formats an incoming message as one display line.
func (m *Model) renderServerMessage(msg *server.Message) string {
	switch msg.Type {
	case server.MessageTypeWelcome:
		var data server.WelcomeData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			return NoticeStyle.Render(fmt.Sprintf("Connected as %s.", data.Handle))
		}
	case server.MessageTypeLine:
		var data server.LineData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			return ChatLineStyle.Render(fmt.Sprintf("<%s> %s", data.From, data.Text))
		}
	case server.MessageTypeNotice:
		var data server.NoticeData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			return NoticeStyle.Render("* " + data.Text)
		}
	case server.MessageTypeVoice:
		var data server.VoiceData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			sign := "+"
			if !data.Granted {
				sign = "-"
			}
			return VoiceStyle.Render(fmt.Sprintf("* voice %s%s in %s", sign, data.Handle, data.Channel))
		}
	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			return ErrorStyle.Render(fmt.Sprintf("Error (%s): %s", data.Code, data.Message))
		}
	}
	return InfoStyle.Render(fmt.Sprintf("[%s]", msg.Type))
}

// Run connects the model to a terminal program and blocks until the
// user quits or the connection drops.
func Run(client *Client, channel string, logger *log.Logger) error {
	model := NewModel(client, channel, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
