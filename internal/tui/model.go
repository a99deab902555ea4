package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"profile-assistant/internal/assistant"
)

// ChatPort is the TUI-facing subset of the assistant.
type ChatPort interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatResponse, error)
}

type transcriptLine struct {
	speaker string
	text    string
}

// Model is the Bubble Tea model for the local chat client.
type Model struct {
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []transcriptLine
	sessionID  string
	status     string
	waiting    bool
	ready      bool
}

type replyMsg struct {
	resp *assistant.ChatResponse
	err  error
}

// New creates a new TUI model instance.
func New(service ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the profile and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.sessionID = msg.resp.SessionID
			m.transcript = append(m.transcript, transcriptLine{speaker: "Assistant", text: msg.resp.Reply})
			m.status = fmt.Sprintf("Context: %s", msg.resp.ContextLabel)
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.transcript = append(m.transcript, transcriptLine{speaker: "You", text: q})
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				return m, m.sendCmd(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) sendCmd(query string) tea.Cmd {
	service := m.service
	sessionID := m.sessionID
	return func() tea.Msg {
		resp, err := service.Chat(context.Background(), assistant.ChatRequest{
			Message:   query,
			SessionID: sessionID,
		})
		return replyMsg{resp: resp, err: err}
	}
}

// View renders the TUI layout and the conversation transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Profile Assistant")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet."
	}
	var sb strings.Builder
	for i, line := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(speakerStyle.Render(line.speaker + ":"))
		sb.WriteString(" ")
		sb.WriteString(line.text)
	}
	return sb.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	speakerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
