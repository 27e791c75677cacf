package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"docqa/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ChatSession is the part of service.Session the terminal client needs.
type ChatSession interface {
	LoadDocument(ctx context.Context, name string, data []byte) (types.Document, error)
	Ask(ctx context.Context, question string) (types.Turn, error)
	Messages() []types.Message
	DocumentLoaded() bool
}

type documentLoadedMsg struct {
	doc types.Document
	err error
}

type answeredMsg struct {
	turn types.Turn
	err  error
}

const loadCommand = "/load "

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	transcriptBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the Bubble Tea model of the chat client.
type Model struct {
	ctx      context.Context
	session  ChatSession
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	busy    string // текст индикатора, пока идёт извлечение или генерация
	pending string
	status  string
	isError bool
	ready   bool
}

func New(ctx context.Context, session ChatSession) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "/load path/to/file.pdf"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		status:   "Please upload a PDF document to start chatting!",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// LoadFile returns a command that uploads the PDF at path into the session.
func (m Model) LoadFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return documentLoadedMsg{err: err}
		}
		doc, err := m.session.LoadDocument(m.ctx, path, data)
		return documentLoadedMsg{doc: doc, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.session.Ask(m.ctx, question)
		return answeredMsg{turn: turn, err: err}
	}
}

// StartLoad marks the model busy and returns the upload command.
func (m Model) StartLoad(path string) (Model, tea.Cmd) {
	m.busy = "Processing document..."
	return m, tea.Batch(m.LoadFile(path), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		frameW, frameH := transcriptBox.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-frameW)
		m.viewport.Height = max(3, msg.Height-frameH-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}

	case documentLoadedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Document '%s' processed!", msg.doc.Name), false)
		m.input.Placeholder = "Ask a question about your document"
		m.refresh()
		return m, nil

	case answeredMsg:
		m.busy = ""
		m.pending = ""
		switch {
		case msg.err != nil:
			m.setStatus(msg.err.Error(), true)
		case msg.turn.Answer.Error:
			m.setStatus("completion service failed", true)
		default:
			m.setStatus("", false)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if path, ok := strings.CutPrefix(text, loadCommand); ok {
		m.input.Reset()
		return m.StartLoad(strings.TrimSpace(path))
	}

	if !m.session.DocumentLoaded() {
		m.setStatus("Please upload a PDF document to start chatting!", true)
		return m, nil
	}

	m.input.Reset()
	m.pending = text
	m.busy = "Thinking..."
	m.refresh()
	return m, tea.Batch(m.ask(text), m.spinner.Tick)
}

func (m *Model) setStatus(s string, isError bool) {
	m.status = s
	m.isError = isError
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	var sb strings.Builder
	width := max(10, m.viewport.Width)
	body := lipgloss.NewStyle().Width(width)

	for _, msg := range m.session.Messages() {
		switch msg.Role {
		case types.RoleUser:
			sb.WriteString(userStyle.Render("you"))
		default:
			sb.WriteString(assistantStyle.Render("assistant"))
		}
		sb.WriteString("\n")
		content := body.Render(msg.Content)
		if msg.Error {
			content = errorStyle.Render(content)
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	if m.pending != "" {
		sb.WriteString(userStyle.Render("you"))
		sb.WriteString("\n")
		sb.WriteString(body.Render(m.pending))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("RAG-Powered PDF Chatbot")

	var footer string
	switch {
	case m.busy != "":
		footer = m.spinner.View() + " " + m.busy
	case m.isError:
		footer = errorStyle.Render(m.status)
	default:
		footer = hintStyle.Render(m.status)
	}

	return header + "\n" +
		transcriptBox.Render(m.viewport.View()) + "\n" +
		m.input.View() + "\n" +
		footer
}
