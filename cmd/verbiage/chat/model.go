// Package chat provides the interactive TUI for verbiage. The chat
// interface is split across files:
//   - model.go: types, Init, Update loop
//   - view.go: rendering
//   - wizard.go: the agent creation wizard
//
// The UI layer only renders dispatcher results and the message log;
// all session semantics live in internal/session.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"verbiage/internal/conversation"
	"verbiage/internal/session"
)

// InputMode represents the current input handling state.
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeEdit
	InputModeWizard
)

// replyMsg carries the assistant message produced by a completed turn.
type replyMsg struct {
	message conversation.Message
}

// editDoneMsg carries the outcome of an edit-with-regeneration.
type editDoneMsg struct {
	ok bool
}

// Model is the bubbletea model for the interactive chat.
type Model struct {
	session    *session.Session
	dispatcher *session.Dispatcher

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   Styles
	renderer *glamour.TermRenderer

	mode      InputMode
	editIndex int
	wizard    wizardState

	status      string
	statusStyle StatusKind
	isLoading   bool
	showHelp    bool
	width       int
	height      int
	ready       bool
}

// StatusKind selects the style of the status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// New builds the chat model around an assembled session.
func New(sess *session.Session) Model {
	input := textinput.New()
	input.Placeholder = "Type a message or /help"
	input.Focus()
	input.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	return Model{
		session:    sess,
		dispatcher: session.NewDispatcher(sess),
		input:      input,
		spinner:    sp,
		styles:     DefaultStyles(),
		renderer:   renderer,
	}
}

// Run starts the interactive chat loop.
func Run(sess *session.Session) error {
	p := tea.NewProgram(New(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 3
		footerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.isLoading = false
		m.setStatus("", StatusInfo)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case editDoneMsg:
		m.isLoading = false
		if msg.ok {
			m.setStatus("Message edited", StatusSuccess)
		} else {
			m.setStatus("Edit failed", StatusError)
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		// Interruption is a soft warning, never a cancellation of an
		// in-flight call.
		m.setStatus("Interrupt caught. Type /quit to exit cleanly.", StatusWarning)
		return m, nil

	case tea.KeyEsc:
		if m.mode != InputModeNormal {
			m.mode = InputModeNormal
			m.input.Reset()
			m.input.Placeholder = "Type a message or /help"
			m.setStatus("Cancelled", StatusInfo)
			m.refreshViewport()
			return m, nil
		}

	case tea.KeyEnter:
		if m.isLoading {
			return m, nil
		}
		return m.handleSubmit()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	switch m.mode {
	case InputModeEdit:
		return m.submitEdit(text)
	case InputModeWizard:
		return m.submitWizardStep(text)
	}

	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.showHelp = false

	if m.dispatcher.IsCommand(text) {
		return m.runCommand(text)
	}
	return m.startTurn(text, false)
}

// runCommand dispatches a slash command and applies its result.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	result, cont := m.dispatcher.Dispatch(line)
	if !cont {
		return m, tea.Quit
	}

	switch result.Action {
	case session.ActionEditPrompt:
		m.mode = InputModeEdit
		m.editIndex = result.EditIndex
		m.input.SetValue(result.EditContent)
		m.input.Placeholder = "Edit the message (empty cancels, /web prefix enables search)"
		m.setStatus(fmt.Sprintf("Editing message #%d", result.EditIndex), StatusInfo)
		return m, nil

	case session.ActionCreateAgent:
		return m.startWizard()

	case session.ActionShowHelp:
		m.showHelp = true
		m.refreshViewport()
		return m, nil
	}

	if result.Output != "" {
		kind := StatusSuccess
		if result.IsError {
			kind = StatusError
		}
		m.setStatus(result.Output, kind)
	}
	m.refreshViewport()
	return m, nil
}

// startTurn runs one chat turn on a background command so the spinner
// keeps animating while the call is in flight.
func (m Model) startTurn(text string, webSearch bool) (tea.Model, tea.Cmd) {
	m.isLoading = true
	m.setStatus("", StatusInfo)

	sess := m.session
	send := func() tea.Msg {
		return replyMsg{message: sess.SendTurn(context.Background(), text, webSearch)}
	}
	return m, tea.Batch(m.spinner.Tick, send)
}

func (m Model) submitEdit(text string) (tea.Model, tea.Cmd) {
	index := m.editIndex
	m.mode = InputModeNormal
	m.editIndex = 0
	m.input.Reset()
	m.input.Placeholder = "Type a message or /help"

	if text == "" {
		m.setStatus("Edit cancelled", StatusInfo)
		return m, nil
	}

	m.isLoading = true
	sess := m.session
	edit := func() tea.Msg {
		_, ok := sess.CompleteEdit(context.Background(), index, text)
		return editDoneMsg{ok: ok}
	}
	return m, tea.Batch(m.spinner.Tick, edit)
}

func (m *Model) setStatus(text string, kind StatusKind) {
	m.status = text
	m.statusStyle = kind
}
