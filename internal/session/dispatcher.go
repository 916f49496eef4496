package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Action tells the front-end what interactive follow-up a handler
// needs beyond printing the result. Two commands (edit, create-agent)
// collect further input; the front-end gathers it and calls back into
// the session so the handlers themselves stay non-interactive.
type Action int

const (
	ActionNone Action = iota
	ActionRefresh
	ActionShowHelp
	ActionEditPrompt
	ActionCreateAgent
)

// Result is a handler's display output.
type Result struct {
	Output  string
	IsError bool
	Action  Action

	// Prefill for the edit prompt, set when Action is ActionEditPrompt.
	EditIndex   int
	EditContent string
}

func errorf(format string, args ...any) Result {
	return Result{Output: fmt.Sprintf(format, args...), IsError: true}
}

func okf(format string, args ...any) Result {
	return Result{Output: fmt.Sprintf(format, args...)}
}

// Handler processes one command line. It returns false only to end the
// session loop.
type Handler func(s *Session, fields []string) (Result, bool)

// Dispatcher routes slash commands to handlers by their lower-cased
// first token. Unrecognized commands route to a generic unknown
// handler; no command ever fails the session.
type Dispatcher struct {
	session  *Session
	handlers map[string]Handler
}

// NewDispatcher builds the command table for a session.
func NewDispatcher(s *Session) *Dispatcher {
	return &Dispatcher{
		session: s,
		handlers: map[string]Handler{
			"/quit":         handleQuit,
			"/clear":        handleClear,
			"/new":          handleNew,
			"/list":         handleList,
			"/load":         handleLoad,
			"/undo":         handleUndo,
			"/delete":       handleDelete,
			"/edit":         handleEdit,
			"/help":         handleHelp,
			"/agents":       handleAgents,
			"/agent":        handleAgent,
			"/create-agent": handleCreateAgent,
			"/export-agent": handleExportAgent,
			"/import-agent": handleImportAgent,
			"/raw":          handleRaw,
			"/config":       handleConfig,
		},
	}
}

// IsCommand reports whether the input line is a command rather than a
// chat turn.
func (d *Dispatcher) IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// Dispatch runs the handler for one command line. The returned bool is
// false only for quit.
func (d *Dispatcher) Dispatch(line string) (Result, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Result{}, true
	}
	handler, ok := d.handlers[strings.ToLower(fields[0])]
	if !ok {
		handler = handleUnknown
	}
	return handler(d.session, fields)
}

func handleQuit(_ *Session, _ []string) (Result, bool) {
	return okf("Goodbye!"), false
}

func handleClear(_ *Session, _ []string) (Result, bool) {
	return Result{Action: ActionRefresh}, true
}

func handleNew(s *Session, _ []string) (Result, bool) {
	s.Conversations.Clear()
	r := okf("New conversation started. Type your first message!")
	r.Action = ActionRefresh
	return r, true
}

func handleList(s *Session, _ []string) (Result, bool) {
	summaries := s.Conversations.List()
	if len(summaries) == 0 {
		return okf("No saved conversations."), true
	}
	var b strings.Builder
	b.WriteString("Saved conversations:\n")
	for _, c := range summaries {
		fmt.Fprintf(&b, "  %s  %-50s  %d messages  %s\n",
			c.ID, c.Title, c.MessageCount, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return okf("%s", strings.TrimRight(b.String(), "\n")), true
}

func handleLoad(s *Session, fields []string) (Result, bool) {
	if len(fields) != 2 {
		return errorf("Usage: /load <id>"), true
	}
	id := fields[1]
	if _, ok := s.Conversations.Load(id); !ok {
		return errorf("Conversation %s not found.", id), true
	}
	r := okf("Conversation %s loaded!", id)
	r.Action = ActionRefresh
	return r, true
}

func handleUndo(s *Session, _ []string) (Result, bool) {
	if !s.Conversations.DeleteLast() {
		return errorf("No message to delete"), true
	}
	s.autoSave()
	r := okf("Last message deleted")
	r.Action = ActionRefresh
	return r, true
}

func handleDelete(s *Session, fields []string) (Result, bool) {
	if len(fields) != 2 {
		return errorf("Usage: /delete <number>"), true
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return errorf("Invalid message number"), true
	}
	if !s.Conversations.Delete(index) {
		return errorf("Cannot delete message #%d", index), true
	}
	s.autoSave()
	r := okf("Message #%d deleted", index)
	r.Action = ActionRefresh
	return r, true
}

// handleEdit validates the index and hands the current content back to
// the front-end for editing; the edit-then-regenerate policy runs in
// CompleteEdit once the replacement text comes back.
func handleEdit(s *Session, fields []string) (Result, bool) {
	if len(fields) != 2 {
		return errorf("Usage: /edit <number>"), true
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return errorf("Invalid message number"), true
	}
	msg, ok := s.Conversations.Get(index)
	if !ok {
		return errorf("Message #%d not found", index), true
	}
	return Result{
		Action:      ActionEditPrompt,
		EditIndex:   index,
		EditContent: msg.Content,
	}, true
}

func handleHelp(_ *Session, _ []string) (Result, bool) {
	return Result{Action: ActionShowHelp}, true
}

func handleAgents(s *Session, _ []string) (Result, bool) {
	var b strings.Builder
	if current := s.Agents.Current(); current != nil {
		fmt.Fprintf(&b, "Current agent: %s\n", current.Name)
	} else {
		b.WriteString("Current agent: none\n")
	}
	b.WriteString("Available agents:\n")
	for _, a := range s.Agents.List() {
		fmt.Fprintf(&b, "  %-15s temp=%.1f  %s\n", a.Name, a.Temperature, a.Description)
	}
	return okf("%s", strings.TrimRight(b.String(), "\n")), true
}

func handleAgent(s *Session, fields []string) (Result, bool) {
	if len(fields) != 2 {
		return errorf("Usage: /agent <name>"), true
	}
	name := fields[1]
	if !s.Agents.Switch(name) {
		return errorf("Agent '%s' not found", name), true
	}
	current := s.Agents.Current()
	return okf("Agent switched: %s - %s", current.Name, current.Description), true
}

func handleCreateAgent(_ *Session, _ []string) (Result, bool) {
	return Result{Action: ActionCreateAgent}, true
}

func handleExportAgent(s *Session, fields []string) (Result, bool) {
	if len(fields) != 3 {
		return errorf("Usage: /export-agent <name> <file>"), true
	}
	if !s.Agents.Export(fields[1], fields[2]) {
		return errorf("Cannot export agent '%s'", fields[1]), true
	}
	return okf("Agent '%s' exported to %s", fields[1], fields[2]), true
}

func handleImportAgent(s *Session, fields []string) (Result, bool) {
	if len(fields) != 2 {
		return errorf("Usage: /import-agent <file>"), true
	}
	a, ok := s.Agents.Import(fields[1])
	if !ok {
		return errorf("Cannot import agent from %s", fields[1]), true
	}
	return okf("Agent '%s' imported", a.Name), true
}

func handleRaw(s *Session, fields []string) (Result, bool) {
	count := s.Conversations.Count()
	if s.Conversations.Current() == nil {
		return errorf("No active conversation"), true
	}
	if count == 0 {
		return errorf("No message in this conversation"), true
	}

	index := count
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return errorf("Invalid message number"), true
		}
		if n < 1 || n > count {
			return errorf("Invalid message number. Must be between 1 and %d", count), true
		}
		index = n
	}
	msg, _ := s.Conversations.Get(index)
	return okf("%s", msg.Content), true
}

func handleConfig(s *Session, _ []string) (Result, bool) {
	return okf("%s", strings.Join(s.Config.Describe(), "\n")), true
}

func handleUnknown(_ *Session, fields []string) (Result, bool) {
	return errorf("Unknown command: %s. Type /help for the command list.", fields[0]), true
}
