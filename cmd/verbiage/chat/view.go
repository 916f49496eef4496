package chat

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	if !m.ready {
		return "Starting verbiage..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	title := "Verbiage"
	if conv := m.session.Conversations.Current(); conv != nil {
		title = fmt.Sprintf("Verbiage  [%s] %s", conv.ID, conv.Title)
	}
	if a := m.session.Agents.Current(); a != nil {
		title += m.styles.Faint.Render(fmt.Sprintf("  agent: %s", a.Name))
	}
	return m.styles.Header.Render(title)
}

func (m Model) footerView() string {
	var b strings.Builder

	if m.status != "" {
		style := m.styles.Info
		switch m.statusStyle {
		case StatusSuccess:
			style = m.styles.Success
		case StatusWarning:
			style = m.styles.Warning
		case StatusError:
			style = m.styles.Error
		}
		b.WriteString(style.Render(m.status))
	}
	b.WriteString("\n")

	if m.isLoading {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Faint.Render(" thinking..."))
	} else {
		b.WriteString(m.styles.Prompt.Render("> "))
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Faint.Render("enter send · /help commands · esc cancel · pgup/pgdn scroll"))
	return b.String()
}

// refreshViewport rebuilds the scrollback from the message log.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	if m.showHelp {
		m.viewport.SetContent(m.helpView())
		return
	}
	if m.mode == InputModeWizard {
		m.viewport.SetContent(m.wizardView())
		return
	}

	conv := m.session.Conversations.Current()
	if conv == nil {
		m.viewport.SetContent(m.welcomeView())
		return
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		switch msg.Role {
		case "user":
			b.WriteString(m.styles.UserLabel.Render(fmt.Sprintf("You · #%d", i+1)))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case "assistant":
			b.WriteString(m.styles.BotLabel.Render(fmt.Sprintf("Assistant · #%d", i+1)))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Content))
			if len(msg.ToolsUsed) > 0 {
				b.WriteString(m.styles.Faint.Render("tools: " + strings.Join(msg.ToolsUsed, ", ")))
				b.WriteString("\n")
			}
			for _, src := range msg.Sources {
				b.WriteString(m.styles.Faint.Render("  " + formatSource(src)))
				b.WriteString("\n")
			}
		default:
			b.WriteString(m.styles.Faint.Render(fmt.Sprintf("%s · #%d", msg.Role, i+1)))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
}

func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// formatSource flattens a citation record into one display line.
func formatSource(src map[string]any) string {
	title, _ := src["title"].(string)
	url, _ := src["url"].(string)
	switch {
	case title != "" && url != "":
		return fmt.Sprintf("%s <%s>", title, url)
	case title != "":
		return title
	case url != "":
		return url
	default:
		return fmt.Sprintf("%v", src)
	}
}

func (m Model) welcomeView() string {
	var b strings.Builder
	b.WriteString(m.styles.BotLabel.Render("Welcome to Verbiage"))
	b.WriteString("\n\n")
	b.WriteString("Chat with LLM agents from your terminal.\n\n")
	if a := m.session.Agents.Current(); a != nil {
		b.WriteString(fmt.Sprintf("Current agent: %s - %s\n\n", a.Name, a.Description))
	}
	b.WriteString(m.styles.Faint.Render("Type your first message to start a conversation, or /help for commands."))
	return b.String()
}

func (m Model) helpView() string {
	help := [][2]string{
		{"/quit", "exit"},
		{"/clear", "redraw the screen"},
		{"/new", "start a fresh conversation"},
		{"/list", "list saved conversations"},
		{"/load <id>", "load a conversation"},
		{"/undo", "delete the last message"},
		{"/delete <n>", "delete message n"},
		{"/edit <n>", "edit message n (user edits regenerate the reply)"},
		{"/raw [n]", "show message n (or the last one) unformatted"},
		{"/agents", "list agents"},
		{"/agent <name>", "switch agent"},
		{"/create-agent", "create a new agent"},
		{"/export-agent <name> <file>", "export an agent definition"},
		{"/import-agent <file>", "import an agent definition"},
		{"/config", "show the effective configuration"},
		{"/help", "this help"},
	}

	var b strings.Builder
	b.WriteString(m.styles.BotLabel.Render("Commands"))
	b.WriteString("\n\n")
	for _, h := range help {
		fmt.Fprintf(&b, "  %-30s %s\n", h[0], h[1])
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Faint.Render("Prefix an edited message with \"/web \" to enable web search for that turn."))
	return b.String()
}
