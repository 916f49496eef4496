package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"verbiage/internal/agent"
)

// wizardStep is one field of the agent creation wizard.
type wizardStep int

const (
	stepName wizardStep = iota
	stepDescription
	stepPrompt
	stepTemperature
	stepDone
)

type wizardState struct {
	step        wizardStep
	name        string
	description string
	prompt      string
	temperature float64
}

func (m Model) startWizard() (tea.Model, tea.Cmd) {
	m.mode = InputModeWizard
	m.wizard = wizardState{step: stepName}
	m.input.Reset()
	m.input.Placeholder = "Agent name"
	m.setStatus("Creating a new agent (esc cancels)", StatusInfo)
	m.refreshViewport()
	return m, nil
}

// submitWizardStep consumes one answer and advances the wizard. The
// agent is created once the last step completes.
func (m Model) submitWizardStep(text string) (tea.Model, tea.Cmd) {
	switch m.wizard.step {
	case stepName:
		if agent.NormalizeName(text) == "" {
			m.setStatus("Name must not be empty", StatusError)
			return m, nil
		}
		m.wizard.name = text
		m.wizard.step = stepDescription
		m.input.Reset()
		m.input.Placeholder = "Description (optional)"

	case stepDescription:
		m.wizard.description = text
		m.wizard.step = stepPrompt
		m.input.Reset()
		m.input.Placeholder = "System prompt"

	case stepPrompt:
		if strings.TrimSpace(text) == "" {
			m.setStatus("System prompt must not be empty", StatusError)
			return m, nil
		}
		m.wizard.prompt = text
		m.wizard.step = stepTemperature
		m.input.Reset()
		m.input.Placeholder = "Temperature 0.0-2.0 (empty for 0.7)"

	case stepTemperature:
		if text != "" {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil || f < 0 || f > 2 {
				m.setStatus("Temperature must be a number between 0.0 and 2.0", StatusError)
				return m, nil
			}
			m.wizard.temperature = f
		}
		return m.finishWizard()
	}

	m.refreshViewport()
	return m, nil
}

func (m Model) finishWizard() (tea.Model, tea.Cmd) {
	m.mode = InputModeNormal
	m.input.Reset()
	m.input.Placeholder = "Type a message or /help"

	created, err := m.session.Agents.Create(m.wizard.name, m.wizard.prompt, agent.CreateOptions{
		Description: m.wizard.description,
		Temperature: m.wizard.temperature,
	})
	if err != nil {
		m.setStatus(fmt.Sprintf("Cannot create agent: %v", err), StatusError)
	} else {
		m.setStatus(fmt.Sprintf("Agent '%s' created", created.Name), StatusSuccess)
	}
	m.wizard = wizardState{}
	m.refreshViewport()
	return m, nil
}

func (m Model) wizardView() string {
	var b strings.Builder
	b.WriteString(m.styles.BotLabel.Render("New agent"))
	b.WriteString("\n\n")
	if m.wizard.step > stepName {
		fmt.Fprintf(&b, "  Name:        %s\n", m.wizard.name)
	}
	if m.wizard.step > stepDescription {
		fmt.Fprintf(&b, "  Description: %s\n", m.wizard.description)
	}
	if m.wizard.step > stepPrompt {
		fmt.Fprintf(&b, "  Prompt:      %s\n", m.wizard.prompt)
	}
	b.WriteString("\n")

	switch m.wizard.step {
	case stepName:
		b.WriteString("Enter the agent's name.")
	case stepDescription:
		b.WriteString("Enter a short description, or leave empty.")
	case stepPrompt:
		b.WriteString("Enter the system prompt that defines this agent.")
	case stepTemperature:
		b.WriteString("Enter the sampling temperature, or leave empty for the default.")
	}
	return b.String()
}
