// Package tui is a terminal front-end over the question-answering pipeline.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/pipeline"
)

// Asker is the TUI-facing subset of the pipeline.
type Asker interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

type answerMsg struct {
	question string
	resp     *pipeline.Response
	err      error
}

// Model is the Bubble Tea model for the assistant.
type Model struct {
	asker     Asker
	namespace string
	timeout   time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history     core.History
	transcript  []string
	model       core.ModelID
	showSources bool
	busy        bool
	status      string
	ready       bool
}

// New creates a new TUI model. timeout bounds each question; zero means none.
func New(asker Asker, namespace string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document library and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		asker:     asker,
		namespace: namespace,
		timeout:   timeout,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		model:     core.DefaultModel,
		status:    "Enter asks, Tab switches model, Ctrl+S toggles sources, Ctrl+R clears history.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		// header, status and a spacer line
		vh := msg.Height - 3 - ih - bh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		m.history = msg.resp.History
		m.transcript = append(m.transcript, youStyle.Render("You: ")+msg.question, msg.resp.Payload.PlainText())
		for _, w := range msg.resp.Warnings {
			m.transcript = append(m.transcript, warnStyle.Render("Warning: "+w))
		}
		m.status = fmt.Sprintf("Answered by %s in %s", msg.resp.ModelUsed, msg.resp.Elapsed.Round(100*time.Millisecond))
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = "Thinking..."
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "tab":
			m.model = nextModel(m.model)
			m.status = "Model: " + string(m.model)
			return m, nil
		case "ctrl+s":
			m.showSources = !m.showSources
			m.status = "Sources " + onOff(m.showSources)
			return m, nil
		case "ctrl+r":
			m.history = nil
			m.transcript = nil
			m.status = "History cleared"
			m.refresh()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the pipeline off the event loop.
func (m Model) ask(question string) tea.Cmd {
	req := pipeline.Request{
		Question:    question,
		Model:       m.model,
		ShowSources: m.showSources,
		Namespace:   m.namespace,
		History:     m.history,
	}
	asker, timeout := m.asker, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := asker.Run(ctx, req)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

func (m *Model) refresh() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("No questions yet.")
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Forestry Virtual Assistant") + "  " +
		dimStyle.Render(fmt.Sprintf("model %s, sources %s", m.model, onOff(m.showSources)))
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + transcriptStyle.Render(m.viewport.View()) + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

func nextModel(cur core.ModelID) core.ModelID {
	models := core.SupportedModels()
	for i, id := range models {
		if id == cur {
			return models[(i+1)%len(models)]
		}
	}
	return models[0]
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	youStyle        = lipgloss.NewStyle().Bold(true)
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
