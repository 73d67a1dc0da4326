// Package tui implements the Bubble Tea external collaborator: a
// minimal terminal renderer over the coordinator's latest state
// (spec.md §1/§5). Grounded on the teacher's ui/app.go (tickMsg/
// collectMsg message shape, tea.Batch(tick, collectOnce) Init idiom),
// narrowed from the teacher's fifteen-page Page enum to a single status
// view since full dashboard rendering is out of spec.md's scope.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/sentinel/internal/llmclient"
	"github.com/ftahirops/sentinel/internal/model"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1)
)

func severityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityDanger, model.SeverityCritical:
		return critStyle
	case model.SeverityWarning:
		return warnStyle
	default:
		return okStyle
	}
}

// StateProvider is the tui's view of the coordinator: a pull-based
// snapshot of the latest tick, mirroring the teacher's engine.Ticker
// (the coordinator plays Ticker's role here). It must be safe for
// concurrent use since Update runs on Bubble Tea's own goroutine while
// the coordinator mutates state on its own.
type StateProvider interface {
	Latest() (snap *model.SystemSnapshot, alerts []model.Alert, ok bool)
}

type tickMsg time.Time

type collectMsg struct {
	snap   *model.SystemSnapshot
	alerts []model.Alert
	ok     bool
}

type llmChunkMsg llmclient.Event

// Model is the Bubble Tea model for the single status view.
type Model struct {
	provider StateProvider
	interval time.Duration
	llmChan  <-chan llmclient.Event

	width, height int

	snap   *model.SystemSnapshot
	alerts []model.Alert

	assistantText string
	assistantDone bool

	quitting bool
}

// New builds a Model. llmChan may be nil if no LLM collaborator is
// configured; the model simply never receives llmChunkMsg in that case.
func New(provider StateProvider, interval time.Duration, llmChan <-chan llmclient.Event) Model {
	return Model{provider: provider, interval: interval, llmChan: llmChan}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(m.interval), collectOnce(m.provider)}
	if m.llmChan != nil {
		cmds = append(cmds, waitForChunk(m.llmChan))
	}
	return tea.Batch(cmds...)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func collectOnce(provider StateProvider) tea.Cmd {
	return func() tea.Msg {
		snap, alerts, ok := provider.Latest()
		return collectMsg{snap: snap, alerts: alerts, ok: ok}
	}
}

func waitForChunk(ch <-chan llmclient.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return llmChunkMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(tick(m.interval), collectOnce(m.provider))

	case collectMsg:
		if msg.ok {
			m.snap = msg.snap
			m.alerts = msg.alerts
		}
		return m, nil

	case llmChunkMsg:
		switch msg.Kind {
		case llmclient.EventTextChunk:
			m.assistantText += msg.Text
		case llmclient.EventDone:
			m.assistantDone = true
		case llmclient.EventError:
			m.assistantText += fmt.Sprintf("\n[llm error: %v]", msg.Err)
			m.assistantDone = true
		}
		if m.llmChan != nil {
			return m, waitForChunk(m.llmChan)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		return "sentinel: waiting for first sample...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("sentinel — %s", m.snap.Hostname)))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("CPU") + fmt.Sprintf(" %5.1f%%   ", m.snap.GlobalCPUUsage))
	b.WriteString(labelStyle.Render("Mem") + fmt.Sprintf(" %5.1f%%   ", m.snap.MemoryPercent()))
	b.WriteString(labelStyle.Render("Load1") + fmt.Sprintf(" %.2f   ", m.snap.Load.Load1))
	b.WriteString(labelStyle.Render("Procs") + fmt.Sprintf(" %d\n", m.snap.TotalProcesses))

	if m.snap.CPUTemperature != nil {
		b.WriteString(labelStyle.Render("CPU Temp") + fmt.Sprintf(" %.1f°C\n", m.snap.CPUTemperature.PackageCelsius))
	}

	b.WriteString("\n")
	if len(m.alerts) == 0 {
		b.WriteString(okStyle.Render("no active alerts") + "\n")
	} else {
		b.WriteString(titleStyle.Render("alerts") + "\n")
		for _, a := range m.alerts {
			style := severityStyle(a.Severity)
			b.WriteString(style.Render(fmt.Sprintf("[%s] %s", a.Severity, a.Message)) + "\n")
		}
	}

	if m.assistantText != "" {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.assistantText))
		b.WriteString("\n")
	}

	b.WriteString("\n" + labelStyle.Render("q: quit"))
	return b.String()
}
