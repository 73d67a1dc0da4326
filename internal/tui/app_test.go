package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/sentinel/internal/llmclient"
	"github.com/ftahirops/sentinel/internal/model"
)

type fakeProvider struct {
	snap   *model.SystemSnapshot
	alerts []model.Alert
	ok     bool
}

func (f fakeProvider) Latest() (*model.SystemSnapshot, []model.Alert, bool) {
	return f.snap, f.alerts, f.ok
}

func TestViewBeforeFirstSampleShowsWaiting(t *testing.T) {
	m := New(fakeProvider{}, time.Second, nil)
	if !strings.Contains(m.View(), "waiting for first sample") {
		t.Fatalf("expected waiting message, got %q", m.View())
	}
}

func TestUpdateCollectMsgPopulatesView(t *testing.T) {
	m := New(fakeProvider{}, time.Second, nil)
	msg := collectMsg{
		snap: &model.SystemSnapshot{Hostname: "box1", GlobalCPUUsage: 12.5, TotalMemory: 100, UsedMemory: 50},
		alerts: []model.Alert{
			{Severity: model.SeverityCritical, Message: "disk nearly full"},
		},
		ok: true,
	}
	updated, _ := m.Update(msg)
	m2 := updated.(Model)

	view := m2.View()
	if !strings.Contains(view, "box1") {
		t.Fatalf("expected hostname in view, got %q", view)
	}
	if !strings.Contains(view, "disk nearly full") {
		t.Fatalf("expected alert message in view, got %q", view)
	}
}

func TestUpdateNoAlertsShowsHealthyLine(t *testing.T) {
	m := New(fakeProvider{}, time.Second, nil)
	msg := collectMsg{snap: &model.SystemSnapshot{Hostname: "box1"}, ok: true}
	updated, _ := m.Update(msg)
	view := updated.(Model).View()
	if !strings.Contains(view, "no active alerts") {
		t.Fatalf("expected healthy line, got %q", view)
	}
}

func TestUpdateLLMTextChunkAccumulates(t *testing.T) {
	ch := make(chan llmclient.Event, 4)
	m := New(fakeProvider{}, time.Second, ch)

	seed, _ := m.Update(collectMsg{snap: &model.SystemSnapshot{Hostname: "box1"}, ok: true})
	m = seed.(Model)

	updated, _ := m.Update(llmChunkMsg{Kind: llmclient.EventTextChunk, Text: "analysis: "})
	m = updated.(Model)
	updated, _ = m.Update(llmChunkMsg{Kind: llmclient.EventTextChunk, Text: "all clear"})
	m = updated.(Model)

	if !strings.Contains(m.View(), "analysis: all clear") {
		t.Fatalf("expected accumulated assistant text in view, got %q", m.View())
	}
}

func TestKeyQQuits(t *testing.T) {
	m := New(fakeProvider{}, time.Second, nil)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m2 := updated.(Model)
	if !m2.quitting {
		t.Fatalf("expected quitting to be set")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
}
