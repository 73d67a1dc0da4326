package cmd

import (
	"context"
	"log"
	"time"

	"github.com/ftahirops/sentinel/internal/diagnostics"
	"github.com/ftahirops/sentinel/internal/llmclient"
	"github.com/ftahirops/sentinel/internal/store"
)

// systemPrompt is handed to the LLM on every auto-analysis request; it
// frames the context blob FullContext assembles (spec.md §4.5.7).
const systemPrompt = "You are the narrative layer of a host monitoring tool. " +
	"You are given a snapshot of diagnostic findings for one machine. " +
	"Summarize anything that needs operator attention in a few sentences; say so plainly if nothing does."

// autoAnalysisDispatcher implements coordinator.AutoAnalysisDispatcher:
// on each periodic trigger it assembles the composed diagnostic context
// and streams it to the LLM, forwarding chunks to the TUI's channel.
// Fire-and-forget per spec.md §5: DispatchAutoAnalysis never blocks the
// coordinator, and a dispatch already in flight when the next one fires
// is simply superseded (its events may still trickle in and interleave,
// which is acceptable for a "thinking..." style display).
type autoAnalysisDispatcher struct {
	client *llmclient.Client
	store  *store.Store
	state  *stateHolder
	events chan<- llmclient.Event
}

func (a *autoAnalysisDispatcher) DispatchAutoAnalysis() {
	if a.client == nil || !a.client.Enabled() {
		return
	}
	go a.run()
}

func (a *autoAnalysisDispatcher) run() {
	snap := a.state.Snapshot()
	if snap == nil {
		return
	}

	contextBlob, err := diagnostics.FullContext(a.store, time.Now(), snap, nil)
	if err != nil {
		log.Printf("sentinel: auto-analysis context assembly failed: %v", err)
		return
	}

	conv := llmclient.Conversation{}.AppendUser(contextBlob)
	stream, err := a.client.Stream(context.Background(), systemPrompt, conv)
	if err != nil {
		log.Printf("sentinel: auto-analysis stream start failed: %v", err)
		return
	}

	for ev := range stream {
		select {
		case a.events <- ev:
		default:
		}
	}
}
