package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/llmclient"
	"github.com/ftahirops/sentinel/internal/model"
)

func TestDispatchAutoAnalysisNoopWhenClientDisabled(t *testing.T) {
	state := newStateHolder(nil)
	state.Observe(&model.SystemSnapshot{Hostname: "box1"}, 0)

	events := make(chan llmclient.Event, 4)
	d := &autoAnalysisDispatcher{client: llmclient.New(llmclient.Config{}), state: state, events: events}
	d.DispatchAutoAnalysis()

	select {
	case ev := <-events:
		t.Fatalf("expected no events from a disabled client, got %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDispatchAutoAnalysisForwardsStreamedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte(`data: {"type":"content_block_delta","delta":{"text":"all clear"}}` + "\n\n"))
		flusher.Flush()
		w.Write([]byte(`data: {"type":"message_stop"}` + "\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	st := openTestStore(t)
	state := newStateHolder(st)
	state.Observe(&model.SystemSnapshot{Hostname: "box1"}, 0)

	client := llmclient.New(llmclient.Config{Endpoint: srv.URL, APIKey: "test-key"})
	events := make(chan llmclient.Event, 4)
	d := &autoAnalysisDispatcher{client: client, store: st, state: state, events: events}

	d.DispatchAutoAnalysis()

	var got []llmclient.Event
	deadline := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %d", len(got))
		}
	}
	if got[0].Kind != llmclient.EventTextChunk || got[0].Text != "all clear" {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[1].Kind != llmclient.EventDone {
		t.Fatalf("unexpected second event: %+v", got[1])
	}
}
