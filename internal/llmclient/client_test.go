package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func drain(t *testing.T, ch <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out draining events, got %d so far", len(events))
		}
	}
}

func newSSEServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
	}))
}

func TestStreamDeliversTextChunksThenDone(t *testing.T) {
	srv := newSSEServer(t, []string{
		`{"type":"content_block_delta","delta":{"text":"hello "}}`,
		`{"type":"content_block_delta","delta":{"text":"world"}}`,
		`{"type":"message_stop"}`,
	})
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "test-key"})
	ch, err := c.Stream(context.Background(), "system prompt", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := drain(t, ch, time.Second)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventTextChunk || events[0].Text != "hello " {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Kind != EventTextChunk || events[1].Text != "world" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if events[2].Kind != EventDone {
		t.Fatalf("expected done event, got %+v", events[2])
	}
}

func TestStreamEmitsErrorEventOnStreamError(t *testing.T) {
	srv := newSSEServer(t, []string{
		`{"type":"error","error":{"message":"rate limited upstream"}}`,
	})
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "test-key"})
	ch, err := c.Stream(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := drain(t, ch, time.Second)
	if len(events) != 1 || events[0].Kind != EventError {
		t.Fatalf("expected single error event, got %+v", events)
	}
}

func TestStreamEmitsErrorEventOn401WithoutRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "bad-key"})
	ch, err := c.Stream(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := drain(t, ch, time.Second)
	if len(events) != 1 || events[0].Kind != EventError {
		t.Fatalf("expected single error event for 401, got %+v", events)
	}
}

func TestStreamWithoutCredentialFailsFast(t *testing.T) {
	c := New(Config{Endpoint: "http://example.invalid"})
	if c.Enabled() {
		t.Fatalf("expected client without credentials to report disabled")
	}
	if _, err := c.Stream(context.Background(), "", nil); err == nil {
		t.Fatalf("expected an error resolving credential")
	}
}
