package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "HederaDEX-Agent/internal/errors"
)

type captureNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (c *captureNotifier) Channel() Channel { return c.channel }

func (c *captureNotifier) Notify(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &captureNotifier{channel: ChannelLog}
	bad := &captureNotifier{channel: ChannelWebhook, err: errors.New("503")}

	err := NewFanout(ok, bad, nil).Notify(context.Background(), Event{JobID: "j1"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Fatalf("every notifier must receive the event")
	}
}

func TestEventFromError(t *testing.T) {
	err := xerrors.New(xerrors.CodeUpstreamFailure, "relay down", xerrors.WithMetadata("network", "testnet"))
	event := EventFromError(err)
	if event.Code != xerrors.CodeUpstreamFailure {
		t.Fatalf("unexpected code %s", event.Code)
	}
	if event.Metadata["network"] != "testnet" {
		t.Fatalf("metadata not carried: %v", event.Metadata)
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	if err := n.Notify(context.Background(), Event{Code: "SWAP_EXECUTION_FAILED", JobID: "j2", Message: "reverted"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if got["job_id"] != "j2" || got["text"] == "" {
		t.Fatalf("unexpected payload: %v", got)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	if err := (&WebhookNotifier{URL: failing.URL}).Notify(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on non-2xx status")
	}
}
