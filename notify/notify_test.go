package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedMessage struct {
	Text   string `json:"text"`
	Blocks []struct {
		Type string `json:"type"`
		Text *struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"text"`
		Fields []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"fields"`
		Elements []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"elements"`
	} `json:"blocks"`
}

func capture(t *testing.T) (*Notifier, *capturedMessage) {
	t.Helper()
	msg := &capturedMessage{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(msg); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil))), msg
}

func TestReleaseReady(t *testing.T) {
	n, msg := capture(t)
	previews := map[string]string{
		"html":  "https://pr.ezwire.com/Mouser/2026-01%20-%20Mouser/Widget%20PR/Widget PR.html",
		"email": "https://pr.ezwire.com/Mouser/2026-01%20-%20Mouser/Widget%20PR/Widget PR_email.html",
	}
	if err := n.ReleaseReady(context.Background(), "MW-123", "Widget PR", previews); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(msg.Text, "Press Release Ready: MW-123\n") {
		t.Errorf("fallback text = %q", msg.Text)
	}
	if len(msg.Blocks) != 5 {
		t.Fatalf("blocks = %d, want 5", len(msg.Blocks))
	}
	if msg.Blocks[0].Type != "header" || msg.Blocks[0].Text.Text != "✅ Press Release Ready for Review" {
		t.Errorf("header block = %+v", msg.Blocks[0])
	}
	if len(msg.Blocks[1].Fields) != 2 ||
		msg.Blocks[1].Fields[0].Text != "*Jira Ticket:*\nMW-123" ||
		msg.Blocks[1].Fields[1].Text != "*Folder:*\nWidget PR" {
		t.Errorf("fields block = %+v", msg.Blocks[1])
	}
	links := msg.Blocks[3].Text.Text
	if !strings.Contains(links, "|Web Version>") || !strings.Contains(links, "|Email Version>") {
		t.Errorf("links block = %q", links)
	}
	if len(msg.Blocks[4].Elements) != 1 ||
		msg.Blocks[4].Elements[0].Text != "Review and send URLs to Aaron when ready." {
		t.Errorf("context block = %+v", msg.Blocks[4])
	}
}

func TestReleaseReadyMissingPreviews(t *testing.T) {
	n, msg := capture(t)
	if err := n.ReleaseReady(context.Background(), "MW-9", "F", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Blocks[3].Text.Text, "<N/A|Web Version>") {
		t.Errorf("links block = %q", msg.Blocks[3].Text.Text)
	}
}

func TestFailure(t *testing.T) {
	n, msg := capture(t)
	if err := n.Failure(context.Background(), "MW-123", "Missing files: PDF file (.pdf)"); err != nil {
		t.Fatal(err)
	}

	if msg.Text != "Press Release FAILED: MW-123\nError: Missing files: PDF file (.pdf)" {
		t.Errorf("fallback text = %q", msg.Text)
	}
	if len(msg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(msg.Blocks))
	}
	if msg.Blocks[0].Text.Text != "❌ Press Release Processing Failed" {
		t.Errorf("header = %q", msg.Blocks[0].Text.Text)
	}
	if got := msg.Blocks[2].Text.Text; got != "*Error:*\n```Missing files: PDF file (.pdf)```" {
		t.Errorf("error block = %q", got)
	}
	if msg.Blocks[3].Elements[0].Text != "Please check the ticket and try manual processing." {
		t.Errorf("context = %+v", msg.Blocks[3])
	}
}

func TestUnconfiguredWebhookIsNoop(t *testing.T) {
	n := New("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := n.ReleaseReady(context.Background(), "MW-1", "F", nil); err != nil {
		t.Errorf("err = %v, want nil for unconfigured webhook", err)
	}
	if err := n.Failure(context.Background(), "MW-1", "boom"); err != nil {
		t.Errorf("err = %v, want nil for unconfigured webhook", err)
	}
}

func TestPostErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	n := New(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := n.Failure(context.Background(), "MW-1", "boom"); err == nil {
		t.Error("expected error from rejected webhook post")
	}
}
