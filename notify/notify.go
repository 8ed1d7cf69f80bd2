// Package notify posts the review-ready and failure notifications to a
// Slack incoming webhook.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// Notifier posts Block Kit messages to one Slack incoming webhook. A
// Notifier with an empty URL drops every message, so notification wiring
// stays optional in every deployment.
type Notifier struct {
	webhookURL string
	httpc      *http.Client
	logger     *slog.Logger
}

// New builds a Notifier for the given webhook URL.
func New(webhookURL string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		webhookURL: webhookURL,
		httpc:      &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ReleaseReady announces a processed release with its preview links.
func (n *Notifier) ReleaseReady(ctx context.Context, ticketKey, folderName string, previews map[string]string) error {
	htmlURL := previewOr(previews, "html")
	emailURL := previewOr(previews, "email")

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "✅ Press Release Ready for Review", true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, "*Jira Ticket:*\n"+ticketKey, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Folder:*\n"+folderName, false, false),
		}, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*Preview Links:*", false, false), nil, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("• <%s|Web Version>\n• <%s|Email Version>", htmlURL, emailURL), false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "Review and send URLs to Aaron when ready.", false, false)),
	}

	fallback := fmt.Sprintf("Press Release Ready: %s\nFolder: %s\nWeb: %s\nEmail: %s",
		ticketKey, folderName, htmlURL, emailURL)
	return n.post(ctx, fallback, blocks)
}

// Failure reports a failed run with the error text verbatim.
func (n *Notifier) Failure(ctx context.Context, ticketKey, errorMessage string) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "❌ Press Release Processing Failed", true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, "*Jira Ticket:*\n"+ticketKey, false, false),
		}, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
			"*Error:*\n```"+errorMessage+"```", false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "Please check the ticket and try manual processing.", false, false)),
	}

	fallback := fmt.Sprintf("Press Release FAILED: %s\nError: %s", ticketKey, errorMessage)
	return n.post(ctx, fallback, blocks)
}

func (n *Notifier) post(ctx context.Context, fallback string, blocks []slack.Block) error {
	if n.webhookURL == "" {
		n.logger.Warn("slack webhook not configured, dropping notification", "text", fallback)
		return nil
	}
	msg := &slack.WebhookMessage{
		Text:   fallback,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpc, msg); err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func previewOr(previews map[string]string, key string) string {
	if u, ok := previews[key]; ok && u != "" {
		return u
	}
	return "N/A"
}
