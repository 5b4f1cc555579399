// Package notify composes and sends session status emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/xiaot623/uatdesk/internal/adapter/email"
	"github.com/xiaot623/uatdesk/internal/adapter/llm"
	"github.com/xiaot623/uatdesk/internal/domain"
)

var (
	// ErrNotConfigured is reported when the email provider has no credentials.
	ErrNotConfigured = errors.New("email provider is not configured")
	// ErrNoRecipients is reported when no owner, guest or collaborator has an email.
	ErrNoRecipients = errors.New("no recipients")
)

// Update is everything a session status email is built from.
type Update struct {
	Session       *domain.Session
	Items         []domain.ItemSummary
	Guests        []domain.Guest
	Collaborators []domain.Collaborator
	// CustomDomain overrides the public base URL for links, e.g. "uat.client.com".
	CustomDomain string
}

// Options configures a Dispatcher.
type Options struct {
	From          string
	PublicBaseURL string
	LLMModel      string
}

// Dispatcher sends session updates. A nil LLM client disables summaries.
type Dispatcher struct {
	sender email.Sender
	llm    llm.LLMClient
	opts   Options
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(sender email.Sender, llmClient llm.LLMClient, opts Options) *Dispatcher {
	return &Dispatcher{sender: sender, llm: llmClient, opts: opts}
}

// Recipient is one address and the portal path its link points to.
type Recipient struct {
	Email string
	// Path is relative to the public base URL, e.g. "/r/<token>".
	Path string
}

// Send composes the update once and mails every recipient their own link.
// Failures are reported in the result, never returned.
func (d *Dispatcher) Send(ctx context.Context, u Update) domain.NotificationResult {
	fail := func(err error) domain.NotificationResult {
		return domain.NotificationResult{Success: false, SentTo: []string{}, Error: err.Error()}
	}

	if d.sender == nil || !d.sender.Configured() {
		return fail(ErrNotConfigured)
	}

	recipients := RecipientList(u)
	if len(recipients) == 0 {
		return fail(ErrNoRecipients)
	}

	composed, err := d.Compose(ctx, u)
	if err != nil {
		return fail(err)
	}

	base := BaseURL(d.opts.PublicBaseURL, u.CustomDomain)
	sentTo := []string{}
	var failures []string
	for _, r := range recipients {
		body, err := composed.Render(base + r.Path)
		if err != nil {
			return fail(err)
		}
		msg := email.Message{
			From:    d.opts.From,
			To:      []string{r.Email},
			Subject: composed.Subject,
			HTML:    body.HTML,
			Text:    body.Text,
		}
		if err := d.sender.Send(ctx, msg); err != nil {
			log.Printf("ERROR: session %s update email to %s failed: %v", u.Session.SessionID, r.Email, err)
			failures = append(failures, fmt.Sprintf("%s: %v", r.Email, err))
			continue
		}
		sentTo = append(sentTo, r.Email)
	}

	if len(failures) > 0 {
		return domain.NotificationResult{Success: false, SentTo: sentTo, Error: strings.Join(failures, "; ")}
	}
	return domain.NotificationResult{Success: true, SentTo: sentTo}
}

// Recipients returns owner, guest and collaborator emails in that order, trimmed
// and deduplicated case-insensitively.
func Recipients(u Update) []string {
	list := RecipientList(u)
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.Email)
	}
	return out
}

// RecipientList pairs each deduplicated address with the route its holder can
// open: the staff session view for the owner, the review or developer portal
// for guests, the PM portal for collaborators. An address listed twice keeps
// its first role.
func RecipientList(u Update) []Recipient {
	seen := make(map[string]bool)
	var out []Recipient
	add := func(addr, path string) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return
		}
		key := strings.ToLower(addr)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Recipient{Email: addr, Path: path})
	}

	if u.Session != nil {
		add(u.Session.OwnerEmail, "/uat/sessions/"+u.Session.SessionID)
	}
	for _, g := range u.Guests {
		prefix := "/r/"
		if g.Role == domain.GuestRoleDeveloper {
			prefix = "/d/"
		}
		add(g.Email, prefix+g.Token)
	}
	for _, c := range u.Collaborators {
		add(c.Email, "/p/"+c.Token)
	}
	return out
}

// summarize asks the LLM for a short status paragraph. It is best effort.
func (d *Dispatcher) summarize(ctx context.Context, u Update) string {
	if d.llm == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UAT session %q\n", u.Session.Name)
	for _, item := range u.Items {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", item.Item.Title, item.Status, item.Label)
		for _, n := range item.FailureNotes() {
			fmt.Fprintf(&b, "  failed step %q: %s\n", n.StepTitle, n.Notes)
		}
	}

	resp, err := d.llm.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: d.opts.LLMModel,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "You write two-sentence status summaries of user acceptance testing sessions for clients. Plain text only."},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		log.Printf("WARN: session %s summary failed: %v", u.Session.SessionID, err)
		return ""
	}
	return strings.TrimSpace(resp.Content())
}
