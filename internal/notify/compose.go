package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xiaot623/uatdesk/internal/domain"
)

// Composed is a session update without its link. Render adds the link of
// one recipient.
type Composed struct {
	Subject  string
	Markdown string
	Text     string
}

// Body is a rendered message body.
type Body struct {
	HTML string
	Text string
}

// statusLabel turns "passed" into "Passed". Casers are stateful, so one is
// built per call.
func statusLabel(s string) string {
	return cases.Title(language.English).String(s)
}

// Compose renders the update. The markdown body is converted to HTML with
// goldmark; raw HTML in user text is not rendered.
func (d *Dispatcher) Compose(ctx context.Context, u Update) (*Composed, error) {
	if u.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	summary := d.summarize(ctx, u)

	var passed, failed int
	for _, item := range u.Items {
		switch item.Status {
		case domain.ItemStatusPassed:
			passed++
		case domain.ItemStatusFailed:
			failed++
		case domain.ItemStatusPending, domain.ItemStatusPartial:
		}
	}

	var md, txt strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", u.Session.Name)
	fmt.Fprintf(&md, "Session status: **%s**\n\n", statusLabel(string(u.Session.Status)))
	fmt.Fprintf(&md, "%d of %d items passed, %d failed.\n\n", passed, len(u.Items), failed)

	fmt.Fprintf(&txt, "%s\n\n", u.Session.Name)
	fmt.Fprintf(&txt, "Session status: %s\n", statusLabel(string(u.Session.Status)))
	fmt.Fprintf(&txt, "%d of %d items passed, %d failed.\n\n", passed, len(u.Items), failed)

	if summary != "" {
		fmt.Fprintf(&md, "%s\n\n", summary)
		fmt.Fprintf(&txt, "%s\n\n", summary)
	}

	if len(u.Items) > 0 {
		md.WriteString("## Items\n\n")
		for _, item := range u.Items {
			fmt.Fprintf(&md, "- **%s**: %s (%s)\n", item.Item.Title, statusLabel(string(item.Status)), item.Label)
			fmt.Fprintf(&txt, "* %s: %s (%s)\n", item.Item.Title, statusLabel(string(item.Status)), item.Label)
			for _, n := range item.FailureNotes() {
				fmt.Fprintf(&md, "  - %s: %s\n", n.StepTitle, n.Notes)
				fmt.Fprintf(&txt, "    - %s: %s\n", n.StepTitle, n.Notes)
			}
		}
		md.WriteString("\n")
		txt.WriteString("\n")
	}

	return &Composed{
		Subject:  fmt.Sprintf("UAT update: %s", u.Session.Name),
		Markdown: md.String(),
		Text:     txt.String(),
	}, nil
}

// Render appends link to the body and converts the markdown to HTML.
func (c *Composed) Render(link string) (*Body, error) {
	md := c.Markdown + fmt.Sprintf("[View session](%s)\n", link)
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md), &html); err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}
	return &Body{
		HTML: html.String(),
		Text: c.Text + fmt.Sprintf("View session: %s\n", link),
	}, nil
}

// BaseURL returns the origin links are built on. A custom domain without a
// scheme is served over https.
func BaseURL(publicBaseURL, customDomain string) string {
	base := strings.TrimSpace(customDomain)
	switch {
	case base == "":
		base = publicBaseURL
	case !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://"):
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}
