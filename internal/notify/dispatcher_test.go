package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/uatdesk/internal/adapter/email"
	"github.com/xiaot623/uatdesk/internal/adapter/llm"
	"github.com/xiaot623/uatdesk/internal/domain"
)

func checkoutUpdate() Update {
	steps := []domain.ChecklistItemStep{
		{StepID: "st1", Title: "Open cart", StepType: domain.StepTypeTest},
		{StepID: "st2", Title: "Click buy", StepType: domain.StepTypeTest},
		{StepID: "st3", Title: "See receipt", StepType: domain.StepTypeTest},
	}
	results := []domain.TestStepResult{
		{StepID: "st1", Status: domain.StepResultStatusPassed},
		{StepID: "st2", Status: domain.StepResultStatusFailed, Notes: "button missing"},
		{StepID: "st3", Status: domain.StepResultStatusPassed},
	}
	item := domain.NewItemSummary(domain.ChecklistItem{ItemID: "i1", Title: "Checkout"}, steps, &domain.TestRun{RunID: "r1"}, results)

	return Update{
		Session: &domain.Session{SessionID: "s1", Name: "Spring release", Status: domain.SessionStatusActive, OwnerEmail: "owner@example.com"},
		Items:   []domain.ItemSummary{item},
		Guests: []domain.Guest{
			{Email: " Owner@Example.com ", Token: "tok-owner"},
			{Email: "guest@example.com", Token: "tok-guest", Role: domain.GuestRoleReviewer},
			{Email: "", Token: "tok-empty"},
			{Email: "dev@example.com", Token: "tok-dev", Role: domain.GuestRoleDeveloper},
		},
		Collaborators: []domain.Collaborator{
			{Email: "pm@example.com", Token: "tok-pm"},
			{Email: "GUEST@example.com", Token: "tok-dup"},
		},
	}
}

func TestRecipientsDedupedInPriorityOrder(t *testing.T) {
	got := Recipients(checkoutUpdate())
	assert.Equal(t, []string{"owner@example.com", "guest@example.com", "dev@example.com", "pm@example.com"}, got)
}

func TestRecipientListLinksToEachPortal(t *testing.T) {
	assert.Equal(t, []Recipient{
		{Email: "owner@example.com", Path: "/uat/sessions/s1"},
		{Email: "guest@example.com", Path: "/r/tok-guest"},
		{Email: "dev@example.com", Path: "/d/tok-dev"},
		{Email: "pm@example.com", Path: "/p/tok-pm"},
	}, RecipientList(checkoutUpdate()))
}

func TestSendSucceeds(t *testing.T) {
	sender := email.NewMockSender()
	d := NewDispatcher(sender, nil, Options{From: "uat@example.com", PublicBaseURL: "https://uat.example.com"})

	res := d.Send(context.Background(), checkoutUpdate())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"owner@example.com", "guest@example.com", "dev@example.com", "pm@example.com"}, res.SentTo)

	sent := sender.Sent()
	require.Len(t, sent, 4)
	for _, msg := range sent {
		require.Len(t, msg.To, 1)
		assert.Equal(t, "UAT update: Spring release", msg.Subject)
		assert.Equal(t, "uat@example.com", msg.From)
		assert.Contains(t, msg.Text, "Checkout: Failed (2/3 passed)")
		assert.Contains(t, msg.Text, "Click buy: button missing")
		assert.Contains(t, msg.HTML, "<strong>Checkout</strong>")
	}
	assert.Contains(t, sent[0].HTML, `href="https://uat.example.com/uat/sessions/s1"`)
	assert.Contains(t, sent[1].HTML, `href="https://uat.example.com/r/tok-guest"`)
	assert.Contains(t, sent[2].Text, "View session: https://uat.example.com/d/tok-dev")
	assert.Contains(t, sent[3].Text, "View session: https://uat.example.com/p/tok-pm")
}

func TestSendNoRecipients(t *testing.T) {
	sender := email.NewMockSender()
	d := NewDispatcher(sender, nil, Options{})

	res := d.Send(context.Background(), Update{Session: &domain.Session{SessionID: "s1", Name: "Empty"}})
	assert.False(t, res.Success)
	assert.Equal(t, "no recipients", res.Error)
	assert.Empty(t, res.SentTo)
	assert.Empty(t, sender.Sent())
}

func TestSendNotConfigured(t *testing.T) {
	sender := &email.MockSender{Unconfigured: true}
	res := NewDispatcher(sender, nil, Options{}).Send(context.Background(), checkoutUpdate())
	assert.False(t, res.Success)
	assert.Equal(t, ErrNotConfigured.Error(), res.Error)
	assert.Empty(t, sender.Sent())
}

func TestSendProviderFailure(t *testing.T) {
	sender := &email.MockSender{Err: errors.New("email API error [500]: boom")}
	res := NewDispatcher(sender, nil, Options{}).Send(context.Background(), checkoutUpdate())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
}

func TestComposeWithSummaryAndCustomDomain(t *testing.T) {
	d := NewDispatcher(email.NewMockSender(), llm.NewMockClient(), Options{PublicBaseURL: "http://localhost:8080", LLMModel: "mock"})
	u := checkoutUpdate()
	u.CustomDomain = "uat.client.com"

	c, err := d.Compose(context.Background(), u)
	require.NoError(t, err)
	assert.Contains(t, c.Text, "[MOCK] Summary of")
	assert.Contains(t, c.Markdown, "Session status: **Active**")

	body, err := c.Render(BaseURL(d.opts.PublicBaseURL, u.CustomDomain) + "/p/tok-pm")
	require.NoError(t, err)
	assert.Contains(t, body.HTML, `href="https://uat.client.com/p/tok-pm"`)
}

func TestComposeDoesNotRenderRawHTML(t *testing.T) {
	d := NewDispatcher(email.NewMockSender(), nil, Options{PublicBaseURL: "http://localhost"})
	u := checkoutUpdate()
	u.Items[0].Item.Title = "<script>alert(1)</script>"

	c, err := d.Compose(context.Background(), u)
	require.NoError(t, err)
	body, err := c.Render("http://localhost/r/tok")
	require.NoError(t, err)
	assert.NotContains(t, body.HTML, "<script>")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", BaseURL("http://localhost:8080/", ""))
	assert.Equal(t, "http://qa.local", BaseURL("x", "http://qa.local/"))
	assert.Equal(t, "https://uat.client.com", BaseURL("x", " uat.client.com "))
}

func TestSendReportsPartialFailure(t *testing.T) {
	sender := &failingSender{MockSender: email.NewMockSender(), failFor: "guest@example.com"}
	res := NewDispatcher(sender, nil, Options{PublicBaseURL: "http://localhost"}).Send(context.Background(), checkoutUpdate())
	assert.False(t, res.Success)
	assert.Equal(t, []string{"owner@example.com", "dev@example.com", "pm@example.com"}, res.SentTo)
	assert.Contains(t, res.Error, "guest@example.com: mailbox unavailable")
}

type failingSender struct {
	*email.MockSender
	failFor string
}

func (s *failingSender) Send(ctx context.Context, msg email.Message) error {
	if msg.To[0] == s.failFor {
		return errors.New("mailbox unavailable")
	}
	return s.MockSender.Send(ctx, msg)
}
