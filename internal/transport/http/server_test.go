package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/uatdesk/internal/adapter/email"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/notify"
	"github.com/xiaot623/uatdesk/internal/service"
	v1 "github.com/xiaot623/uatdesk/internal/transport/http/v1"
	"github.com/xiaot623/uatdesk/tests/helpers"
)

const baseURL = "http://uat.local"

func TestSessionUpdateLinksResolve(t *testing.T) {
	ctx := context.Background()
	sender := email.NewMockSender()
	dispatcher := notify.NewDispatcher(sender, nil, notify.Options{From: "uat@example.com", PublicBaseURL: baseURL})
	svc := service.New(helpers.NewTestSQLiteStore(t), helpers.NewTestPolicyEngine(t), dispatcher, nil)
	e := NewServer(svc, nil)

	actor, err := svc.InternalActor("u1", "Uma", "uma@example.com")
	require.NoError(t, err)
	staff := service.InternalAccess(actor)

	session, err := svc.CreateSession(ctx, staff, domain.CreateSessionRequest{Name: "Release"})
	require.NoError(t, err)
	active := domain.SessionStatusActive
	_, err = svc.UpdateSession(ctx, staff, session.SessionID, domain.UpdateSessionRequest{Status: &active})
	require.NoError(t, err)
	_, err = svc.CreateGuest(ctx, staff, session.SessionID, domain.CreateGuestRequest{Name: "Gus", Email: "gus@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateGuest(ctx, staff, session.SessionID, domain.CreateGuestRequest{Name: "Dev", Email: "dev@example.com", Role: domain.GuestRoleDeveloper})
	require.NoError(t, err)
	_, err = svc.CreateCollaborator(ctx, staff, session.SessionID, domain.CreateCollaboratorRequest{Name: "Pam", Email: "pam@example.com"})
	require.NoError(t, err)

	res, err := svc.SendSessionUpdate(ctx, staff, session.SessionID, "")
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	sent := sender.Sent()
	require.Len(t, sent, 4)
	for _, msg := range sent {
		_, link, found := strings.Cut(msg.Text, "View session: ")
		require.True(t, found, msg.Text)
		link = strings.TrimSpace(link)
		require.True(t, strings.HasPrefix(link, baseURL), link)

		req := httptest.NewRequest(http.MethodGet, strings.TrimPrefix(link, baseURL), nil)
		if msg.To[0] == "uma@example.com" {
			req.Header.Set(v1.HeaderUserID, "u1")
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", link, rec.Body.String())
	}
}
