package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/hub"
	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/tests/helpers"
)

type portalFixture struct {
	e      *echo.Echo
	svc    *service.Service
	staff  service.Access
	item   *domain.ChecklistItem
	step   *domain.ChecklistItemStep
	guest  *domain.Guest
	dev    *domain.Guest
	pm     *domain.Collaborator
	hub    *hub.Hub
	server *hub.Server
}

func newPortalFixture(t *testing.T, live bool) *portalFixture {
	t.Helper()
	ctx := context.Background()
	f := &portalFixture{}

	var publisher service.Publisher
	if live {
		f.hub = hub.NewHub()
		hubCtx, cancel := context.WithCancel(context.Background())
		go f.hub.Run(hubCtx)
		t.Cleanup(cancel)
		f.server = hub.NewServer(f.hub, hub.Options{
			PingInterval:   time.Second,
			WriteTimeout:   time.Second,
			ReadTimeout:    5 * time.Second,
			MaxMessageSize: 4096,
		})
		publisher = f.hub
	}
	f.svc = service.New(helpers.NewTestSQLiteStore(t), helpers.NewTestPolicyEngine(t), nil, publisher)

	actor, err := f.svc.InternalActor("u1", "Uma", "")
	require.NoError(t, err)
	f.staff = service.InternalAccess(actor)

	session, err := f.svc.CreateSession(ctx, f.staff, domain.CreateSessionRequest{Name: "Release"})
	require.NoError(t, err)
	active := domain.SessionStatusActive
	_, err = f.svc.UpdateSession(ctx, f.staff, session.SessionID, domain.UpdateSessionRequest{Status: &active})
	require.NoError(t, err)

	f.item, err = f.svc.CreateItem(ctx, f.staff, session.SessionID, domain.CreateItemRequest{Title: "Checkout"})
	require.NoError(t, err)
	f.step, err = f.svc.CreateStep(ctx, f.staff, f.item.ItemID, domain.StepInput{StepType: domain.StepTypeTest, Title: "Pay"})
	require.NoError(t, err)

	f.guest, err = f.svc.CreateGuest(ctx, f.staff, session.SessionID, domain.CreateGuestRequest{Name: "Gus"})
	require.NoError(t, err)
	f.dev, err = f.svc.CreateGuest(ctx, f.staff, session.SessionID, domain.CreateGuestRequest{Name: "Dev", Role: domain.GuestRoleDeveloper})
	require.NoError(t, err)
	f.pm, err = f.svc.CreateCollaborator(ctx, f.staff, session.SessionID, domain.CreateCollaboratorRequest{Name: "Pam"})
	require.NoError(t, err)

	f.e = echo.New()
	var wsServer *hub.Server
	if live {
		wsServer = f.server
	}
	NewHandler(f.svc, wsServer).RegisterRoutes(f.e)
	return f
}

func (f *portalFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestResolveRejectsBadTokens(t *testing.T) {
	f := newPortalFixture(t, false)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/r/nope", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/d/"+f.guest.Token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/p/"+f.guest.Token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/r/"+f.pm.Token, "").Code)
}

func TestGetContext(t *testing.T) {
	f := newPortalFixture(t, false)

	for _, tc := range []struct {
		path     string
		kind     domain.ActorKind
		readOnly bool
	}{
		{"/r/" + f.guest.Token, domain.ActorKindGuest, false},
		{"/uat/review/" + f.guest.Token, domain.ActorKindGuest, false},
		{"/d/" + f.dev.Token, domain.ActorKindGuest, true},
		{"/p/" + f.pm.Token, domain.ActorKindPMCollaborator, false},
	} {
		t.Run(tc.path[:3], func(t *testing.T) {
			rec := f.do(http.MethodGet, tc.path, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var pc domain.PortalContext
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pc))
			assert.Equal(t, tc.kind, pc.Actor.Kind)
			assert.Equal(t, tc.readOnly, pc.ReadOnly)
			assert.Equal(t, f.item.SessionID, pc.Session.SessionID)
		})
	}
}

func TestReviewerRunsAStep(t *testing.T) {
	f := newPortalFixture(t, false)
	base := "/r/" + f.guest.Token

	rec := f.do(http.MethodGet, base+"/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []domain.ItemSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, domain.ItemStatusPending, items[0].Status)

	rec = f.do(http.MethodPost, base+"/items/"+f.item.ItemID+"/runs", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started domain.ActiveRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = f.do(http.MethodPatch, base+"/runs/"+started.Run.RunID+"/steps/"+f.step.StepID, `{"status":"passed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result domain.TestStepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, f.guest.GuestID, result.UpdatedBy)

	rec = f.do(http.MethodGet, base+"/items/"+f.item.ItemID+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.ItemSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, domain.ItemStatusPassed, summary.Status)

	rec = f.do(http.MethodGet, base+"/events?after=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.EventTypeStepResultUpdated))
}

func TestDeveloperPortalIsReadOnly(t *testing.T) {
	f := newPortalFixture(t, false)
	started, err := f.svc.StartRun(context.Background(), f.staff, f.item.ItemID)
	require.NoError(t, err)
	base := "/d/" + f.dev.Token

	rec := f.do(http.MethodPatch, base+"/runs/"+started.Run.RunID+"/steps/"+f.step.StepID, `{"status":"passed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "read-only")

	rec = f.do(http.MethodGet, base+"/items/"+f.item.ItemID+"/active-run", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, base+"/items/"+f.item.ItemID+"/comments", `{"body":"Fix is deployed"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCommentThreadThroughPortals(t *testing.T) {
	f := newPortalFixture(t, false)
	review := "/r/" + f.guest.Token
	pm := "/p/" + f.pm.Token

	rec := f.do(http.MethodPost, review+"/items/"+f.item.ItemID+"/comments", `{"body":"Total is off by one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var top domain.ItemComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))

	rec = f.do(http.MethodPost, pm+"/items/"+f.item.ItemID+"/comments", `{"body":"On it","parent_id":"`+top.CommentID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	commentPath := "/items/" + f.item.ItemID + "/comments/" + top.CommentID
	rec = f.do(http.MethodPatch, pm+commentPath, `{"body":"rewritten"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPatch, review+commentPath, `{"body":"Total is off by two"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, review+"/items/"+f.item.ItemID+"/comments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []domain.ItemComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 2)
	assert.Equal(t, "Total is off by two", comments[0].Body)
	assert.Equal(t, top.CommentID, comments[1].ParentID)
	assert.Equal(t, domain.ActorKindPMCollaborator, comments[1].AuthorType)
}

func TestEditCommentUnderWrongItem(t *testing.T) {
	f := newPortalFixture(t, false)
	review := "/r/" + f.guest.Token

	other, err := f.svc.CreateItem(context.Background(), f.staff, f.item.SessionID, domain.CreateItemRequest{Title: "Refunds"})
	require.NoError(t, err)

	rec := f.do(http.MethodPost, review+"/items/"+f.item.ItemID+"/comments", `{"body":"Total is off by one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var top domain.ItemComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))

	rec = f.do(http.MethodPatch, review+"/items/"+other.ItemID+"/comments/"+top.CommentID, `{"body":"moved"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPatch, review+"/items/"+f.item.ItemID+"/comments/"+top.CommentID, `{"body":"edited"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited domain.ItemComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	assert.Equal(t, "edited", edited.Body)
}

func TestPortalCannotReachOtherSessions(t *testing.T) {
	f := newPortalFixture(t, false)
	ctx := context.Background()

	other, err := f.svc.CreateSession(ctx, f.staff, domain.CreateSessionRequest{Name: "Other"})
	require.NoError(t, err)
	foreign, err := f.svc.CreateItem(ctx, f.staff, other.SessionID, domain.CreateItemRequest{Title: "Hidden"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/r/"+f.guest.Token+"/items/"+foreign.ItemID+"/steps", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeDisabled(t *testing.T) {
	f := newPortalFixture(t, false)
	rec := f.do(http.MethodGet, "/r/"+f.guest.Token+"/ws", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubscribeReceivesSessionEvents(t *testing.T) {
	f := newPortalFixture(t, true)
	ts := httptest.NewServer(f.e)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/p/" + f.pm.Token + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ack hub.HelloAckMessage
	require.NoError(t, ws.ReadJSON(&ack))
	assert.Equal(t, hub.TypeHelloAck, ack.Type)
	assert.Equal(t, f.pm.CollaboratorID, ack.Actor.ID)

	_, err = f.svc.StartRun(context.Background(), f.staff, f.item.ItemID)
	require.NoError(t, err)

	var msg hub.EventMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, hub.TypeEvent, msg.Type)
	assert.Equal(t, domain.EventTypeRunStarted, msg.Event.Type)
	assert.Equal(t, f.item.SessionID, msg.Event.SessionID)
}
