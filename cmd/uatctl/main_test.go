package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/hub"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestRunValidate(t *testing.T) {
	cmd, out, _ := newTestCmd()
	err := runValidate(cmd, []string{"../../internal/importer/testdata/valid.yaml"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "is valid (2 items, 5 steps)")
}

func TestRunValidateReportsProblems(t *testing.T) {
	cmd, _, errOut := newTestCmd()
	err := runValidate(cmd, []string{"../../internal/importer/testdata/invalid-rules.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, errOut.String(), "Validation failed")
	assert.Contains(t, errOut.String(), "at: items[0]")
}

func TestFormatMessage(t *testing.T) {
	msg := hub.EventMessage{
		BaseMessage: hub.BaseMessage{Type: hub.TypeEvent, SessionID: "sess_1"},
		Event: domain.SessionEvent{
			EventID:   "evt_1",
			SessionID: "sess_1",
			Ts:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local).UnixMilli(),
			Type:      domain.EventTypeRunStarted,
			ActorType: "guest",
			ActorID:   "guest_1",
			Payload:   json.RawMessage(`{"run_id":"run_1"}`),
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	line := formatMessage(data, false)
	assert.True(t, strings.HasPrefix(line, "03:04:05 run_started"), line)
	assert.Contains(t, line, "guest:guest_1")
	assert.Contains(t, line, `{"run_id":"run_1"}`)

	raw := formatMessage(data, true)
	assert.True(t, strings.HasPrefix(raw, "[event]\n"), raw)
	assert.Contains(t, raw, `"event_id": "evt_1"`)

	assert.Contains(t, formatMessage([]byte("not json"), false), "unreadable message")
}

func TestClientReceivesEvents(t *testing.T) {
	h := hub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)
	server := hub.NewServer(h, hub.Options{
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		ReadTimeout:    5 * time.Second,
		MaxMessageSize: 4096,
	})
	actor := domain.Actor{Kind: domain.ActorKindPMCollaborator, ID: "collab_1", Name: "Pam"}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.Serve(w, r, "sess_1", actor)
	}))
	defer ts.Close()

	client, err := NewClient("ws" + strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, err)
	defer client.Close()
	client.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	ack, err := client.WaitHello()
	require.NoError(t, err)
	assert.Equal(t, "sess_1", ack.SessionID)
	assert.Equal(t, "Pam", ack.Actor.Name)

	h.Publish("sess_1", domain.SessionEvent{EventID: "evt_1", SessionID: "sess_1", Ts: time.Now().UnixMilli(), Type: domain.EventTypeRunStarted})

	_, data, err := client.conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, formatMessage(data, false), "run_started")
}
