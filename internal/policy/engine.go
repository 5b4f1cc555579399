// Package policy evaluates actor capabilities with OPA.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Action names understood by the capability policy.
const (
	ActionSubmitStepResult = "submit_step_result"
	ActionReopenStep       = "reopen_step"
	ActionStartRun         = "start_run"
	ActionCreateComment    = "create_comment"
	ActionEditComment      = "edit_comment"
	ActionManageSession    = "manage_session"
	ActionSendNotification = "send_notification"
)

// Input is the document the policy is evaluated against.
type Input struct {
	Action        string        `json:"action"`
	Actor         ActorInput    `json:"actor"`
	ReadOnly      bool          `json:"read_only"`
	SessionStatus string        `json:"session_status"`
	Resource      ResourceInput `json:"resource"`
}

// ActorInput identifies the actor in policy input.
type ActorInput struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ResourceInput carries the attributes of the resource being acted on.
type ResourceInput struct {
	AuthorID      string `json:"author_id,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	TargetStatus  string `json:"target_status,omitempty"`
}

// Decision is the policy outcome.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Reason joins the deny reasons into one message.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, "; ")
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.uat_policy.decision"),
		rego.Module("uat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks whether the actor may perform the action described by input.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("policy returned no decision")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	var d Decision
	d.Allow, _ = obj["allow"].(bool)
	if reasons, ok := obj["reasons"].([]interface{}); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
	}
	return d, nil
}

// DefaultPolicy is the capability policy for UAT actors.
const DefaultPolicy = `
package uat_policy

mutating_actions := {"submit_step_result", "reopen_step", "start_run", "create_comment", "edit_comment"}

testing_actions := {"submit_step_result", "reopen_step", "start_run"}

staff_actions := {"manage_session", "send_notification", "reopen_step"}

is_staff if input.actor.kind == "internal"

deny contains "unknown actor" if {
	not input.actor.kind in {"internal", "pm_collaborator", "guest"}
}

deny contains "this link is read-only" if {
	input.read_only
	input.action in testing_actions
}

deny contains "session is closed" if {
	input.session_status == "closed"
	not is_staff
	input.action in mutating_actions
}

deny contains "only the session team can do this" if {
	input.action in staff_actions
	not is_staff
}

deny contains "only the author can edit this comment" if {
	input.action == "edit_comment"
	input.actor.id != input.resource.author_id
}

deny contains "failed steps can only be reopened by the session team" if {
	input.action == "submit_step_result"
	input.resource.current_status == "failed"
	not is_staff
}

decision := {
	"allow": count(deny) == 0,
	"reasons": sort(deny),
}
`
