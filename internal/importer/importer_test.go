package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/tests/helpers"
)

func paths(errs []*ValidationError, phase string) []string {
	var out []string
	for _, e := range errs {
		if e.Phase == phase {
			out = append(out, e.Path)
		}
	}
	return out
}

func TestLoadValidDocument(t *testing.T) {
	doc, errs := ValidateFile("testdata/valid.yaml")
	require.Empty(t, errs)
	require.NotNil(t, doc)

	assert.Equal(t, APIVersion, doc.APIVersion)
	assert.Equal(t, "Checkout redesign", doc.Session.Name)
	require.Len(t, doc.Items, 2)
	require.Len(t, doc.Items[0].Steps, 4)
	assert.Equal(t, "delay", doc.Items[0].Steps[3].Type)
	require.NotNil(t, doc.Items[0].Steps[3].EstimatedDurationMinutes)
	assert.Equal(t, 10, *doc.Items[0].Steps[3].EstimatedDurationMinutes)
	assert.Len(t, doc.Guests, 2)
	assert.Len(t, doc.Collaborators, 1)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc, errs := ValidateFile("testdata/unknown-field.yaml")
	assert.Nil(t, doc)
	require.Len(t, errs, 1)
	assert.Equal(t, PhaseStructural, errs[0].Phase)
	assert.Contains(t, errs[0].Message, "owner")
}

func TestValidateReportsEveryRule(t *testing.T) {
	_, errs := ValidateFile("testdata/invalid-rules.yaml")
	require.NotEmpty(t, errs)

	assert.Contains(t, paths(errs, PhaseSemantic), "items/0/steps/2/type")

	domainPaths := paths(errs, PhaseDomain)
	assert.Contains(t, domainPaths, "items[0].steps[0].notes_prompt")
	assert.Contains(t, domainPaths, "items[0].steps[1].estimated_duration_minutes")
	assert.Contains(t, domainPaths, "items[0].steps[2].step_type")
}

func TestValidateAPIVersion(t *testing.T) {
	doc, err := Load(strings.NewReader("apiVersion: uat/v2\nsession:\n  name: x\n"))
	require.NoError(t, err)

	errs := Validate(doc)
	assert.Contains(t, paths(errs, PhaseSemantic), "apiVersion")
	assert.Contains(t, paths(errs, PhaseDomain), "apiVersion")
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"apiVersion"`)
	assert.Contains(t, s, `"estimated_duration_minutes"`)
	assert.Contains(t, s, "uat/v1")
}

func TestApplyCreatesSession(t *testing.T) {
	ctx := context.Background()
	svc := service.New(helpers.NewTestSQLiteStore(t), helpers.NewTestPolicyEngine(t), nil, nil)
	actor, err := svc.InternalActor("u1", "Uma", "uma@example.com")
	require.NoError(t, err)
	access := service.InternalAccess(actor)

	doc, err := LoadFile("testdata/valid.yaml")
	require.NoError(t, err)

	res, err := Apply(ctx, svc, access, doc)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, res.Session.Status)
	assert.Equal(t, "u1", res.Session.OwnerID)
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 5, res.Steps)
	require.Len(t, res.Guests, 2)
	assert.Equal(t, domain.GuestRoleReviewer, res.Guests[0].Role)
	assert.Equal(t, domain.GuestRoleDeveloper, res.Guests[1].Role)
	require.Len(t, res.Collaborators, 1)

	items, err := svc.ListItems(ctx, access, res.Session.SessionID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Guest checkout", items[0].Title)

	steps, err := svc.ListSteps(ctx, access, items[0].ItemID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, domain.StepTypeInfo, steps[0].StepType)
	assert.Equal(t, "Which card did you use?", steps[2].NotesPrompt)

	pc, err := svc.ResolvePortal(ctx, domain.PortalReview, res.Guests[0].Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.SessionID, pc.Session.SessionID)
}

func TestApplyRejectsInvalidDocument(t *testing.T) {
	ctx := context.Background()
	svc := service.New(helpers.NewTestSQLiteStore(t), helpers.NewTestPolicyEngine(t), nil, nil)
	actor, err := svc.InternalActor("u1", "", "")
	require.NoError(t, err)
	access := service.InternalAccess(actor)

	doc, err := LoadFile("testdata/invalid-rules.yaml")
	require.NoError(t, err)

	_, err = Apply(ctx, svc, access, doc)
	var invalid *InvalidDocumentError
	require.True(t, errors.As(err, &invalid))
	assert.NotEmpty(t, invalid.Problems)

	sessions, err := svc.ListSessions(ctx, access, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
