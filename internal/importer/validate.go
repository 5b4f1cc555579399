package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/service"
)

// Validation phases.
const (
	PhaseStructural = "structural"
	PhaseSemantic   = "semantic"
	PhaseDomain     = "domain"
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Phase   string `json:"phase"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

var (
	compileOnce    sync.Once
	compiledSchema *sjsonschema.Schema
	compileErr     error
)

func checklistSchema() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		schemaJSON, err := GenerateJSONSchema()
		if err != nil {
			compileErr = err
			return
		}
		var schemaDoc interface{}
		if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource("checklist-v1.json", schemaDoc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("checklist-v1.json")
	})
	return compiledSchema, compileErr
}

// ValidateFile runs every phase on a file: strict decode, JSON Schema and
// domain rules. A structural failure stops the pipeline.
func ValidateFile(path string) (*Document, []*ValidationError) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{Phase: PhaseStructural, Message: err.Error()}}
	}
	return doc, Validate(doc)
}

// Validate runs the semantic and domain phases on a decoded document.
func Validate(doc *Document) []*ValidationError {
	errs := validateSemantic(doc)
	errs = append(errs, ValidateDomain(doc)...)
	return errs
}

func validateSemantic(doc *Document) []*ValidationError {
	fail := func(format string, args ...interface{}) []*ValidationError {
		return []*ValidationError{{Phase: PhaseSemantic, Message: fmt.Sprintf(format, args...)}}
	}

	sch, err := checklistSchema()
	if err != nil {
		return fail("compile schema: %v", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fail("marshal for schema validation: %v", err)
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fail("unmarshal document: %v", err)
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fail("%v", err)
	}

	p := message.NewPrinter(language.English)
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			Phase:   PhaseSemantic,
			Path:    strings.Join(cause.InstanceLocation, "/"),
			Message: cause.ErrorKind.LocalizedString(p),
		})
	}
	return errs
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain checks the rules JSON Schema cannot express. Step rules are
// the ones the service enforces on every step write.
func ValidateDomain(doc *Document) []*ValidationError {
	var errs []*ValidationError
	add := func(path, msg string) {
		errs = append(errs, &ValidationError{Phase: PhaseDomain, Path: path, Message: msg})
	}

	if doc.APIVersion != APIVersion {
		add("apiVersion", fmt.Sprintf("unsupported apiVersion %q, want %q", doc.APIVersion, APIVersion))
	}
	if strings.TrimSpace(doc.Session.Name) == "" {
		add("session.name", "session name is required")
	}
	if doc.Session.Status != "" {
		status := domain.SessionStatus(doc.Session.Status)
		if status != domain.SessionStatusDraft && status != domain.SessionStatusActive {
			add("session.status", fmt.Sprintf("imported sessions start as draft or active, got %q", doc.Session.Status))
		}
	}

	for i, item := range doc.Items {
		itemPath := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Title) == "" {
			add(itemPath+".title", "item title is required")
		}
		for j, step := range item.Steps {
			stepPath := fmt.Sprintf("%s.steps[%d]", itemPath, j)
			if err := service.ValidateStepInput(step.StepInput()); err != nil {
				var ve *domain.ValidationError
				if errors.As(err, &ve) {
					add(stepPath+"."+ve.Field, ve.Message)
				} else {
					add(stepPath, err.Error())
				}
			}
			if step.EstimatedDurationMinutes != nil && domain.StepType(step.Type) != domain.StepTypeDelay {
				add(stepPath+".estimated_duration_minutes", "only delay steps carry an estimated duration")
			}
		}
	}

	for i, g := range doc.Guests {
		if g.Role != "" && !domain.GuestRole(g.Role).Valid() {
			add(fmt.Sprintf("guests[%d].role", i), fmt.Sprintf("unknown guest role %q", g.Role))
		}
	}
	return errs
}
