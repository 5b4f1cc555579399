// Package importer loads UAT checklist documents from YAML, validates them
// and writes them into a new session.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/uatdesk/internal/domain"
)

// APIVersion is the only document version understood by this package.
const APIVersion = "uat/v1"

// Document is the top-level checklist document.
type Document struct {
	APIVersion    string             `yaml:"apiVersion" json:"apiVersion" jsonschema:"required,enum=uat/v1"`
	Session       SessionSpec        `yaml:"session" json:"session" jsonschema:"required"`
	Items         []ItemSpec         `yaml:"items,omitempty" json:"items,omitempty"`
	Guests        []GuestSpec        `yaml:"guests,omitempty" json:"guests,omitempty"`
	Collaborators []CollaboratorSpec `yaml:"collaborators,omitempty" json:"collaborators,omitempty"`
}

// SessionSpec describes the session to create.
type SessionSpec struct {
	Name        string `yaml:"name" json:"name" jsonschema:"required,minLength=1"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Status      string `yaml:"status,omitempty" json:"status,omitempty" jsonschema:"enum=draft,enum=active"`
}

// ItemSpec is one checklist item with its steps in order.
type ItemSpec struct {
	Title        string     `yaml:"title" json:"title" jsonschema:"required,minLength=1"`
	Instructions string     `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Steps        []StepSpec `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// StepSpec is one step of an item.
type StepSpec struct {
	Type                     string `yaml:"type" json:"type" jsonschema:"required,enum=test,enum=delay,enum=info"`
	Title                    string `yaml:"title" json:"title" jsonschema:"required,minLength=1"`
	Instructions             string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	ExpectedResult           string `yaml:"expected_result,omitempty" json:"expected_result,omitempty"`
	LinkURL                  string `yaml:"link_url,omitempty" json:"link_url,omitempty"`
	NotesRequired            bool   `yaml:"notes_required,omitempty" json:"notes_required,omitempty"`
	NotesPrompt              string `yaml:"notes_prompt,omitempty" json:"notes_prompt,omitempty"`
	EstimatedDurationMinutes *int   `yaml:"estimated_duration_minutes,omitempty" json:"estimated_duration_minutes,omitempty" jsonschema:"minimum=0"`
}

// GuestSpec issues a guest link when the document is applied.
type GuestSpec struct {
	Name     string `yaml:"name" json:"name" jsonschema:"required,minLength=1"`
	Email    string `yaml:"email,omitempty" json:"email,omitempty"`
	Role     string `yaml:"role,omitempty" json:"role,omitempty" jsonschema:"enum=reviewer,enum=developer"`
	ReadOnly bool   `yaml:"read_only,omitempty" json:"read_only,omitempty"`
}

// CollaboratorSpec issues a PM link when the document is applied.
type CollaboratorSpec struct {
	Name  string `yaml:"name" json:"name" jsonschema:"required,minLength=1"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

// StepInput converts the document step into the service input.
func (s StepSpec) StepInput() domain.StepInput {
	return domain.StepInput{
		StepType:                 domain.StepType(s.Type),
		Title:                    s.Title,
		Instructions:             s.Instructions,
		ExpectedResult:           s.ExpectedResult,
		LinkURL:                  s.LinkURL,
		NotesRequired:            s.NotesRequired,
		NotesPrompt:              s.NotesPrompt,
		EstimatedDurationMinutes: s.EstimatedDurationMinutes,
	}
}

// LoadFile reads a checklist document, rejecting unknown fields.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checklist: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a checklist document, rejecting unknown fields.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	return &doc, nil
}

// GenerateJSONSchema reflects the JSON Schema of Document.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Document{})
	s.ID = "https://github.com/xiaot623/uatdesk/schemas/checklist-v1.json"
	s.Title = "UAT checklist v1"
	s.Description = "Schema for UAT checklist YAML documents"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
