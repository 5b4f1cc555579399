package domain

import "fmt"

// ItemProgress counts step results of an item's active run.
type ItemProgress struct {
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Acknowledged int `json:"acknowledged"`
	Pending      int `json:"pending"`
}

// Completed returns the number of steps with a passing outcome.
func (p ItemProgress) Completed() int {
	return p.Passed + p.Acknowledged
}

// Label renders progress the way reviewers see it, e.g. "2/3 passed".
func (p ItemProgress) Label() string {
	return fmt.Sprintf("%d/%d passed", p.Completed(), p.Total)
}

// ComputeProgress counts results against the number of steps in the item.
// Steps without a result row count as pending.
func ComputeProgress(stepCount int, results []TestStepResult) ItemProgress {
	p := ItemProgress{Total: stepCount}
	for _, r := range results {
		switch r.Status {
		case StepResultStatusPassed:
			p.Passed++
		case StepResultStatusFailed:
			p.Failed++
		case StepResultStatusAcknowledged:
			p.Acknowledged++
		case StepResultStatusPending:
		}
	}
	p.Pending = stepCount - p.Passed - p.Failed - p.Acknowledged
	if p.Pending < 0 {
		p.Pending = 0
	}
	return p
}

// DeriveItemStatus computes the item status from its active run's results:
// failed if any step failed, passed if every step passed or was acknowledged,
// partial if some step has a terminal result, pending otherwise.
func DeriveItemStatus(stepCount int, results []TestStepResult) ItemStatus {
	p := ComputeProgress(stepCount, results)
	switch {
	case p.Failed > 0:
		return ItemStatusFailed
	case stepCount > 0 && p.Completed() == stepCount:
		return ItemStatusPassed
	case p.Completed() > 0:
		return ItemStatusPartial
	default:
		return ItemStatusPending
	}
}

// ItemSummary is an item with its derived state, as shown to reviewers and in
// notification emails.
type ItemSummary struct {
	Item     ChecklistItem       `json:"item"`
	Steps    []ChecklistItemStep `json:"steps"`
	Run      *TestRun            `json:"run"`
	Results  []TestStepResult    `json:"results"`
	Status   ItemStatus          `json:"status"`
	Progress ItemProgress        `json:"progress"`
	Label    string              `json:"label"`
}

// FailureNotes returns the notes of failed steps keyed by step title, in step order.
func (s ItemSummary) FailureNotes() []StepNote {
	byStep := make(map[string]TestStepResult, len(s.Results))
	for _, r := range s.Results {
		byStep[r.StepID] = r
	}
	var notes []StepNote
	for _, step := range s.Steps {
		r, ok := byStep[step.StepID]
		if !ok || r.Status != StepResultStatusFailed {
			continue
		}
		notes = append(notes, StepNote{StepTitle: step.Title, Notes: r.Notes})
	}
	return notes
}

// StepNote pairs a step title with the note left on its result.
type StepNote struct {
	StepTitle string `json:"step_title"`
	Notes     string `json:"notes"`
}

// NewItemSummary assembles a summary and derives its status and progress.
func NewItemSummary(item ChecklistItem, steps []ChecklistItemStep, run *TestRun, results []TestStepResult) ItemSummary {
	if results == nil {
		results = []TestStepResult{}
	}
	if steps == nil {
		steps = []ChecklistItemStep{}
	}
	progress := ComputeProgress(len(steps), results)
	return ItemSummary{
		Item:     item,
		Steps:    steps,
		Run:      run,
		Results:  results,
		Status:   DeriveItemStatus(len(steps), results),
		Progress: progress,
		Label:    progress.Label(),
	}
}

// SessionSummary is a session with every item's derived state.
type SessionSummary struct {
	Session *Session      `json:"session"`
	Items   []ItemSummary `json:"items"`
}
