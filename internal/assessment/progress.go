package assessment

import (
	"errors"
	"fmt"
	"time"

	"github.com/spac-assessment/spac/internal/scores"
)

// MaxSelections caps how many options a multi-select question accepts.
const MaxSelections = 5

// ErrSelectionLimit is returned when toggling an option would exceed
// MaxSelections. The progress is left unchanged.
var ErrSelectionLimit = errors.New("assessment: selection limit reached")

// CandidateInfo is the identity captured at the start of the flow.
type CandidateInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Progress tracks one candidate's position in the questionnaire. It lives in
// the session store, not the database; only the final scores are persisted.
type Progress struct {
	Candidate  CandidateInfo    `json:"candidate"`
	Step       int              `json:"step"`
	Answers    map[int]int      `json:"answers"`
	Selections map[int][]string `json:"selections"`
	StartedAt  time.Time        `json:"startedAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// NewProgress starts a fresh flow at the first step.
func NewProgress(now time.Time) *Progress {
	return &Progress{
		Step:       scores.MinStep,
		Answers:    make(map[int]int),
		Selections: make(map[int][]string),
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// SetCandidate records (or overwrites) the candidate identity.
func (p *Progress) SetCandidate(name, email string) {
	p.Candidate = CandidateInfo{Name: name, Email: email}
}

// RecordAnswer stores a scale answer for a question on the current step.
func (p *Progress) RecordAnswer(question, value int) error {
	if value < scores.MinAnswer || value > scores.MaxAnswer {
		return fmt.Errorf("assessment: answer %d out of range: %d", question, value)
	}
	q, ok := p.findQuestion(question)
	if !ok {
		return fmt.Errorf("assessment: question %d is not on step %d", question, p.Step)
	}
	if q.Kind != KindScale {
		return fmt.Errorf("assessment: question %d does not take a scale answer", question)
	}
	if p.Answers == nil {
		p.Answers = make(map[int]int)
	}
	p.Answers[question] = value
	return nil
}

// ToggleOption adds or removes one option on a multi-select question. Adding
// beyond MaxSelections fails without mutating the selection.
func (p *Progress) ToggleOption(question int, option string) error {
	q, ok := p.findQuestion(question)
	if !ok {
		return fmt.Errorf("assessment: question %d is not on step %d", question, p.Step)
	}
	if q.Kind != KindMulti {
		return fmt.Errorf("assessment: question %d does not take options", question)
	}
	if !validOption(q, option) {
		return fmt.Errorf("assessment: unknown option %q for question %d", option, question)
	}

	if p.Selections == nil {
		p.Selections = make(map[int][]string)
	}
	current := p.Selections[question]
	for i, chosen := range current {
		if chosen == option {
			p.Selections[question] = append(current[:i], current[i+1:]...)
			return nil
		}
	}
	if len(current) >= MaxSelections {
		return ErrSelectionLimit
	}
	p.Selections[question] = append(current, option)
	return nil
}

// CanAdvance reports whether every question of the current step is answered.
// Multi-select questions need at least one option.
func (p *Progress) CanAdvance() bool {
	def, ok := StepByNumber(p.Step)
	if !ok {
		return false
	}
	for _, q := range def.Questions {
		switch q.Kind {
		case KindScale:
			if _, answered := p.Answers[q.ID]; !answered {
				return false
			}
		case KindMulti:
			if len(p.Selections[q.ID]) == 0 {
				return false
			}
		}
	}
	return true
}

// Advance moves to the next step; a no-op on the last one.
func (p *Progress) Advance() {
	if p.Step < scores.TotalSteps {
		p.Step++
	}
}

// Retreat moves back one step; a no-op on the first one.
func (p *Progress) Retreat() {
	if p.Step > scores.MinStep {
		p.Step--
	}
}

// StepAnswers returns the scale answers belonging to the given step, keyed by
// question ID. Used when turning a finished step into a score submission.
func (p *Progress) StepAnswers(step int) map[int]int {
	def, ok := StepByNumber(step)
	if !ok {
		return nil
	}
	out := make(map[int]int)
	for _, q := range def.Questions {
		if v, answered := p.Answers[q.ID]; answered {
			out[q.ID] = v
		}
	}
	return out
}

func (p *Progress) findQuestion(id int) (Question, bool) {
	def, ok := StepByNumber(p.Step)
	if !ok {
		return Question{}, false
	}
	for _, q := range def.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func validOption(q Question, option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
