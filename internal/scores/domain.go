package scores

import (
	"time"

	"github.com/google/uuid"
)

// Assessment flow bounds.
const (
	MinStep    = 1
	TotalSteps = 4
	MinAnswer  = 1
	MaxAnswer  = 5
)

// Type tags the questionnaire a score belongs to.
type Type string

const (
	TypePersonality Type = "personality"
	TypeCompetency  Type = "competency"
	TypeFinal       Type = "final"
)

// Valid reports whether the type is one of the known tags.
func (t Type) Valid() bool {
	switch t {
	case TypePersonality, TypeCompetency, TypeFinal:
		return true
	}
	return false
}

// Score is one step's submitted answers with derived totals. Scores are
// immutable once written; (UserID, Step) is unique.
type Score struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Step         int
	Type         Type
	Answers      map[int]int
	TotalScore   int
	AverageScore float64
	CreatedAt    time.Time
}

// Compute derives the total and average from an answer map. Callers must
// reject empty maps first; Compute reports 0/0 for them instead of dividing
// by zero.
func Compute(answers map[int]int) (total int, average float64) {
	for _, v := range answers {
		total += v
	}
	if len(answers) > 0 {
		average = float64(total) / float64(len(answers))
	}
	return total, average
}
