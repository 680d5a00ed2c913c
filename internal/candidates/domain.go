package candidates

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a registered test-taker undergoing the assessment. The record
// is created on registration (or first form submission) and flipped to
// completed together with the final step's score.
type Candidate struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Phone       string
	Company     string
	Position    string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
