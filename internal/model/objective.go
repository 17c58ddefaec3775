package model

import (
	"fmt"
	"time"
)

// Complexity grades a learning objective and maps it onto a difficulty band.
type Complexity string

const (
	ComplexityBasic        Complexity = "BASIC"        // band 0-40
	ComplexityIntermediate Complexity = "INTERMEDIATE" // band 41-70
	ComplexityAdvanced     Complexity = "ADVANCED"     // band 71-100
)

// ParseComplexity converts a stored label into a Complexity, rejecting
// anything outside the known set.
func ParseComplexity(s string) (Complexity, error) {
	c := Complexity(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown complexity %q", s)
	}
	return c, nil
}

// IsValid reports whether c is one of the three known grades.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityBasic, ComplexityIntermediate, ComplexityAdvanced:
		return true
	}
	return false
}

// Band returns the inclusive difficulty band for the grade.
func (c Complexity) Band() (min, max float64) {
	switch c {
	case ComplexityBasic:
		return 0, 40
	case ComplexityIntermediate:
		return 41, 70
	case ComplexityAdvanced:
		return 71, 100
	}
	return 0, 100
}

// Contains reports whether a difficulty level falls inside the band.
func (c Complexity) Contains(difficulty float64) bool {
	min, max := c.Band()
	return difficulty >= min && difficulty <= max
}

// LearningObjective is a unit of competence a learner works toward.
type LearningObjective struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Complexity  Complexity `json:"complexity" bson:"complexity"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}
