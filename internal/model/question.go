package model

import "time"

// PromptType describes how a bank item is presented to the learner.
type PromptType string

const (
	PromptCaseVignette   PromptType = "CASE_VIGNETTE"
	PromptMultipleChoice PromptType = "MULTIPLE_CHOICE"
	PromptShortAnswer    PromptType = "SHORT_ANSWER"
)

// IsValid reports whether p is a known prompt type.
func (p PromptType) IsValid() bool {
	switch p {
	case PromptCaseVignette, PromptMultipleChoice, PromptShortAnswer:
		return true
	}
	return false
}

// QuestionBankItem is a psychometrically scored item in the bank.
// DiscriminationIndex stays nil until the item has accumulated at least
// 20 responses; usage fields are mutated in place on each presentation.
type QuestionBankItem struct {
	ID                  string     `json:"id" bson:"_id,omitempty"`
	ObjectiveID         string     `json:"objectiveId" bson:"objectiveId"`
	ConceptName         string     `json:"conceptName" bson:"conceptName"`
	PromptType          PromptType `json:"promptType" bson:"promptType"`
	Prompt              string     `json:"prompt" bson:"prompt"`
	Options             []string   `json:"options,omitempty" bson:"options,omitempty"` // MULTIPLE_CHOICE only
	DifficultyLevel     float64    `json:"difficultyLevel" bson:"difficultyLevel"`     // 0-100
	DiscriminationIndex *float64   `json:"discriminationIndex,omitempty" bson:"discriminationIndex,omitempty"`
	TimesUsed           int        `json:"timesUsed" bson:"timesUsed"`
	LastUsedAt          *time.Time `json:"lastUsedAt,omitempty" bson:"lastUsedAt,omitempty"`
	FlagReason          string     `json:"flagReason,omitempty" bson:"flagReason,omitempty"`
	CreatedAt           time.Time  `json:"createdAt" bson:"createdAt"`
}

// IsFlagged reports whether the item has been marked for review.
func (q *QuestionBankItem) IsFlagged() bool {
	return q.FlagReason != ""
}
