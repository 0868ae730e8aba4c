package questgen

import (
	"fmt"

	"sidequest/internal/validation"
)

// Source records where a generated quest came from
type Source string

const (
	SourceAI   Source = "ai"
	SourceMock Source = "mock"
)

// AIQuestOutput is the JSON object a generator returns
type AIQuestOutput struct {
	Title            string   `json:"title" validate:"required,max=60"`
	ShortDescription string   `json:"shortDescription" validate:"required,max=120"`
	Category         string   `json:"category" validate:"required,oneof=fitness learning"`
	Difficulty       string   `json:"difficulty" validate:"required,oneof=easy medium hard epic"`
	DurationMin      int      `json:"duration_min" validate:"min=1,max=1440"`
	Description      string   `json:"description" validate:"required"`
	SafetyNotes      string   `json:"safety_notes"`
	Proof            []string `json:"proof" validate:"required,min=1,dive,required"`
	XP               int      `json:"xp" validate:"oneof=50 100 150 250"`
}

// Validate checks the output against the generation contract
func (o AIQuestOutput) Validate() error {
	if err := validation.ValidateStruct(&o); err != nil {
		return fmt.Errorf("generated quest does not match contract: %w", err)
	}
	return nil
}

// Generated is a validated generator output plus provenance
type Generated struct {
	Output         AIQuestOutput `json:"quest"`
	Selection      *Selection    `json:"selection"`
	Source         Source        `json:"source"`
	Provider       string        `json:"provider,omitempty"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
}
