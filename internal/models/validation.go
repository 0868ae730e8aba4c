// file: internal/models/validation.go
package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ===============================
// VALIDATION ERRORS
// ===============================

// ValidationError represents a validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ===============================
// ENUM PARSING
// ===============================

// ParseDifficulty accepts any casing of a difficulty tier
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyEpic:
		return d, true
	}
	return "", false
}

// ParseSubmissionType accepts any casing of a submission type
func ParseSubmissionType(s string) (SubmissionType, bool) {
	t := SubmissionType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case SubmissionTypePhoto, SubmissionTypeVideo, SubmissionTypeText, SubmissionTypeChecklist:
		return t, true
	}
	return "", false
}

// ParseQuestStatus accepts any casing of a quest status
func ParseQuestStatus(s string) (QuestStatus, bool) {
	st := QuestStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case QuestStatusDraft, QuestStatusAvailable, QuestStatusActive,
		QuestStatusCompleted, QuestStatusExpired, QuestStatusArchived:
		return st, true
	}
	return "", false
}

// ===============================
// CORE VALIDATORS
// ===============================

// PasswordValidator validates passwords
func PasswordValidator(field string, value string) *ValidationError {
	if len(value) < 8 {
		return &ValidationError{
			Field:   field,
			Message: "password must be at least 8 characters",
			Code:    "too_short",
		}
	}
	if len(value) > 128 {
		return &ValidationError{
			Field:   field,
			Message: "password must be 128 characters or less",
			Code:    "too_long",
		}
	}

	var hasLetter, hasDigit bool
	for _, char := range value {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	var missing []string
	if !hasLetter {
		missing = append(missing, "letter")
	}
	if !hasDigit {
		missing = append(missing, "number")
	}
	if len(missing) > 0 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must contain at least one: %s", strings.Join(missing, ", ")),
			Code:    "weak_password",
		}
	}

	return nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeString strips null bytes and collapses whitespace
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	return whitespaceRun.ReplaceAllString(input, " ")
}

// NormalizeEmail lowercases and trims email addresses
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
