package moderation

import (
	"context"
	"fmt"
	"math"

	"sidequest/internal/llm"
)

const moderationPrompt = `You are a content moderator for a family-friendly fitness and learning app.
Classify the user's text. Return ONLY a JSON object:
{"categories": [..], "confidence": number between 0 and 1, "reason": string}
Allowed categories: PROFANITY, HATE_SPEECH, VIOLENCE, ADULT_CONTENT, SPAM, HARASSMENT.
Use an empty list when the text is acceptable.`

type llmVerdict struct {
	Categories []string `json:"categories"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// LLMClassifier asks a text-generation provider for a verdict
type LLMClassifier struct {
	provider llm.Provider
}

// NewLLMClassifier wraps a provider
func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

// Name identifies the classifier
func (c *LLMClassifier) Name() string { return "llm-" + c.provider.Name() }

// Classify sends the text to the provider and parses its verdict
func (c *LLMClassifier) Classify(ctx context.Context, content Content) (*Classification, error) {
	resp, err := c.provider.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: moderationPrompt,
		UserPrompt:   content.Text,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	verdict, err := llm.ExtractJSON(resp.Text, validateVerdict)
	if err != nil {
		return nil, err
	}

	out := &Classification{
		Confidence: math.Max(0, math.Min(1, verdict.Confidence)),
		Classifier: c.Name(),
	}
	for _, cat := range verdict.Categories {
		out.Categories = append(out.Categories, Category(cat))
	}
	if verdict.Reason != "" {
		out.Reasons = []string{verdict.Reason}
	}
	return out, nil
}

func validateVerdict(v llmVerdict) error {
	for _, cat := range v.Categories {
		known := false
		for _, k := range AllCategories {
			if string(k) == cat {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown category %q", cat)
		}
	}
	return nil
}
