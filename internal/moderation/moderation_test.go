package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/llm"
	"sidequest/internal/models"
)

type stubProvider struct {
	text string
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text}, nil
}

func TestDecide_RejectCategoriesIgnoreConfidence(t *testing.T) {
	for _, cat := range []Category{HateSpeech, Violence, AdultContent} {
		d := Decide(&Classification{Categories: []Category{cat}, Confidence: 0.01})
		assert.Equal(t, models.ModerationRejected, d.Status, cat)
		assert.Equal(t, SeverityHigh, d.Severity)
	}
}

func TestDecide_FlagsAndApproves(t *testing.T) {
	d := Decide(&Classification{Categories: []Category{Profanity}, Confidence: 0.6})
	assert.Equal(t, models.ModerationFlagged, d.Status)
	assert.Equal(t, SeverityMedium, d.Severity)

	d = Decide(&Classification{Categories: []Category{Harassment}, Confidence: 0.3})
	assert.Equal(t, models.ModerationFlagged, d.Status)
	assert.Equal(t, SeverityLow, d.Severity)

	d = Decide(&Classification{})
	assert.Equal(t, models.ModerationApproved, d.Status)
	assert.Empty(t, d.Reason)
}

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier()
	ctx := context.Background()

	c, err := k.Classify(ctx, Content{Kind: KindText, Text: "Great run today, felt amazing"})
	require.NoError(t, err)
	assert.Empty(t, c.Categories)
	assert.Zero(t, c.Confidence)

	c, err = k.Classify(ctx, Content{Kind: KindText, Text: "this shit is hard"})
	require.NoError(t, err)
	assert.Equal(t, []Category{Profanity}, c.Categories)
	assert.InDelta(t, 0.3, c.Confidence, 1e-9)

	c, err = k.Classify(ctx, Content{Kind: KindText, Text: "They are subhuman"})
	require.NoError(t, err)
	assert.True(t, c.Has(HateSpeech))
}

func TestKeywordClassifier_SpamThreshold(t *testing.T) {
	k := NewKeywordClassifier()

	c, _ := k.Classify(context.Background(), Content{Text: "see https://example.com"})
	assert.False(t, c.Has(Spam))

	c, _ = k.Classify(context.Background(), Content{Text: "CLICK HERE https://example.com"})
	assert.True(t, c.Has(Spam))
}

func TestKeywordClassifier_ConfidenceCapped(t *testing.T) {
	k := NewKeywordClassifier()
	c, _ := k.Classify(context.Background(), Content{Text: "fuck shit bitch asshole bastard, I will kill you"})
	assert.Equal(t, 1.0, c.Confidence)
}

func TestModerator_HateSpeechRejected(t *testing.T) {
	m := NewModerator(nil, zap.NewNop())
	d, err := m.ModerateText(context.Background(), "go back to your country")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationRejected, d.Status)
	assert.True(t, d.IsRejected())
}

func TestModerator_EmptyTextApproved(t *testing.T) {
	m := NewModerator(nil, zap.NewNop())
	d, err := m.ModerateText(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, d.Status)
}

func TestModerator_ImageAndVideoStubs(t *testing.T) {
	m := NewModerator(nil, zap.NewNop())
	for _, kind := range []Kind{KindImage, KindVideo} {
		d, err := m.Moderate(context.Background(), Content{Kind: kind, URL: "https://cdn.example/x"})
		require.NoError(t, err)
		assert.Equal(t, models.ModerationApproved, d.Status)
		assert.True(t, d.Classification.Stub)
	}
}

func TestModerator_LLMFailureFallsBackToKeywords(t *testing.T) {
	m := NewModerator(NewLLMClassifier(stubProvider{err: errors.New("timeout")}), zap.NewNop())
	d, err := m.ModerateText(context.Background(), "this is shit")
	require.NoError(t, err)
	assert.True(t, d.FallbackUsed)
	assert.Equal(t, "keyword", d.Classification.Classifier)
	assert.Equal(t, models.ModerationFlagged, d.Status)
}

func TestModerator_LLMVerdict(t *testing.T) {
	m := NewModerator(NewLLMClassifier(stubProvider{text: `{"categories":["VIOLENCE"],"confidence":0.2,"reason":"threat"}`}), zap.NewNop())
	d, err := m.ModerateText(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, d.FallbackUsed)
	assert.Equal(t, models.ModerationRejected, d.Status)
}

func TestModerator_LLMUnknownCategoryFallsBack(t *testing.T) {
	m := NewModerator(NewLLMClassifier(stubProvider{text: `{"categories":["RUDE"],"confidence":0.9}`}), zap.NewNop())
	d, err := m.ModerateText(context.Background(), "hello there")
	require.NoError(t, err)
	assert.True(t, d.FallbackUsed)
	assert.Equal(t, models.ModerationApproved, d.Status)
}

func TestModerator_UnknownKind(t *testing.T) {
	m := NewModerator(nil, zap.NewNop())
	_, err := m.Moderate(context.Background(), Content{Kind: "audio"})
	assert.Error(t, err)
}
