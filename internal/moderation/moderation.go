// Package moderation classifies user content and turns classifications into
// approve / flag / reject decisions.
package moderation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/models"
)

// Kind is the media kind of a piece of content
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Category is a moderation label
type Category string

const (
	Profanity    Category = "PROFANITY"
	HateSpeech   Category = "HATE_SPEECH"
	Violence     Category = "VIOLENCE"
	AdultContent Category = "ADULT_CONTENT"
	Spam         Category = "SPAM"
	Harassment   Category = "HARASSMENT"
)

// AllCategories lists every known label
var AllCategories = []Category{Profanity, HateSpeech, Violence, AdultContent, Spam, Harassment}

// Severity grades a classification
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Content is one item to moderate
type Content struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Classification is a classifier's raw verdict
type Classification struct {
	Categories []Category `json:"categories"`
	Confidence float64    `json:"confidence"`
	Reasons    []string   `json:"reasons,omitempty"`
	Classifier string     `json:"classifier"`
	// Stub marks verdicts from classifiers with no real detection behind them.
	Stub bool `json:"stub,omitempty"`
}

// Has reports whether the classification carries a category
func (c *Classification) Has(cat Category) bool {
	for _, v := range c.Categories {
		if v == cat {
			return true
		}
	}
	return false
}

// Classifier labels content
type Classifier interface {
	Name() string
	Classify(ctx context.Context, content Content) (*Classification, error)
}

// Decision is the moderation outcome for a piece of content
type Decision struct {
	Status         models.ModerationStatus `json:"status"`
	Severity       Severity                `json:"severity"`
	Classification *Classification         `json:"classification"`
	Reason         string                  `json:"reason,omitempty"`
	FallbackUsed   bool                    `json:"fallback_used,omitempty"`
}

// IsRejected reports whether the content must not be published
func (d *Decision) IsRejected() bool {
	return d.Status == models.ModerationRejected
}

// rejectCategories are rejected regardless of confidence
var rejectCategories = []Category{HateSpeech, Violence, AdultContent}

// Grade computes the severity of a classification
func Grade(c *Classification) Severity {
	for _, cat := range rejectCategories {
		if c.Has(cat) {
			return SeverityHigh
		}
	}
	if c.Confidence >= 0.5 {
		return SeverityMedium
	}
	return SeverityLow
}

// Decide maps a classification onto a moderation status
func Decide(c *Classification) Decision {
	sev := Grade(c)
	d := Decision{Severity: sev, Classification: c}

	switch {
	case sev == SeverityHigh:
		d.Status = models.ModerationRejected
	case sev == SeverityMedium:
		d.Status = models.ModerationFlagged
	case len(c.Categories) > 0:
		d.Status = models.ModerationFlagged
	default:
		d.Status = models.ModerationApproved
	}

	if len(c.Categories) > 0 {
		labels := make([]string, 0, len(c.Categories))
		for _, cat := range c.Categories {
			labels = append(labels, string(cat))
		}
		d.Reason = fmt.Sprintf("detected: %s", strings.Join(labels, ", "))
	}
	return d
}

// ===============================
// MODERATOR
// ===============================

// Moderator routes content to the classifier for its kind
type Moderator struct {
	text     Classifier
	fallback Classifier
	image    Classifier
	video    Classifier
	logger   *zap.Logger
}

// NewModerator creates a moderator. text may be nil, in which case the
// keyword classifier handles text directly.
func NewModerator(text Classifier, logger *zap.Logger) *Moderator {
	keyword := NewKeywordClassifier()
	if text == nil {
		text = keyword
	}
	return &Moderator{
		text:     text,
		fallback: keyword,
		image:    StubClassifier{Kind: KindImage},
		video:    StubClassifier{Kind: KindVideo},
		logger:   logger,
	}
}

// Moderate classifies content and decides its status. A failing text
// classifier falls back to keyword matching instead of failing the call.
func (m *Moderator) Moderate(ctx context.Context, content Content) (*Decision, error) {
	var (
		classifier Classifier
		fallback   bool
	)

	switch content.Kind {
	case KindImage:
		classifier = m.image
	case KindVideo:
		classifier = m.video
	case KindText, "":
		content.Kind = KindText
		classifier = m.text
		if strings.TrimSpace(content.Text) == "" {
			d := Decide(&Classification{Classifier: classifier.Name()})
			return &d, nil
		}
	default:
		return nil, fmt.Errorf("unsupported content kind %q", content.Kind)
	}

	c, err := classifier.Classify(ctx, content)
	if err != nil {
		if content.Kind != KindText || classifier == m.fallback {
			return nil, fmt.Errorf("moderation failed: %w", err)
		}
		m.logger.Warn("Text classifier failed, using keyword moderation",
			zap.String("classifier", classifier.Name()),
			zap.Error(err),
		)
		fallback = true
		if c, err = m.fallback.Classify(ctx, content); err != nil {
			return nil, fmt.Errorf("moderation failed: %w", err)
		}
	}

	d := Decide(c)
	d.FallbackUsed = fallback
	return &d, nil
}

// ModerateText is a convenience wrapper for text content
func (m *Moderator) ModerateText(ctx context.Context, text string) (*Decision, error) {
	return m.Moderate(ctx, Content{Kind: KindText, Text: text})
}

// ===============================
// STUB CLASSIFIER
// ===============================

// StubClassifier approves everything of its kind. It stands in for image and
// video detection, which is not implemented.
type StubClassifier struct {
	Kind Kind
}

// Name identifies the classifier
func (s StubClassifier) Name() string { return "stub-" + string(s.Kind) }

// Classify always reports clean content
func (s StubClassifier) Classify(_ context.Context, _ Content) (*Classification, error) {
	return &Classification{Classifier: s.Name(), Stub: true}, nil
}
