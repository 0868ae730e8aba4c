package moderation

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"
)

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
	label  string
}

// KeywordClassifier labels text with word lists and regular expressions
type KeywordClassifier struct {
	profanity  map[string]struct{}
	hate       []weightedPattern
	violence   []weightedPattern
	adult      []weightedPattern
	harassment []weightedPattern
	spam       []weightedPattern
}

const (
	profanityWeight = 0.3
	spamThreshold   = 0.5
)

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}']+`)

func mustPatterns(weight float64, exprs ...string) []weightedPattern {
	out := make([]weightedPattern, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, weightedPattern{re: regexp.MustCompile(`(?i)` + e), weight: weight, label: e})
	}
	return out
}

// NewKeywordClassifier creates the default keyword classifier
func NewKeywordClassifier() *KeywordClassifier {
	profanity := map[string]struct{}{}
	for _, w := range []string{"fuck", "fucking", "shit", "bitch", "asshole", "bastard", "dick", "crap", "wtf"} {
		profanity[w] = struct{}{}
	}

	return &KeywordClassifier{
		profanity: profanity,
		hate: mustPatterns(0.6,
			`\bsub-?human\b`,
			`\bethnic cleansing\b`,
			`\bgo back to your (own )?country\b`,
			`\b(all|those) \w+ (people )?(are|should be) (vermin|animals|exterminated)\b`,
		),
		violence: mustPatterns(0.5,
			`\b(kill|murder|stab|shoot) (you|him|her|them|everyone)\b`,
			`\bi('ll| will) (hurt|beat up|kill)\b`,
			`\bbomb (threat|the)\b`,
		),
		adult: mustPatterns(0.5,
			`\b(porn|nsfw|xxx|nudes?)\b`,
			`\bexplicit sex\b`,
		),
		harassment: mustPatterns(0.3,
			`\byou('re| are) (so )?(stupid|worthless|pathetic|a loser)\b`,
			`\bnobody (likes|cares about) you\b`,
			`\bshut up\b`,
		),
		spam: append(
			mustPatterns(0.3, `https?://\S+`, `\bwww\.\S+`),
			mustPatterns(0.4, `\b(buy now|click here|free money|limited offer|act now|dm me for)\b`)...,
		),
	}
}

// Name identifies the classifier
func (k *KeywordClassifier) Name() string { return "keyword" }

// Classify labels text content. Non-text content is reported clean.
func (k *KeywordClassifier) Classify(_ context.Context, content Content) (*Classification, error) {
	c := &Classification{Classifier: k.Name()}
	if content.Kind != KindText && content.Kind != "" {
		return c, nil
	}
	text := content.Text
	score := 0.0

	profane := 0
	for _, w := range wordSplit.Split(strings.ToLower(text), -1) {
		if _, ok := k.profanity[w]; ok {
			profane++
		}
	}
	if profane > 0 {
		c.Categories = append(c.Categories, Profanity)
		c.Reasons = append(c.Reasons, "profanity")
		score += profanityWeight * float64(profane)
	}

	groups := []struct {
		cat      Category
		patterns []weightedPattern
	}{
		{HateSpeech, k.hate},
		{Violence, k.violence},
		{AdultContent, k.adult},
		{Harassment, k.harassment},
	}
	for _, g := range groups {
		matched := false
		for _, p := range g.patterns {
			if p.re.MatchString(text) {
				matched = true
				score += p.weight
				c.Reasons = append(c.Reasons, p.label)
			}
		}
		if matched {
			c.Categories = append(c.Categories, g.cat)
		}
	}

	if spam := k.spamScore(text); spam >= spamThreshold {
		c.Categories = append(c.Categories, Spam)
		c.Reasons = append(c.Reasons, "spam indicators")
		score += spam
	}

	c.Confidence = math.Min(1, score)
	return c, nil
}

// spamScore sums the weights of spam indicators
func (k *KeywordClassifier) spamScore(text string) float64 {
	score := 0.0
	for _, p := range k.spam {
		if p.re.MatchString(text) {
			score += p.weight
		}
	}

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 12 && float64(upper)/float64(letters) > 0.7 {
		score += 0.2
	}
	if strings.Count(text, "!") >= 5 {
		score += 0.1
	}
	if hasRepeatedRun(text, 6) {
		score += 0.2
	}
	return score
}

// hasRepeatedRun reports whether any rune repeats n or more times in a row
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= n {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
