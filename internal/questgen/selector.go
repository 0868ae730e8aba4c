package questgen

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Template is one quest shape the generator knows how to produce
type Template struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Summary  string   `json:"summary"`
	Proof    []string `json:"proof"`
}

// Catalog is the fixed set of templates, grouped by category
var Catalog = []Template{
	{
		Key:      "run",
		Category: CategoryFitness,
		Name:     "Distance Run",
		Summary:  "Outdoor run over a set distance at a comfortable pace",
		Proof:    []string{"Photo of your fitness tracker or route map", "Text summary with distance and time"},
	},
	{
		Key:      "walk",
		Category: CategoryFitness,
		Name:     "Exploration Walk",
		Summary:  "Brisk outdoor walk, ideally somewhere you have not been before",
		Proof:    []string{"Photo from the halfway point", "Text summary of the route"},
	},
	{
		Key:      "circuit",
		Category: CategoryFitness,
		Name:     "Bodyweight Circuit",
		Summary:  "Rounds of squats, push-ups, lunges and planks with short rests",
		Proof:    []string{"Short clip of your final round", "List of exercises and reps completed"},
	},
	{
		Key:      "study-sprint",
		Category: CategoryLearning,
		Name:     "Study Sprint",
		Summary:  "Focused, distraction-free study block on a topic of your choice",
		Proof:    []string{"Photo of your notes", "Summary of three key takeaways"},
	},
	{
		Key:      "micro-lesson",
		Category: CategoryLearning,
		Name:     "Micro Lesson",
		Summary:  "Short lessons from a course, video series or app, followed by a self-quiz",
		Proof:    []string{"Text summary of what you learned", "Answer to one self-quiz question in text"},
	},
}

// TemplatesFor returns the catalog entries of a category
func TemplatesFor(c Category) []Template {
	var out []Template
	for _, t := range Catalog {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// ===============================
// ALTERNATOR
// ===============================

// Alternator remembers the last quick-mode category so successive quick
// requests switch between fitness and learning. Concurrent callers may
// still observe the same category; the alternation is best effort.
type Alternator struct {
	mu   sync.Mutex
	last Category
}

// NewAlternator creates an alternator seeded with an explicit last category
func NewAlternator(initial Category) *Alternator {
	if initial == "" {
		initial = CategoryLearning
	}
	return &Alternator{last: initial}
}

// Next picks the category opposite to previous (or to the recorded one when
// previous is empty) and records it.
func (a *Alternator) Next(previous Category) Category {
	a.mu.Lock()
	defer a.mu.Unlock()

	if previous == "" {
		previous = a.last
	}
	next := previous.Opposite()
	a.last = next
	return next
}

// Record stores an explicitly requested category
func (a *Alternator) Record(c Category) {
	a.mu.Lock()
	a.last = c
	a.mu.Unlock()
}

// Last returns the recorded category
func (a *Alternator) Last() Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// ===============================
// SELECTOR
// ===============================

// Request is the caller's generation parameters
type Request struct {
	Mode             Mode     `json:"mode"`
	Tier             Tier     `json:"difficulty"`
	Category         Category `json:"category,omitempty"`
	PreviousCategory Category `json:"previous_category,omitempty"`
	Idea             string   `json:"idea,omitempty"`
}

// Selection is the concrete template and parameters for one generation
type Selection struct {
	Mode          Mode       `json:"mode"`
	Tier          Tier       `json:"difficulty"`
	Category      Category   `json:"category"`
	Template      Template   `json:"template"`
	Params        TierParams `json:"params"`
	TargetMinutes int        `json:"target_minutes"`
	Idea          string     `json:"idea,omitempty"`
}

// Selector resolves a Request into a Selection
type Selector struct {
	alternator *Alternator
	mu         sync.Mutex
	picker     Picker
}

// NewSelector creates a selector. A nil picker uses a time-seeded source.
func NewSelector(alternator *Alternator, picker Picker) *Selector {
	if alternator == nil {
		alternator = NewAlternator(CategoryLearning)
	}
	if picker == nil {
		picker = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{alternator: alternator, picker: picker}
}

// Select resolves the category and template for a request
func (s *Selector) Select(req Request) (*Selection, error) {
	params, ok := ParamsFor(req.Tier)
	if !ok {
		return nil, fmt.Errorf("unknown difficulty %q", req.Tier)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeQuick
	}

	category := req.Category
	switch {
	case mode == ModeQuick && category == "":
		category = s.alternator.Next(req.PreviousCategory)
	case mode == ModeQuick:
		s.alternator.Record(category)
	case category == "":
		category = Categories[s.pick(len(Categories))]
	}

	templates := TemplatesFor(category)
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates for category %q", category)
	}
	tpl := templates[s.pick(len(templates))]

	return &Selection{
		Mode:          mode,
		Tier:          req.Tier,
		Category:      category,
		Template:      tpl,
		Params:        params,
		TargetMinutes: params.Minutes(category).Default,
		Idea:          req.Idea,
	}, nil
}

// Alternator exposes the shared alternation state
func (s *Selector) Alternator() *Alternator {
	return s.alternator
}

func (s *Selector) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.picker.Intn(n)
}
