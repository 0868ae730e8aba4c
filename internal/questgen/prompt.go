package questgen

import (
	"fmt"
	"strings"
)

// SystemPromptHeader is the fixed role and rule text of the generator prompt.
// The difficulty tables and the template catalog are appended by BuildSystemPrompt.
const SystemPromptHeader = `You are the SideQuest quest designer. You write short, safe, real-life
challenges ("side quests") that an ordinary adult can finish in a single session
without special equipment.

RULES
- Output ONLY one JSON object. No markdown, no commentary.
- Use the requested category, difficulty and template.
- Scale the duration to the difficulty using the tables below.
- Quests must be safe, legal, free or nearly free and doable alone.
- Never ask for personal data, locations of other people or purchases.
- Proof items describe what the player submits: a photo, a short clip or video,
  a text summary or a list.
`

// OutputContract is the JSON shape the generator must return
const OutputContract = `OUTPUT JSON SHAPE
{
  "title": string, at most 60 characters,
  "shortDescription": string, at most 120 characters,
  "category": "fitness" | "learning",
  "difficulty": "easy" | "medium" | "hard" | "epic",
  "duration_min": integer minutes,
  "description": string,
  "safety_notes": string,
  "proof": [string, ...],
  "xp": one of 50, 100, 150, 250
}`

// BuildSystemPrompt renders the fixed system prompt
func BuildSystemPrompt() string {
	var b strings.Builder
	b.WriteString(SystemPromptHeader)

	b.WriteString("\nDURATION SCALING (minutes, xp)\n")
	b.WriteString("| difficulty | xp | fitness | learning |\n")
	for _, t := range Tiers {
		p, _ := ParamsFor(t)
		fmt.Fprintf(&b, "| %s | %d | %d-%d | %d-%d |\n",
			t, p.XP, p.Fitness.Minutes.Min, p.Fitness.Minutes.Max,
			p.Learning.Minutes.Min, p.Learning.Minutes.Max)
	}

	b.WriteString("\nFITNESS VOLUME\n")
	b.WriteString("| difficulty | run km | walk km | circuit |\n")
	for _, t := range Tiers {
		p, _ := ParamsFor(t)
		fmt.Fprintf(&b, "| %s | %d | %d | %d rounds x %d reps |\n",
			t, p.Fitness.RunKm, p.Fitness.WalkKm, p.Fitness.Rounds, p.Fitness.Reps)
	}

	b.WriteString("\nLEARNING VOLUME\n")
	b.WriteString("| difficulty | lessons |\n")
	for _, t := range Tiers {
		p, _ := ParamsFor(t)
		fmt.Fprintf(&b, "| %s | %d |\n", t, p.Learning.Lessons)
	}

	b.WriteString("\nTEMPLATES\n")
	for _, tpl := range Catalog {
		fmt.Fprintf(&b, "- %s (%s): %s. Proof: %s\n",
			tpl.Key, tpl.Category, tpl.Summary, strings.Join(tpl.Proof, "; "))
	}

	b.WriteString("\n")
	b.WriteString(OutputContract)
	return b.String()
}

// BuildUserPrompt renders the per-request parameter summary
func BuildUserPrompt(sel *Selection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\n", sel.Mode)
	fmt.Fprintf(&b, "difficulty: %s\n", sel.Tier)
	fmt.Fprintf(&b, "category: %s\n", sel.Category)
	fmt.Fprintf(&b, "template: %s\n", sel.Template.Key)

	window := sel.Params.Minutes(sel.Category)
	fmt.Fprintf(&b, "target minutes: %d (allowed %d-%d)\n", sel.TargetMinutes, window.Min, window.Max)

	switch sel.Template.Key {
	case "run":
		fmt.Fprintf(&b, "distance: %d km\n", sel.Params.Fitness.RunKm)
	case "walk":
		fmt.Fprintf(&b, "distance: %d km\n", sel.Params.Fitness.WalkKm)
	case "circuit":
		fmt.Fprintf(&b, "rounds: %d, reps per exercise: %d\n", sel.Params.Fitness.Rounds, sel.Params.Fitness.Reps)
	default:
		fmt.Fprintf(&b, "lessons: %d\n", sel.Params.Learning.Lessons)
	}
	fmt.Fprintf(&b, "xp: %d\n", sel.Params.XP)

	if idea := strings.TrimSpace(sel.Idea); idea != "" {
		fmt.Fprintf(&b, "player idea: %s\n", idea)
	}
	return b.String()
}

// BuildPrompts returns the system and user prompt for a selection
func BuildPrompts(sel *Selection) (system, user string) {
	return BuildSystemPrompt(), BuildUserPrompt(sel)
}
