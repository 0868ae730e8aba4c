package questgen

import (
	"fmt"
	"strings"
)

// MockGenerate synthesizes a quest locally from the template catalog and the
// difficulty table. The result always satisfies AIQuestOutput.Validate.
func MockGenerate(sel *Selection) AIQuestOutput {
	p := sel.Params
	minutes := sel.TargetMinutes
	window := p.Minutes(sel.Category)
	if !window.Contains(minutes) {
		minutes = window.Default
	}

	out := AIQuestOutput{
		Category:    string(sel.Category),
		Difficulty:  string(sel.Tier),
		DurationMin: minutes,
		XP:          p.XP,
		Proof:       append([]string(nil), sel.Template.Proof...),
	}

	switch sel.Template.Key {
	case "run":
		out.Title = fmt.Sprintf("Run %d km Today", p.Fitness.RunKm)
		out.ShortDescription = fmt.Sprintf("Lace up and cover %d km at your own pace.", p.Fitness.RunKm)
		out.Description = fmt.Sprintf(
			"Warm up for five minutes, then run %d km. Walk breaks are fine. Aim to finish within about %d minutes and cool down with light stretching.",
			p.Fitness.RunKm, minutes)
		out.SafetyNotes = "Stay on safe, lit routes, carry water and stop if you feel dizzy or pain."
	case "walk":
		out.Title = fmt.Sprintf("Explorer Walk: %d km", p.Fitness.WalkKm)
		out.ShortDescription = fmt.Sprintf("Walk %d km somewhere new and notice three details.", p.Fitness.WalkKm)
		out.Description = fmt.Sprintf(
			"Pick a street, park or trail you have not walked before and cover %d km at a brisk pace in roughly %d minutes. Note three things you had never noticed.",
			p.Fitness.WalkKm, minutes)
		out.SafetyNotes = "Wear comfortable shoes, watch for traffic and share your route with someone."
	case "circuit":
		out.Title = fmt.Sprintf("%d-Round Bodyweight Circuit", p.Fitness.Rounds)
		out.ShortDescription = fmt.Sprintf("%d rounds of %d reps: squats, push-ups, lunges and planks.", p.Fitness.Rounds, p.Fitness.Reps)
		out.Description = fmt.Sprintf(
			"Complete %d rounds of %d squats, %d push-ups, %d lunges per leg and a %d second plank. Rest up to a minute between rounds. Budget about %d minutes.",
			p.Fitness.Rounds, p.Fitness.Reps, p.Fitness.Reps, p.Fitness.Reps, p.Fitness.Reps*3, minutes)
		out.SafetyNotes = "Use a non-slip surface, keep good form and scale reps down if anything hurts."
	case "study-sprint":
		out.Title = fmt.Sprintf("%d-Minute Study Sprint", minutes)
		out.ShortDescription = "Silence notifications and study one topic with full focus."
		out.Description = fmt.Sprintf(
			"Choose a single topic, set a timer for %d minutes and work through %d focused block(s) with no phone or tabs. Finish by writing down what you learned.",
			minutes, p.Learning.Lessons)
		out.SafetyNotes = "Take a short break to rest your eyes if you study on a screen."
	default:
		out.Title = fmt.Sprintf("Micro Lesson Marathon: %d Lesson%s", p.Learning.Lessons, plural(p.Learning.Lessons))
		out.ShortDescription = fmt.Sprintf("Finish %d short lesson%s and quiz yourself.", p.Learning.Lessons, plural(p.Learning.Lessons))
		out.Description = fmt.Sprintf(
			"Work through %d short lesson%s from any course, video series or language app in about %d minutes, then write one quiz question for yourself and answer it.",
			p.Learning.Lessons, plural(p.Learning.Lessons), minutes)
		out.SafetyNotes = ""
	}

	if idea := strings.TrimSpace(sel.Idea); idea != "" {
		out.Description += " Theme: " + idea + "."
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
