// Package inspection defines the fixed pre-shift vehicle checklist. The flow
// collects one categorical answer per question, in order; answers are stored
// on the shift verbatim with no scoring.
package inspection

import "strings"

// Question is one checklist step with exactly three allowed answers, ordered
// good / caution / poor.
type Question struct {
	Key     string
	Prompt  string
	Options [3]string
}

// Questions is the ordered pre-shift checklist.
var Questions = []Question{
	{
		Key:     "exterior",
		Prompt:  "Exterior condition (body, mirrors, glass)?",
		Options: [3]string{"Clean", "Minor wear", "Damaged"},
	},
	{
		Key:     "interior",
		Prompt:  "Interior condition (seats, controls, cleanliness)?",
		Options: [3]string{"Clean", "Needs cleaning", "Damaged"},
	},
	{
		Key:     "tires",
		Prompt:  "Tire condition and pressure?",
		Options: [3]string{"Good", "Worn", "Flat or unsafe"},
	},
	{
		Key:     "lights",
		Prompt:  "Lights and signals working?",
		Options: [3]string{"All working", "Some out", "Not working"},
	},
	{
		Key:     "fluids",
		Prompt:  "Fluid levels and leaks?",
		Options: [3]string{"OK", "Low", "Leaking"},
	},
	{
		Key:     "charge",
		Prompt:  "Fuel or charge level?",
		Options: [3]string{"Full", "Half", "Low"},
	},
}

// Count returns the number of checklist steps.
func Count() int {
	return len(Questions)
}

// At returns the question at the given step.
func At(step int) (Question, bool) {
	if step < 0 || step >= len(Questions) {
		return Question{}, false
	}
	return Questions[step], true
}

// Match validates an answer against the step's allowed options, returning the
// canonical option text. Matching is case-insensitive; anything else is
// rejected and the caller re-prompts without advancing.
func Match(step int, answer string) (string, bool) {
	q, ok := At(step)
	if !ok {
		return "", false
	}
	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(answer), opt) {
			return opt, true
		}
	}
	return "", false
}

// Done reports whether the cursor has passed the last step.
func Done(step int) bool {
	return step >= len(Questions)
}
