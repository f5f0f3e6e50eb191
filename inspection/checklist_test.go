package inspection

import "testing"

func TestChecklistShape(t *testing.T) {
	if Count() == 0 {
		t.Fatal("checklist is empty")
	}
	seen := map[string]bool{}
	for i, q := range Questions {
		if q.Key == "" || q.Prompt == "" {
			t.Errorf("question %d missing key or prompt", i)
		}
		if seen[q.Key] {
			t.Errorf("duplicate key %q", q.Key)
		}
		seen[q.Key] = true
		for j, opt := range q.Options {
			if opt == "" {
				t.Errorf("question %q option %d is empty", q.Key, j)
			}
		}
	}
}

func TestAt(t *testing.T) {
	if _, ok := At(-1); ok {
		t.Error("At(-1) should fail")
	}
	if _, ok := At(Count()); ok {
		t.Error("At(Count()) should fail")
	}
	q, ok := At(0)
	if !ok || q.Key != Questions[0].Key {
		t.Errorf("At(0) = %+v, %v", q, ok)
	}
}

func TestMatch(t *testing.T) {
	q := Questions[0]

	got, ok := Match(0, q.Options[1])
	if !ok || got != q.Options[1] {
		t.Errorf("exact match = %q, %v", got, ok)
	}

	// Case-insensitive with surrounding whitespace, canonical text returned.
	got, ok = Match(0, "  "+q.Options[0]+" ")
	if !ok || got != q.Options[0] {
		t.Errorf("trimmed match = %q, %v", got, ok)
	}
	got, ok = Match(2, "good")
	if !ok || got != "Good" {
		t.Errorf("case-insensitive match = %q, %v", got, ok)
	}

	if _, ok := Match(0, "maybe"); ok {
		t.Error("out-of-option answer should not match")
	}
	if _, ok := Match(Count(), q.Options[0]); ok {
		t.Error("match past the last step should fail")
	}
}

func TestDone(t *testing.T) {
	if Done(0) || Done(Count()-1) {
		t.Error("checklist done before the last answer")
	}
	if !Done(Count()) {
		t.Error("checklist not done after the last answer")
	}
}

// Walking the checklist one valid answer at a time finishes in exactly
// Count() steps.
func TestWalkToCompletion(t *testing.T) {
	answers := map[string]string{}
	step := 0
	for !Done(step) {
		q, ok := At(step)
		if !ok {
			t.Fatalf("no question at step %d", step)
		}
		got, ok := Match(step, q.Options[0])
		if !ok {
			t.Fatalf("first option rejected at step %d", step)
		}
		answers[q.Key] = got
		step++
	}
	if step != Count() {
		t.Errorf("completed in %d steps, want %d", step, Count())
	}
	if len(answers) != Count() {
		t.Errorf("collected %d answers, want %d", len(answers), Count())
	}
}
