package scoring

import (
	"testing"

	"listenlab/internal/domain"
)

func answer(qtype string, correct bool, seconds int) domain.SubmittedAnswer {
	return domain.SubmittedAnswer{QuestionType: qtype, Correct: correct, TimeTaken: seconds}
}

func TestAnalyzeHighAccuracy(t *testing.T) {
	answers := []domain.SubmittedAnswer{
		answer("multiple_choice", true, 10),
		answer("multiple_choice", true, 15),
		answer("multiple_choice", true, 20),
		answer("fill_blank", true, 25),
		answer("fill_blank", false, 12),
	}
	fb := Analyze(answers)

	if fb.Accuracy != 80 {
		t.Fatalf("expected 80%% accuracy, got %v", fb.Accuracy)
	}
	if fb.PerformanceLevel != "Good" {
		t.Fatalf("expected Good, got %s", fb.PerformanceLevel)
	}
	mc := fb.ByQuestionType["multiple_choice"]
	if mc.Total != 3 || mc.Correct != 3 || mc.Accuracy != 100 {
		t.Fatalf("unexpected MC stats: %+v", mc)
	}
	if fb.Timing.Fastest != 10 || fb.Timing.Slowest != 25 || fb.Timing.TotalTime != 82 {
		t.Fatalf("unexpected timing: %+v", fb.Timing)
	}

	found := false
	for _, s := range fb.Strengths {
		if s == "Excellent overall comprehension" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected excellence strength, got %v", fb.Strengths)
	}
}

func TestAnalyzeLowAccuracy(t *testing.T) {
	answers := []domain.SubmittedAnswer{
		answer("multiple_choice", false, 120),
		answer("multiple_choice", false, 110),
		answer("fill_blank", true, 100),
	}
	fb := Analyze(answers)

	if fb.PerformanceLevel != "Needs Improvement" {
		t.Fatalf("expected Needs Improvement, got %s", fb.PerformanceLevel)
	}
	hasComprehension := false
	hasTiming := false
	for _, w := range fb.Weaknesses {
		switch w {
		case "Overall listening comprehension needs improvement":
			hasComprehension = true
		case "Taking too much time per question":
			hasTiming = true
		}
	}
	if !hasComprehension || !hasTiming {
		t.Fatalf("expected comprehension and timing weaknesses, got %v", fb.Weaknesses)
	}
	if len(fb.Recommendations) > 5 {
		t.Fatalf("expected at most 5 recommendations, got %d", len(fb.Recommendations))
	}
	if len(fb.Recommendations) == 0 {
		t.Fatalf("expected recommendations")
	}
}

func TestAnalyzeEmptyFallsBack(t *testing.T) {
	fb := Analyze(nil)
	if fb.PerformanceLevel != "Unknown" {
		t.Fatalf("expected default feedback, got %+v", fb)
	}
}
