package scoring

import "listenlab/internal/domain"

// Analyze builds the post-session performance report from the graded
// answers: accuracy, per-type breakdown, timing patterns, strengths,
// weaknesses, and up to five recommendations.
func Analyze(answers []domain.SubmittedAnswer) domain.Feedback {
	if len(answers) == 0 {
		return DefaultFeedback()
	}

	total := len(answers)
	correct := 0
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}
	accuracy := float64(correct) / float64(total) * 100

	timing := analyzeTiming(answers)
	strengths := identifyStrengths(answers, accuracy, timing)
	weaknesses := identifyWeaknesses(answers, accuracy, timing)

	return domain.Feedback{
		Accuracy:         accuracy,
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		ByQuestionType:   analyzeByType(answers),
		Timing:           timing,
		Strengths:        strengths,
		Weaknesses:       weaknesses,
		Recommendations:  recommendations(weaknesses),
		PerformanceLevel: performanceLevel(accuracy),
	}
}

// DefaultFeedback is the fallback shown when analysis has nothing to work on.
func DefaultFeedback() domain.Feedback {
	return domain.Feedback{
		ByQuestionType:   map[string]domain.TypeStats{},
		Strengths:        []string{"Completed the practice session"},
		Weaknesses:       []string{"Analysis unavailable"},
		Recommendations:  []string{"Try another practice session"},
		PerformanceLevel: "Unknown",
	}
}

func analyzeByType(answers []domain.SubmittedAnswer) map[string]domain.TypeStats {
	byType := make(map[string]domain.TypeStats)
	for _, a := range answers {
		stats := byType[a.QuestionType]
		stats.Total++
		if a.Correct {
			stats.Correct++
		}
		byType[a.QuestionType] = stats
	}
	for t, stats := range byType {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Total) * 100
		byType[t] = stats
	}
	return byType
}

func analyzeTiming(answers []domain.SubmittedAnswer) domain.TimingStats {
	var timing domain.TimingStats
	counted := 0
	for _, a := range answers {
		if a.TimeTaken <= 0 {
			continue
		}
		if counted == 0 || a.TimeTaken < timing.Fastest {
			timing.Fastest = a.TimeTaken
		}
		if a.TimeTaken > timing.Slowest {
			timing.Slowest = a.TimeTaken
		}
		timing.TotalTime += a.TimeTaken
		counted++
	}
	if counted > 0 {
		timing.AverageTime = float64(timing.TotalTime) / float64(counted)
	}
	return timing
}

func identifyStrengths(answers []domain.SubmittedAnswer, accuracy float64, timing domain.TimingStats) []string {
	var strengths []string
	switch {
	case accuracy >= 80:
		strengths = append(strengths, "Excellent overall comprehension")
	case accuracy >= 65:
		strengths = append(strengths, "Good listening comprehension")
	}
	if timing.AverageTime > 0 && timing.AverageTime < 30 {
		strengths = append(strengths, "Quick response time")
	}

	correctMC := 0
	for _, a := range answers {
		if a.Correct && a.QuestionType == "multiple_choice" {
			correctMC++
		}
	}
	if correctMC >= 3 {
		strengths = append(strengths, "Strong performance on multiple choice questions")
	}

	if len(strengths) == 0 {
		strengths = append(strengths, "Completed the practice session")
	}
	return strengths
}

func identifyWeaknesses(answers []domain.SubmittedAnswer, accuracy float64, timing domain.TimingStats) []string {
	var weaknesses []string
	switch {
	case accuracy < 50:
		weaknesses = append(weaknesses, "Overall listening comprehension needs improvement")
	case accuracy < 65:
		weaknesses = append(weaknesses, "Moderate listening comprehension - room for improvement")
	}

	incorrect := 0
	for _, a := range answers {
		if !a.Correct {
			incorrect++
		}
	}
	if incorrect*2 > len(answers) {
		weaknesses = append(weaknesses, "Difficulty with main idea questions")
	}

	if timing.AverageTime > 90 {
		weaknesses = append(weaknesses, "Taking too much time per question")
	}

	if len(weaknesses) == 0 {
		weaknesses = append(weaknesses, "Minor areas for improvement")
	}
	return weaknesses
}

func recommendations(weaknesses []string) []string {
	var recs []string
	for _, w := range weaknesses {
		switch w {
		case "Overall listening comprehension needs improvement":
			recs = append(recs,
				"Practice with easier content first (beginner level)",
				"Focus on vocabulary building",
				"Listen to English content daily for at least 30 minutes")
		case "Taking too much time per question":
			recs = append(recs,
				"Practice time management during listening exercises",
				"Try to answer questions while listening, not after")
		case "Difficulty with main idea questions":
			recs = append(recs,
				"Practice identifying topic sentences and main ideas",
				"Focus on the introduction and conclusion of audio content")
		}
	}
	recs = append(recs,
		"Continue regular practice with varied content types",
		"Try content from different sources (news, academic, casual)")
	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}

func performanceLevel(accuracy float64) string {
	switch {
	case accuracy >= 85:
		return "Excellent"
	case accuracy >= 70:
		return "Good"
	case accuracy >= 55:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}
