package domain

import "time"

// Content is one piece of listening material together with its
// comprehension questions.
type Content struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"` // audio, video, podcast, news
	URL        string     `json:"url"`
	Difficulty string     `json:"difficulty"`
	Duration   int        `json:"duration"` // seconds
	Topic      string     `json:"topic"`
	Transcript string     `json:"transcript,omitempty"`
	Questions  []Question `json:"questions"`
}

// Question models a comprehension question tied to a point in the audio.
// Multi-answer questions store CorrectAnswer as a comma-separated list.
type Question struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Type           string   `json:"type"` // multiple_choice, multiple_answer, fill_blank
	Options        []string `json:"options,omitempty"`
	CorrectAnswer  string   `json:"correctAnswer"`
	Explanation    string   `json:"explanation,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	AudioTimestamp float64  `json:"audioTimestamp,omitempty"`
}

// AnswerRecord is the last-known draft value for one question plus timing
// metadata. Overwritten on every edit, last write wins.
type AnswerRecord struct {
	Value     string        `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	TimeSpent time.Duration `json:"timeSpent"`
}

// GradeRequest carries one submitted answer to the scoring collaborator.
type GradeRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	TimeSpent  int    `json:"timeSpent"` // whole seconds
}

// GradeResult is the scoring collaborator's verdict for one submission.
type GradeResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// SessionStats is the full observable state of a practice session. Its JSON
// shape is what snapshot stores persist under practice_session_{sessionId}.
type SessionStats struct {
	SessionID         string               `json:"sessionId"`
	CurrentQuestion   int                  `json:"currentQuestion"`
	TotalQuestions    int                  `json:"totalQuestions"`
	AnsweredQuestions int                  `json:"answeredQuestions"`
	CorrectAnswers    int                  `json:"correctAnswers"`
	IncorrectAnswers  int                  `json:"incorrectAnswers"`
	ElapsedTime       int                  `json:"elapsedTime"` // seconds
	Answers           map[int]AnswerRecord `json:"answers"`
}

// SubmittedAnswer is a graded answer as recorded for reporting.
type SubmittedAnswer struct {
	SessionID    string
	QuestionID   string
	QuestionType string
	UserAnswer   string
	Correct      bool
	TimeTaken    int // seconds
	AnsweredAt   time.Time
}

// SessionRecord is the durable summary of one completed practice session.
type SessionRecord struct {
	SessionID       string
	ContentID       string
	StartedAt       time.Time
	CompletedAt     time.Time
	TotalQuestions  int
	CorrectAnswers  int
	ScorePercentage float64
	TimeSpent       int // seconds
}

// TypeStats aggregates correctness per question type.
type TypeStats struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// TimingStats aggregates per-question answer times in seconds.
type TimingStats struct {
	AverageTime float64 `json:"averageTime"`
	Fastest     int     `json:"fastest"`
	Slowest     int     `json:"slowest"`
	TotalTime   int     `json:"totalTime"`
}

// Feedback is the post-session performance analysis shown on the results view.
type Feedback struct {
	Accuracy         float64              `json:"accuracy"`
	TotalQuestions   int                  `json:"totalQuestions"`
	CorrectAnswers   int                  `json:"correctAnswers"`
	ByQuestionType   map[string]TypeStats `json:"byQuestionType"`
	Timing           TimingStats          `json:"timing"`
	Strengths        []string             `json:"strengths"`
	Weaknesses       []string             `json:"weaknesses"`
	Recommendations  []string             `json:"recommendations"`
	PerformanceLevel string               `json:"performanceLevel"`
}
