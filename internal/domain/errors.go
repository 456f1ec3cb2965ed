package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a practice session has not been started.
	ErrSessionNotFound = errors.New("practice session not found")
	// ErrContentNotFound indicates the listening content could not be loaded.
	ErrContentNotFound = errors.New("content not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptyAnswer is the validation failure for a blank submission.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrSubmissionInFlight rejects a duplicate submit while one is outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrAlreadyGraded rejects a resubmission of a question with a terminal mark.
	ErrAlreadyGraded = errors.New("question already graded")
	// ErrSessionCompleted rejects any operation after the session finalized.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrScoringUnavailable wraps transport failures against the scoring service.
	ErrScoringUnavailable = errors.New("scoring service unavailable")
)
