package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"listenlab/internal/domain"
)

// View is the rendering surface the controller drives. The WebSocket
// transport implements it for real clients; tests use recording fakes.
type View interface {
	// ShowQuestion hides the previously visible question, reveals question n
	// (1-based), and scrolls it into view.
	ShowQuestion(n int)
	// UpdateProgress reflects currentQuestion/totalQuestions as a percentage.
	UpdateProgress(percent float64)
	// MarkQuestion refreshes one question's navigation marker.
	MarkQuestion(index int, state domain.QuestionState, hasDraft bool)
	// SetSubmitting toggles the visible submitting state for one question.
	SetSubmitting(index int, inFlight bool)
	// ShowFeedback renders the graded verdict with its explanation.
	ShowFeedback(index int, result domain.GradeResult)
	ShowNotice(message string)
	ShowWarning(message string)
	ShowError(message string)
	// SessionCompleted points the client at the results view for the session.
	SessionCompleted(sessionID string)
}

// NopView discards all view updates.
type NopView struct{}

func (NopView) ShowQuestion(int) {}

func (NopView) UpdateProgress(float64) {}

func (NopView) MarkQuestion(int, domain.QuestionState, bool) {}

func (NopView) SetSubmitting(int, bool) {}

func (NopView) ShowFeedback(int, domain.GradeResult) {}

func (NopView) ShowNotice(string) {}

func (NopView) ShowWarning(string) {}

func (NopView) ShowError(string) {}

func (NopView) SessionCompleted(string) {}

// Scorer grades one submitted answer. Implementations live in
// internal/scoring (local grading and the remote HTTP collaborator).
type Scorer interface {
	Grade(ctx context.Context, req domain.GradeRequest) (domain.GradeResult, error)
}

// SnapshotStore persists periodic session snapshots for crash-recovery display.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, stats domain.SessionStats) error
}

// Config seeds a new session controller.
type Config struct {
	SessionID       string
	TotalQuestions  int
	CurrentQuestion int // defaults to 1

	AdvanceDelay  time.Duration // feedback display before auto-advance
	CompleteDelay time.Duration // completion notice before results redirect
	SubmitTimeout time.Duration // upper bound on one grading call
}

const (
	defaultAdvanceDelay  = 2 * time.Second
	defaultCompleteDelay = 2 * time.Second
	defaultSubmitTimeout = 10 * time.Second
)

// Controller owns one practice session's state: the current question
// pointer, per-question answer drafts, grading tallies, and the submission
// lifecycle. All mutations go through it; the view only renders.
type Controller struct {
	id     string
	total  int
	view   View
	scorer Scorer
	now    func() time.Time
	after  func(time.Duration, func())

	advanceDelay  time.Duration
	completeDelay time.Duration
	submitTimeout time.Duration

	mu            sync.Mutex
	current       int // 1-based
	answers       map[int]domain.AnswerRecord
	states        map[int]domain.QuestionState
	tallied       map[int]bool
	inflight      map[int]uint64
	gen           uint64
	correct       int
	incorrect     int
	startTime     time.Time
	questionStart time.Time
	completed     bool
	guardReleased bool

	done      chan struct{}
	closeDone sync.Once
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock injects a deterministic time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAfterFunc swaps the deferred scheduler, for deterministic tests.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(c *Controller) { c.after = after }
}

func New(cfg Config, view View, scorer Scorer, opts ...Option) *Controller {
	if cfg.TotalQuestions < 1 {
		cfg.TotalQuestions = 1
	}
	if cfg.CurrentQuestion < 1 || cfg.CurrentQuestion > cfg.TotalQuestions {
		cfg.CurrentQuestion = 1
	}
	if cfg.AdvanceDelay == 0 {
		cfg.AdvanceDelay = defaultAdvanceDelay
	}
	if cfg.CompleteDelay == 0 {
		cfg.CompleteDelay = defaultCompleteDelay
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if view == nil {
		view = NopView{}
	}

	c := &Controller{
		id:            cfg.SessionID,
		total:         cfg.TotalQuestions,
		view:          view,
		scorer:        scorer,
		now:           time.Now,
		after:         func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		advanceDelay:  cfg.AdvanceDelay,
		completeDelay: cfg.CompleteDelay,
		submitTimeout: cfg.SubmitTimeout,
		current:       cfg.CurrentQuestion,
		answers:       make(map[int]domain.AnswerRecord),
		states:        make(map[int]domain.QuestionState),
		tallied:       make(map[int]bool),
		inflight:      make(map[int]uint64),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startTime = c.now()
	c.questionStart = c.startTime

	c.view.ShowQuestion(c.current)
	c.view.UpdateProgress(c.progressLocked())
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

func (c *Controller) progressLocked() float64 {
	return float64(c.current) / float64(c.total) * 100
}

// GoToQuestion makes question n the visible one. Targets outside
// [1, totalQuestions], or any navigation after completion, are silently
// ignored: an out-of-range target is a call-site bug, not a user failure.
func (c *Controller) GoToQuestion(n int) {
	c.mu.Lock()
	if c.completed || n < 1 || n > c.total {
		c.mu.Unlock()
		return
	}
	c.current = n
	c.questionStart = c.now()
	pct := c.progressLocked()
	c.mu.Unlock()

	c.view.ShowQuestion(n)
	c.view.UpdateProgress(pct)
}

// NextQuestion advances one question; no-op at the last question.
func (c *Controller) NextQuestion() {
	c.mu.Lock()
	n := c.current + 1
	c.mu.Unlock()
	c.GoToQuestion(n)
}

// PreviousQuestion goes back one question; no-op at the first question.
func (c *Controller) PreviousQuestion() {
	c.mu.Lock()
	n := c.current - 1
	c.mu.Unlock()
	c.GoToQuestion(n)
}

// TrackAnswer records a draft answer for the zero-based question index,
// unconditionally overwriting any previous record. No network call, no
// tally change; a graded question keeps its terminal marker.
func (c *Controller) TrackAnswer(index int, value string) {
	c.mu.Lock()
	if c.completed || index < 0 || index >= c.total {
		c.mu.Unlock()
		return
	}
	now := c.now()
	c.answers[index] = domain.AnswerRecord{
		Value:     value,
		Timestamp: now,
		TimeSpent: now.Sub(c.questionStart),
	}
	state := c.stateLocked(index)
	c.mu.Unlock()

	c.view.MarkQuestion(index, state, true)
}

func (c *Controller) stateLocked(index int) domain.QuestionState {
	if s, ok := c.states[index]; ok {
		return s
	}
	return domain.QuestionUnanswered
}

// SubmitAnswer grades the current draft for the zero-based question index.
// It is the only suspension point in the session: everything else completes
// within the turn it is invoked.
func (c *Controller) SubmitAnswer(ctx context.Context, index int, questionID string) error {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return domain.ErrSessionCompleted
	}
	if index < 0 || index >= c.total {
		c.mu.Unlock()
		return domain.ErrQuestionNotFound
	}

	rec, ok := c.answers[index]
	if !ok || strings.TrimSpace(rec.Value) == "" {
		c.mu.Unlock()
		c.view.ShowWarning("Please select or enter an answer before submitting.")
		return domain.ErrEmptyAnswer
	}
	if c.stateLocked(index).Graded() {
		c.mu.Unlock()
		return domain.ErrAlreadyGraded
	}
	if _, busy := c.inflight[index]; busy {
		c.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}

	c.gen++
	token := c.gen
	c.inflight[index] = token
	req := domain.GradeRequest{
		SessionID:  c.id,
		QuestionID: questionID,
		Answer:     rec.Value,
		TimeSpent:  int(c.now().Sub(c.questionStart).Seconds()),
	}
	c.mu.Unlock()

	c.view.SetSubmitting(index, true)

	gctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()
	result, err := c.scorer.Grade(gctx, req)

	c.mu.Lock()
	if c.inflight[index] != token {
		// Superseded; a stale result never touches session state.
		c.mu.Unlock()
		return nil
	}
	delete(c.inflight, index)

	if err != nil {
		c.mu.Unlock()
		c.view.SetSubmitting(index, false)
		c.view.ShowError("Could not submit your answer. Please try again.")
		return fmt.Errorf("grade answer: %w", err)
	}

	if !c.tallied[index] {
		c.tallied[index] = true
		if result.Correct {
			c.correct++
		} else {
			c.incorrect++
		}
	}
	c.states[index] = domain.NextQuestionState(c.stateLocked(index), result.Correct)
	state := c.states[index]
	last := index >= c.total-1
	c.mu.Unlock()

	c.view.SetSubmitting(index, false)
	c.view.ShowFeedback(index, result)
	c.view.MarkQuestion(index, state, true)

	c.after(c.advanceDelay, func() {
		if last {
			c.Complete()
		} else {
			c.GoToQuestion(index + 2)
		}
	})
	return nil
}

// Complete finalizes the session: the unsaved-progress guard is released
// exactly once and a results redirect is scheduled. Terminal; later
// navigation and submission become no-ops.
func (c *Controller) Complete() {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	c.completed = true
	c.guardReleased = true
	id := c.id
	c.mu.Unlock()

	c.closeDone.Do(func() { close(c.done) })

	c.view.ShowNotice("Practice complete! Preparing your results...")
	c.after(c.completeDelay, func() {
		c.view.SessionCompleted(id)
	})
}

// Completed reports whether the session has been finalized.
func (c *Controller) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// GuardActive reports whether leaving the page should prompt about unsaved
// progress: there is at least one draft and the session has not completed.
func (c *Controller) GuardActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers) > 0 && !c.guardReleased
}

// Stats snapshots the session's full observable state.
func (c *Controller) Stats() domain.SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make(map[int]domain.AnswerRecord, len(c.answers))
	for i, rec := range c.answers {
		answers[i] = rec
	}
	return domain.SessionStats{
		SessionID:         c.id,
		CurrentQuestion:   c.current,
		TotalQuestions:    c.total,
		AnsweredQuestions: len(c.answers),
		CorrectAnswers:    c.correct,
		IncorrectAnswers:  c.incorrect,
		ElapsedTime:       int(c.now().Sub(c.startTime).Seconds()),
		Answers:           answers,
	}
}

// StartSnapshots persists the session state on a fixed interval until the
// context is done or the session completes. Failures are logged, never fatal.
func (c *Controller) StartSnapshots(ctx context.Context, store SnapshotStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				// Flush the final state so recovery sees the completed session.
				if err := store.SaveSnapshot(ctx, c.Stats()); err != nil {
					log.Printf("session %s: final snapshot failed: %v", c.id, err)
				}
				return
			case <-ticker.C:
				if err := store.SaveSnapshot(ctx, c.Stats()); err != nil {
					log.Printf("session %s: snapshot failed: %v", c.id, err)
				}
			}
		}
	}()
}

// Close releases the snapshot loop for abandoned sessions.
func (c *Controller) Close() {
	c.closeDone.Do(func() { close(c.done) })
}
