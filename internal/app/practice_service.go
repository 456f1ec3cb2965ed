package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"listenlab/internal/domain"
	"listenlab/internal/scoring"
	"listenlab/internal/session"
)

// ContentRepository loads listening content (from cache/backing store).
type ContentRepository interface {
	GetContent(ctx context.Context, contentID string) (domain.Content, error)
}

// SessionRepository abstracts how live session controllers are tracked
// (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(sessionID string, ctrl *session.Controller)
	Get(sessionID string) (*session.Controller, bool)
	Delete(sessionID string)
}

// Recorder persists graded answers and completed-session summaries. Both
// writes are best-effort: a recording failure never fails the session.
type Recorder interface {
	RecordAnswer(ctx context.Context, answer domain.SubmittedAnswer) error
	RecordSession(ctx context.Context, record domain.SessionRecord) error
}

// NopRecorder drops all records.
type NopRecorder struct{}

func (NopRecorder) RecordAnswer(context.Context, domain.SubmittedAnswer) error { return nil }

func (NopRecorder) RecordSession(context.Context, domain.SessionRecord) error { return nil }

// Config tunes session pacing and snapshotting.
type Config struct {
	AdvanceDelay     time.Duration
	CompleteDelay    time.Duration
	SubmitTimeout    time.Duration
	SnapshotInterval time.Duration
}

// PracticeService contains the practice-session use cases.
type PracticeService struct {
	contents  ContentRepository
	sessions  SessionRepository
	snapshots session.SnapshotStore
	recorder  Recorder
	remote    session.Scorer // optional remote scoring collaborator
	cfg       Config
	newID     func() string
	now       func() time.Time

	mu   sync.Mutex
	meta map[string]*sessionMeta
}

type sessionMeta struct {
	contentID string
	startedAt time.Time

	mu      sync.Mutex
	answers []domain.SubmittedAnswer
}

// Option customizes a PracticeService.
type Option func(*PracticeService)

// WithRemoteScorer routes grading through an external collaborator instead
// of local grading.
func WithRemoteScorer(scorer session.Scorer) Option {
	return func(s *PracticeService) { s.remote = scorer }
}

// WithSnapshotStore enables periodic session snapshots.
func WithSnapshotStore(store session.SnapshotStore) Option {
	return func(s *PracticeService) { s.snapshots = store }
}

// WithRecorder persists answers and session summaries.
func WithRecorder(rec Recorder) Option {
	return func(s *PracticeService) { s.recorder = rec }
}

// WithClock injects a deterministic time source.
func WithClock(now func() time.Time) Option {
	return func(s *PracticeService) { s.now = now }
}

// WithIDGenerator injects a deterministic session ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *PracticeService) { s.newID = newID }
}

func NewPracticeService(contents ContentRepository, sessions SessionRepository, cfg Config, opts ...Option) *PracticeService {
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 15 * time.Second
	}
	s := &PracticeService{
		contents: contents,
		sessions: sessions,
		recorder: NopRecorder{},
		cfg:      cfg,
		newID:    uuid.NewString,
		now:      time.Now,
		meta:     make(map[string]*sessionMeta),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartedSession bundles everything the transport needs to drive one session.
type StartedSession struct {
	SessionID  string
	Content    domain.Content
	Controller *session.Controller
}

// StartSession loads the content, assigns a session ID, and builds the
// session controller wired to the scoring collaborator. The view is the
// caller's rendering surface.
func (s *PracticeService) StartSession(ctx context.Context, contentID string, view session.View, ctrlOpts ...session.Option) (StartedSession, error) {
	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return StartedSession{}, err
	}

	id := s.newID()
	meta := &sessionMeta{contentID: contentID, startedAt: s.now()}

	local := scoring.NewLocalScorer(content.Questions)
	inner := s.remote
	if inner == nil {
		inner = local
	}
	scorer := &recordingScorer{
		inner:        inner,
		recorder:     s.recorder,
		meta:         meta,
		questionType: local.QuestionType,
		now:          s.now,
	}

	ctrl := session.New(session.Config{
		SessionID:      id,
		TotalQuestions: len(content.Questions),
		AdvanceDelay:   s.cfg.AdvanceDelay,
		CompleteDelay:  s.cfg.CompleteDelay,
		SubmitTimeout:  s.cfg.SubmitTimeout,
	}, view, scorer, ctrlOpts...)

	s.mu.Lock()
	s.meta[id] = meta
	s.mu.Unlock()
	s.sessions.Put(id, ctrl)

	if s.snapshots != nil {
		ctrl.StartSnapshots(ctx, s.snapshots, s.cfg.SnapshotInterval)
	}
	return StartedSession{SessionID: id, Content: content, Controller: ctrl}, nil
}

// Results is what the results view renders after completion.
type Results struct {
	Stats    domain.SessionStats `json:"stats"`
	Feedback domain.Feedback     `json:"feedback"`
	Score    float64             `json:"score"`
}

// CompleteSession finalizes a session, analyzes performance, and records the
// summary. Safe to call after the controller already self-completed.
func (s *PracticeService) CompleteSession(ctx context.Context, sessionID string) (Results, error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return Results{}, domain.ErrSessionNotFound
	}
	ctrl.Complete()

	stats := ctrl.Stats()
	meta := s.metaFor(sessionID)

	var answers []domain.SubmittedAnswer
	var contentID string
	startedAt := s.now()
	if meta != nil {
		meta.mu.Lock()
		answers = append(answers, meta.answers...)
		meta.mu.Unlock()
		contentID = meta.contentID
		startedAt = meta.startedAt
	}

	score := 0.0
	if stats.TotalQuestions > 0 {
		score = float64(stats.CorrectAnswers) / float64(stats.TotalQuestions) * 100
	}

	record := domain.SessionRecord{
		SessionID:       sessionID,
		ContentID:       contentID,
		StartedAt:       startedAt,
		CompletedAt:     s.now(),
		TotalQuestions:  stats.TotalQuestions,
		CorrectAnswers:  stats.CorrectAnswers,
		ScorePercentage: score,
		TimeSpent:       stats.ElapsedTime,
	}
	if err := s.recorder.RecordSession(ctx, record); err != nil {
		log.Printf("session %s: record summary failed: %v", sessionID, err)
	}

	return Results{
		Stats:    stats,
		Feedback: scoring.Analyze(answers),
		Score:    score,
	}, nil
}

// ReleaseSession drops an abandoned session's controller and metadata.
func (s *PracticeService) ReleaseSession(sessionID string) {
	if ctrl, ok := s.sessions.Get(sessionID); ok {
		ctrl.Close()
	}
	s.sessions.Delete(sessionID)
	s.mu.Lock()
	delete(s.meta, sessionID)
	s.mu.Unlock()
}

func (s *PracticeService) metaFor(sessionID string) *sessionMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta[sessionID]
}

// recordingScorer wraps the scoring collaborator and accumulates graded
// answers for the post-session analysis and the durable answer log.
type recordingScorer struct {
	inner        session.Scorer
	recorder     Recorder
	meta         *sessionMeta
	questionType func(questionID string) string
	now          func() time.Time
}

func (r *recordingScorer) Grade(ctx context.Context, req domain.GradeRequest) (domain.GradeResult, error) {
	result, err := r.inner.Grade(ctx, req)
	if err != nil {
		return domain.GradeResult{}, err
	}

	sub := domain.SubmittedAnswer{
		SessionID:    req.SessionID,
		QuestionID:   req.QuestionID,
		QuestionType: r.questionType(req.QuestionID),
		UserAnswer:   req.Answer,
		Correct:      result.Correct,
		TimeTaken:    req.TimeSpent,
		AnsweredAt:   r.now(),
	}
	r.meta.mu.Lock()
	r.meta.answers = append(r.meta.answers, sub)
	r.meta.mu.Unlock()

	if err := r.recorder.RecordAnswer(ctx, sub); err != nil {
		log.Printf("session %s: record answer failed: %v", req.SessionID, err)
	}
	return result, nil
}
