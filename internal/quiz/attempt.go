package quiz

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

// State is the attempt lifecycle position.
type State string

const (
	StateLoading    State = "loading"
	StatePresenting State = "presenting"
	// StateReviewing holds a wrong confirmed answer until the student acknowledges the hint.
	StateReviewing  State = "reviewing"
	StateProcessing State = "processing"
	StateFinished   State = "finished"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateCancelled
}

// Hint is shown while a wrong answer is under review.
const Hint = "Almost there! Review the lesson content one more time. Focus on the core definitions mentioned in the text."

// Submitter records one answer with the backend.
type Submitter interface {
	SubmitAnswer(ctx context.Context, userID int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error)
}

// Settings are the attempt timers.
type Settings struct {
	QuestionTimeLimit time.Duration
	FeedbackDelay     time.Duration
	SubmitTimeout     time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.QuestionTimeLimit <= 0 {
		s.QuestionTimeLimit = 30 * time.Second
	}
	if s.FeedbackDelay < 0 {
		s.FeedbackDelay = 0
	}
	if s.SubmitTimeout <= 0 {
		s.SubmitTimeout = 5 * time.Second
	}
	return s
}

// Answer is a submitted response.
type Answer struct {
	QuestionID       int64  `json:"question_id"`
	Given            string `json:"given_answer"`
	Correct          bool   `json:"correct"`
	TimedOut         bool   `json:"timed_out"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// Option is one choice of the presented question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID              int64    `json:"id"`
	Content         string   `json:"content"`
	Options         []Option `json:"options"`
	DifficultyLevel int      `json:"difficulty_level"`
}

func viewOf(q models.Question) *QuestionView {
	opts := make([]Option, 0, len(models.OptionKeys))
	for _, k := range models.OptionKeys {
		opts = append(opts, Option{Key: k, Text: q.Option(k)})
	}
	return &QuestionView{ID: q.ID, Content: q.Content, Options: opts, DifficultyLevel: q.DifficultyLevel}
}

// Snapshot is a consistent copy of the attempt state.
type Snapshot struct {
	ID               string        `json:"id"`
	LessonID         int64         `json:"lesson_id"`
	State            State         `json:"state"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Score            int           `json:"score"`
	Question         *QuestionView `json:"question,omitempty"`
	Selected         string        `json:"selected,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Hint             string        `json:"hint,omitempty"`
	LastError        string        `json:"last_error,omitempty"`
	LastAnswer       *Answer       `json:"last_answer,omitempty"`
	Answers          []Answer      `json:"answers"`
	Version          uint64        `json:"version"`
}

// Params configures a new attempt.
type Params struct {
	ID        string
	OwnerID   int64
	LessonID  int64
	Submitter Submitter
	Clock     Clock
	Settings  Settings
	Logger    *zap.Logger
	// BaseContext carries the bearer token and request id used for submits.
	BaseContext context.Context
	OnFinish    func(Snapshot)
}

// Attempt is one student's run through a lesson's questions.
type Attempt struct {
	mu sync.Mutex

	id        string
	ownerID   int64
	lessonID  int64
	startedAt time.Time

	submitter Submitter
	clock     Clock
	settings  Settings
	logger    *zap.Logger
	baseCtx   context.Context
	baseStop  context.CancelFunc
	onFinish  func(Snapshot)

	state           State
	questions       []models.Question
	index           int
	score           int
	selected        string
	questionStarted time.Time
	deadline        time.Time
	frozenRemaining time.Duration
	lastError       string
	answers         []Answer

	countdown    Timer
	feedback     Timer
	timerSeq     uint64
	submitSeq    uint64
	submitCancel context.CancelFunc

	version uint64
	subs    map[int]chan Snapshot
	nextSub int
}

type pendingSubmit struct {
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
	req    models.SubmitAnswerRequest
	answer Answer
}

// NewAttempt returns an attempt in the loading state.
func NewAttempt(p Params) *Attempt {
	if p.Clock == nil {
		p.Clock = RealClock()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	base := p.BaseContext
	if base == nil {
		base = context.Background()
	}
	// Submits outlive the HTTP request that started the attempt.
	ctx, stop := context.WithCancel(context.WithoutCancel(base))
	return &Attempt{
		id:        p.ID,
		ownerID:   p.OwnerID,
		lessonID:  p.LessonID,
		startedAt: p.Clock.Now(),
		submitter: p.Submitter,
		clock:     p.Clock,
		settings:  p.Settings.withDefaults(),
		logger:    p.Logger.With(zap.String("attempt_id", p.ID)),
		baseCtx:   ctx,
		baseStop:  stop,
		onFinish:  p.OnFinish,
		state:     StateLoading,
		subs:      make(map[int]chan Snapshot),
	}
}

func (a *Attempt) ID() string           { return a.id }
func (a *Attempt) OwnerID() int64       { return a.ownerID }
func (a *Attempt) StartedAt() time.Time { return a.startedAt }

// Done reports whether the attempt reached a terminal state.
func (a *Attempt) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Terminal()
}

// Begin presents the first question and starts its countdown.
func (a *Attempt) Begin(questions []models.Question) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLoading {
		return appErrors.Clone(appErrors.ErrConflict, "attempt already started")
	}
	if len(questions) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "lesson has no questions")
	}
	a.questions = append([]models.Question(nil), questions...)
	a.presentLocked(0)
	return nil
}

// Select marks an option; it may be changed until confirmed.
func (a *Attempt) Select(option string) (Snapshot, error) {
	key, ok := models.NormalizeOption(option)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StatePresenting {
		return a.snapshotLocked(), a.stateError("select")
	}
	if !ok {
		return a.snapshotLocked(), appErrors.Clone(appErrors.ErrValidation, "option must be one of A, B, C, D")
	}
	a.selected = key
	a.notifyLocked()
	return a.snapshotLocked(), nil
}

// Confirm commits the selection. A correct answer is submitted at once; a wrong one is held
// for review and submitted by Acknowledge.
func (a *Attempt) Confirm() (Snapshot, error) {
	a.mu.Lock()
	if a.state != StatePresenting {
		defer a.mu.Unlock()
		return a.snapshotLocked(), a.stateError("confirm")
	}
	if a.selected == "" {
		defer a.mu.Unlock()
		return a.snapshotLocked(), appErrors.Clone(appErrors.ErrValidation, "select an option first")
	}
	if !a.questions[a.index].IsCorrect(a.selected) {
		a.frozenRemaining = a.remainingLocked()
		a.stopTimersLocked()
		a.state = StateReviewing
		a.notifyLocked()
		defer a.mu.Unlock()
		return a.snapshotLocked(), nil
	}
	p := a.beginSubmitLocked(a.selected, false)
	a.mu.Unlock()

	err := a.runSubmit(p)
	return a.Snapshot(), err
}

// Acknowledge dismisses the hint and submits the reviewed answer.
func (a *Attempt) Acknowledge() (Snapshot, error) {
	a.mu.Lock()
	if a.state != StateReviewing {
		defer a.mu.Unlock()
		return a.snapshotLocked(), a.stateError("acknowledge")
	}
	p := a.beginSubmitLocked(a.selected, false)
	a.mu.Unlock()

	err := a.runSubmit(p)
	return a.Snapshot(), err
}

// Cancel stops every timer and any in-flight submit. Safe to call repeatedly.
func (a *Attempt) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		return
	}
	a.stopTimersLocked()
	a.submitSeq++
	if a.submitCancel != nil {
		a.submitCancel()
		a.submitCancel = nil
	}
	a.baseStop()
	a.state = StateCancelled
	a.notifyLocked()
}

// Snapshot returns the current state.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe streams snapshots after every transition. Only the latest undelivered snapshot is
// kept. The channel closes once the attempt is terminal.
func (a *Attempt) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		ch <- a.snapshotLocked()
		close(ch)
		return ch, func() {}
	}
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

func (a *Attempt) presentLocked(index int) {
	a.index = index
	a.selected = ""
	a.state = StatePresenting
	a.questionStarted = a.clock.Now()
	a.startCountdownLocked()
	a.notifyLocked()
}

func (a *Attempt) startCountdownLocked() {
	a.stopTimersLocked()
	limit := a.settings.QuestionTimeLimit
	a.deadline = a.clock.Now().Add(limit)
	seq := a.timerSeq
	a.countdown = a.clock.AfterFunc(limit, func() { a.onTimeout(seq) })
}

func (a *Attempt) stopTimersLocked() {
	a.timerSeq++
	if a.countdown != nil {
		a.countdown.Stop()
		a.countdown = nil
	}
	if a.feedback != nil {
		a.feedback.Stop()
		a.feedback = nil
	}
}

func (a *Attempt) onTimeout(seq uint64) {
	a.mu.Lock()
	if seq != a.timerSeq || a.state != StatePresenting {
		a.mu.Unlock()
		return
	}
	p := a.beginSubmitLocked(models.NoAnswer, true)
	a.mu.Unlock()

	if err := a.runSubmit(p); err != nil {
		a.logger.Warn("timed out answer not recorded", zap.Error(err))
	}
}

func (a *Attempt) beginSubmitLocked(given string, timedOut bool) *pendingSubmit {
	a.stopTimersLocked()
	q := a.questions[a.index]
	spent := int(a.clock.Now().Sub(a.questionStarted) / time.Second)
	if spent < 0 {
		spent = 0
	}

	a.submitSeq++
	ctx, cancel := context.WithTimeout(a.baseCtx, a.settings.SubmitTimeout)
	a.submitCancel = cancel
	a.state = StateProcessing
	a.notifyLocked()

	return &pendingSubmit{
		seq:    a.submitSeq,
		ctx:    ctx,
		cancel: cancel,
		req: models.SubmitAnswerRequest{
			QuestionID:       q.ID,
			GivenAnswer:      given,
			TimeSpentSeconds: spent,
		},
		answer: Answer{
			QuestionID:       q.ID,
			Given:            given,
			Correct:          !timedOut && q.IsCorrect(given),
			TimedOut:         timedOut,
			TimeSpentSeconds: spent,
		},
	}
}

// runSubmit performs the network call without holding the lock.
func (a *Attempt) runSubmit(p *pendingSubmit) error {
	var err error
	if a.submitter == nil {
		err = appErrors.Clone(appErrors.ErrInternal, "no answer recorder configured")
	} else {
		_, err = a.submitter.SubmitAnswer(p.ctx, a.ownerID, p.req)
	}
	p.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateProcessing || p.seq != a.submitSeq {
		return appErrors.Clone(appErrors.ErrConflict, "attempt is no longer active")
	}
	a.submitCancel = nil

	if err != nil {
		a.lastError = appErrors.FromError(err).Message
		a.state = StatePresenting
		a.startCountdownLocked()
		a.notifyLocked()
		return err
	}

	a.lastError = ""
	a.answers = append(a.answers, p.answer)
	if p.answer.Correct {
		a.score++
	}
	seq := a.timerSeq
	a.feedback = a.clock.AfterFunc(a.settings.FeedbackDelay, func() { a.advance(seq) })
	a.notifyLocked()
	return nil
}

func (a *Attempt) advance(seq uint64) {
	a.mu.Lock()
	if seq != a.timerSeq || a.state != StateProcessing {
		a.mu.Unlock()
		return
	}
	a.feedback = nil
	if a.index+1 < len(a.questions) {
		a.presentLocked(a.index + 1)
		a.mu.Unlock()
		return
	}

	a.stopTimersLocked()
	a.state = StateFinished
	a.selected = ""
	a.baseStop()
	a.notifyLocked()
	final := a.snapshotLocked()
	onFinish := a.onFinish
	a.mu.Unlock()

	if onFinish != nil {
		onFinish(final)
	}
}

func (a *Attempt) remainingLocked() time.Duration {
	r := a.deadline.Sub(a.clock.Now())
	if r < 0 {
		return 0
	}
	return r
}

func (a *Attempt) stateError(op string) error {
	return appErrors.Clone(appErrors.ErrConflict, "cannot "+op+" while "+string(a.state))
}

func (a *Attempt) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:        a.id,
		LessonID:  a.lessonID,
		State:     a.state,
		Index:     a.index,
		Total:     len(a.questions),
		Score:     a.score,
		Selected:  a.selected,
		LastError: a.lastError,
		Answers:   append([]Answer{}, a.answers...),
		Version:   a.version,
	}
	if n := len(a.answers); n > 0 {
		last := a.answers[n-1]
		s.LastAnswer = &last
	}
	switch a.state {
	case StatePresenting, StateReviewing, StateProcessing:
		s.Question = viewOf(a.questions[a.index])
	}
	var remaining time.Duration
	switch a.state {
	case StatePresenting:
		remaining = a.remainingLocked()
	case StateReviewing:
		remaining = a.frozenRemaining
		s.Hint = Hint
	}
	s.RemainingSeconds = int((remaining + time.Second - 1) / time.Second)
	return s
}

func (a *Attempt) notifyLocked() {
	a.version++
	snap := a.snapshotLocked()
	for id, ch := range a.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
		if a.state.Terminal() {
			close(ch)
			delete(a.subs, id)
		}
	}
}
