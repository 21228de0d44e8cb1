package quiz

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

// PlacementCompleter reports the diagnostic score to the backend.
type PlacementCompleter interface {
	CompletePlacement(ctx context.Context, userID int64, score int) (*models.PlacementResult, error)
}

// PlacementParams configures a placement attempt.
type PlacementParams struct {
	ID            string
	OwnerID       int64
	Completer     PlacementCompleter
	Clock         Clock
	SubmitTimeout time.Duration
	Logger        *zap.Logger
	BaseContext   context.Context
	OnFinish      func(PlacementSnapshot)
}

// PlacementSnapshot is a consistent copy of a placement attempt.
type PlacementSnapshot struct {
	ID        string        `json:"id"`
	State     State         `json:"state"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Correct   int           `json:"correct"`
	Question  *QuestionView `json:"question,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	NewLevel  int           `json:"new_level,omitempty"`
	Message   string        `json:"message,omitempty"`
	Results   []bool        `json:"results"`
}

// Placement runs the diagnostic test: free-text answers, one completion call at the end.
type Placement struct {
	mu sync.Mutex

	id        string
	ownerID   int64
	startedAt time.Time
	completer PlacementCompleter
	timeout   time.Duration
	logger    *zap.Logger
	baseCtx   context.Context
	baseStop  context.CancelFunc
	onFinish  func(PlacementSnapshot)

	state     State
	questions []models.Question
	index     int
	results   []bool
	lastError string
	result    *models.PlacementResult
	seq       uint64
}

// NewPlacement returns a placement attempt in the loading state.
func NewPlacement(p PlacementParams) *Placement {
	if p.Clock == nil {
		p.Clock = RealClock()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.SubmitTimeout <= 0 {
		p.SubmitTimeout = 5 * time.Second
	}
	base := p.BaseContext
	if base == nil {
		base = context.Background()
	}
	ctx, stop := context.WithCancel(context.WithoutCancel(base))
	return &Placement{
		id:        p.ID,
		ownerID:   p.OwnerID,
		startedAt: p.Clock.Now(),
		completer: p.Completer,
		timeout:   p.SubmitTimeout,
		logger:    p.Logger.With(zap.String("placement_id", p.ID)),
		baseCtx:   ctx,
		baseStop:  stop,
		onFinish:  p.OnFinish,
		state:     StateLoading,
	}
}

func (p *Placement) ID() string           { return p.id }
func (p *Placement) OwnerID() int64       { return p.ownerID }
func (p *Placement) StartedAt() time.Time { return p.startedAt }

// Done reports whether the test reached a terminal state.
func (p *Placement) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Terminal()
}

// Begin presents the first diagnostic question.
func (p *Placement) Begin(questions []models.Question) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateLoading {
		return appErrors.Clone(appErrors.ErrConflict, "placement test already started")
	}
	if len(questions) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no placement questions available")
	}
	p.questions = append([]models.Question(nil), questions...)
	p.state = StatePresenting
	return nil
}

// Answer records a typed answer. The last answer triggers completion; if completion fails
// the test stays on the last question and nothing is recorded for it.
func (p *Placement) Answer(text string) (PlacementSnapshot, error) {
	answer := strings.TrimSpace(text)

	p.mu.Lock()
	if p.state != StatePresenting {
		defer p.mu.Unlock()
		return p.snapshotLocked(), appErrors.Clone(appErrors.ErrConflict, "cannot answer while "+string(p.state))
	}
	if answer == "" {
		defer p.mu.Unlock()
		return p.snapshotLocked(), appErrors.Clone(appErrors.ErrValidation, "please type an answer")
	}

	correct := strings.EqualFold(strings.TrimSpace(p.questions[p.index].CorrectAnswer), answer)
	if p.index+1 < len(p.questions) {
		p.results = append(p.results, correct)
		p.index++
		p.lastError = ""
		defer p.mu.Unlock()
		return p.snapshotLocked(), nil
	}

	score := countTrue(p.results)
	if correct {
		score++
	}
	p.state = StateProcessing
	p.seq++
	seq := p.seq
	ctx, cancel := context.WithTimeout(p.baseCtx, p.timeout)
	p.mu.Unlock()

	var (
		result *models.PlacementResult
		err    error
	)
	if p.completer == nil {
		err = appErrors.Clone(appErrors.ErrInternal, "no placement recorder configured")
	} else {
		result, err = p.completer.CompletePlacement(ctx, p.ownerID, score)
	}
	cancel()

	p.mu.Lock()
	if p.state != StateProcessing || seq != p.seq {
		defer p.mu.Unlock()
		return p.snapshotLocked(), appErrors.Clone(appErrors.ErrConflict, "placement test is no longer active")
	}
	if err != nil {
		p.logger.Warn("placement completion failed", zap.Int("score", score), zap.Error(err))
		p.state = StatePresenting
		p.lastError = appErrors.FromError(err).Message
		defer p.mu.Unlock()
		return p.snapshotLocked(), err
	}

	p.results = append(p.results, correct)
	p.result = result
	p.lastError = ""
	p.state = StateFinished
	p.baseStop()
	final := p.snapshotLocked()
	onFinish := p.onFinish
	p.mu.Unlock()

	if onFinish != nil {
		onFinish(final)
	}
	return final, nil
}

// Cancel abandons the test.
func (p *Placement) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.seq++
	p.baseStop()
	p.state = StateCancelled
}

// Snapshot returns the current state.
func (p *Placement) Snapshot() PlacementSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Placement) snapshotLocked() PlacementSnapshot {
	s := PlacementSnapshot{
		ID:        p.id,
		State:     p.state,
		Index:     p.index,
		Total:     len(p.questions),
		Correct:   countTrue(p.results),
		LastError: p.lastError,
		Results:   append([]bool{}, p.results...),
	}
	if p.state == StatePresenting || p.state == StateProcessing {
		q := viewOf(p.questions[p.index])
		q.Options = nil
		s.Question = q
	}
	if p.result != nil {
		s.NewLevel = p.result.NewLevel
		s.Message = p.result.Message
	}
	return s
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
