package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type submitterStub struct {
	mu      sync.Mutex
	calls   []models.SubmitAnswerRequest
	userIDs []int64
	errs    []error
	block   chan struct{}
	started chan struct{}
}

func (s *submitterStub) SubmitAnswer(ctx context.Context, userID int64, req models.SubmitAnswerRequest) (*models.SubmissionRecord, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.userIDs = append(s.userIDs, userID)
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	block, started := s.block, s.started
	s.mu.Unlock()

	if block != nil {
		if started != nil {
			close(started)
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.SubmissionRecord{}, nil
}

func (s *submitterStub) requests() []models.SubmitAnswerRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SubmitAnswerRequest(nil), s.calls...)
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{ID: 10, LessonID: 1, Content: "2+2", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", CorrectAnswer: "B"},
		{ID: 11, LessonID: 1, Content: "3+3", OptionA: "6", OptionB: "7", OptionC: "8", OptionD: "9", CorrectAnswer: "a"},
	}
}

func newTestAttempt(t *testing.T, sub Submitter, clock *FakeClock, onFinish func(Snapshot)) *Attempt {
	t.Helper()
	a := NewAttempt(Params{
		ID:        "att-1",
		OwnerID:   42,
		LessonID:  1,
		Submitter: sub,
		Clock:     clock,
		Settings: Settings{
			QuestionTimeLimit: 30 * time.Second,
			FeedbackDelay:     1500 * time.Millisecond,
			SubmitTimeout:     5 * time.Second,
		},
		OnFinish: onFinish,
	})
	require.Equal(t, StateLoading, a.Snapshot().State)
	require.NoError(t, a.Begin(sampleQuestions()))
	return a
}

func TestAttemptSelectConfirmSubmitsChosenOption(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{}
	a := newTestAttempt(t, sub, clock, nil)

	snap := a.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 30, snap.RemainingSeconds)
	require.NotNil(t, snap.Question)
	assert.Equal(t, "2+2", snap.Question.Content)

	clock.Advance(4 * time.Second)
	_, err := a.Select("b")
	require.NoError(t, err)
	snap, err = a.Confirm()
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, snap.State)
	assert.Equal(t, 1, snap.Score)

	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.SubmitAnswerRequest{QuestionID: 10, GivenAnswer: "B", TimeSpentSeconds: 4}, reqs[0])
	assert.Equal(t, []int64{42}, sub.userIDs)

	clock.Advance(1499 * time.Millisecond)
	assert.Equal(t, StateProcessing, a.Snapshot().State)
	clock.Advance(time.Millisecond)
	snap = a.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.Empty(t, snap.Selected)
	assert.Equal(t, 30, snap.RemainingSeconds)
}

func TestAttemptCountdownExpirySubmitsNone(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{}
	a := newTestAttempt(t, sub, clock, nil)

	_, err := a.Select("C")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.NoAnswer, reqs[0].GivenAnswer)
	assert.Equal(t, 30, reqs[0].TimeSpentSeconds)
	snap := a.Snapshot()
	assert.Equal(t, StateProcessing, snap.State)
	require.NotNil(t, snap.LastAnswer)
	assert.True(t, snap.LastAnswer.TimedOut)
	assert.False(t, snap.LastAnswer.Correct)
}

func TestAttemptWrongAnswerIsReviewedBeforeSubmit(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{}
	a := newTestAttempt(t, sub, clock, nil)

	clock.Advance(10 * time.Second)
	_, err := a.Select("A")
	require.NoError(t, err)
	snap, err := a.Confirm()
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, Hint, snap.Hint)
	assert.Equal(t, 20, snap.RemainingSeconds)
	assert.Empty(t, sub.requests())

	// the countdown is paused while the hint is open
	clock.Advance(time.Minute)
	assert.Equal(t, StateReviewing, a.Snapshot().State)
	assert.Empty(t, sub.requests())

	snap, err = a.Acknowledge()
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, snap.State)
	assert.Equal(t, 0, snap.Score)
	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "A", reqs[0].GivenAnswer)
}

func TestAttemptFailedSubmitReturnsToPresenting(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{errs: []error{appErrors.Clone(appErrors.ErrNetwork, "learning service unreachable")}}
	a := newTestAttempt(t, sub, clock, nil)

	_, err := a.Select("B")
	require.NoError(t, err)
	clock.Advance(20 * time.Second)
	snap, err := a.Confirm()
	require.Error(t, err)
	assert.Equal(t, appErrors.KindNetwork, appErrors.KindOf(err))
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "learning service unreachable", snap.LastError)
	assert.Equal(t, 30, snap.RemainingSeconds)
	assert.Empty(t, snap.Answers)

	snap, err = a.Confirm()
	require.NoError(t, err)
	assert.Empty(t, snap.LastError)
	assert.Len(t, sub.requests(), 2)
}

func TestAttemptFinishes(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{}
	var finished []Snapshot
	a := newTestAttempt(t, sub, clock, func(s Snapshot) { finished = append(finished, s) })

	_, _ = a.Select("B")
	_, err := a.Confirm()
	require.NoError(t, err)
	clock.Advance(1500 * time.Millisecond)
	_, _ = a.Select("A")
	_, err = a.Confirm()
	require.NoError(t, err)
	clock.Advance(1500 * time.Millisecond)

	snap := a.Snapshot()
	assert.Equal(t, StateFinished, snap.State)
	assert.Equal(t, 2, snap.Score)
	assert.Nil(t, snap.Question)
	assert.Len(t, snap.Answers, 2)
	require.Len(t, finished, 1)
	assert.True(t, a.Done())
	assert.Zero(t, clock.Pending())
}

func TestAttemptRejectsInvalidTransitions(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	a := newTestAttempt(t, &submitterStub{}, clock, nil)

	_, err := a.Confirm()
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = a.Select("E")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = a.Acknowledge()
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.ErrorIs(t, a.Begin(sampleQuestions()), appErrors.ErrConflict)
}

func TestAttemptBeginWithoutQuestions(t *testing.T) {
	a := NewAttempt(Params{ID: "x", OwnerID: 1, Clock: NewFakeClock(time.Unix(0, 0))})
	assert.ErrorIs(t, a.Begin(nil), appErrors.ErrValidation)
}

func TestAttemptCancelStopsTimersAndInflightSubmit(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{block: make(chan struct{}), started: make(chan struct{})}
	a := newTestAttempt(t, sub, clock, nil)
	_, _ = a.Select("B")

	done := make(chan error, 1)
	go func() {
		_, err := a.Confirm()
		done <- err
	}()
	<-sub.started
	a.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, appErrors.ErrConflict)
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return after cancel")
	}
	assert.Equal(t, StateCancelled, a.Snapshot().State)
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Hour)
	assert.Len(t, sub.requests(), 1)
}

func TestAttemptCancelDuringCountdown(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	sub := &submitterStub{}
	a := newTestAttempt(t, sub, clock, nil)

	a.Cancel()
	a.Cancel()
	clock.Advance(time.Minute)
	assert.Empty(t, sub.requests())
	_, err := a.Select("A")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAttemptSubscribeStreamsTransitions(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	a := newTestAttempt(t, &submitterStub{}, clock, nil)

	ch, stop := a.Subscribe()
	defer stop()
	_, _ = a.Select("D")
	snap := <-ch
	assert.Equal(t, "D", snap.Selected)

	a.Cancel()
	var last Snapshot
	for s := range ch {
		last = s
	}
	assert.Equal(t, StateCancelled, last.State)
}

type completerStub struct {
	scores []int
	err    error
}

func (c *completerStub) CompletePlacement(_ context.Context, _ int64, score int) (*models.PlacementResult, error) {
	c.scores = append(c.scores, score)
	if c.err != nil {
		return nil, c.err
	}
	return &models.PlacementResult{Message: "ok", NewLevel: 2 + score}, nil
}

func placementQuestions() []models.Question {
	return []models.Question{
		{ID: 1, Content: "Capital of France?", CorrectAnswer: "Paris"},
		{ID: 2, Content: "5*5?", CorrectAnswer: "25"},
	}
}

func TestPlacementScoresTrimmedCaseInsensitive(t *testing.T) {
	c := &completerStub{}
	p := NewPlacement(PlacementParams{ID: "p1", OwnerID: 9, Completer: c})
	require.NoError(t, p.Begin(placementQuestions()))

	_, err := p.Answer("   ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	snap, err := p.Answer("  paris ")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 1, snap.Correct)

	snap, err = p.Answer("24")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, snap.State)
	assert.Equal(t, 3, snap.NewLevel)
	assert.Equal(t, []int{1}, c.scores)
	assert.Equal(t, []bool{true, false}, snap.Results)
}

func TestPlacementCompletionFailureKeepsLastQuestion(t *testing.T) {
	c := &completerStub{err: errors.New("boom")}
	p := NewPlacement(PlacementParams{ID: "p1", OwnerID: 9, Completer: c})
	require.NoError(t, p.Begin(placementQuestions()))

	_, err := p.Answer("Paris")
	require.NoError(t, err)
	snap, err := p.Answer("25")
	require.Error(t, err)
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.NotEmpty(t, snap.LastError)
	assert.Len(t, snap.Results, 1)

	c.err = nil
	snap, err = p.Answer("25")
	require.NoError(t, err)
	assert.Equal(t, StateFinished, snap.State)
	assert.Equal(t, []int{2, 2}, c.scores)
	assert.Len(t, snap.Results, 2)
}

func TestRegistryOwnershipExpiryAndLogout(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	var active []int
	reg := NewRegistry(clock, time.Hour, func(n int) { active = append(active, n) })

	a := NewAttempt(Params{ID: NewID(), OwnerID: 1, Clock: clock})
	p := NewPlacement(PlacementParams{ID: NewID(), OwnerID: 1, Clock: clock})
	other := NewAttempt(Params{ID: NewID(), OwnerID: 2, Clock: clock})
	reg.Add(a)
	reg.Add(p)
	reg.Add(other)

	got, err := reg.Attempt(a.ID(), 1)
	require.NoError(t, err)
	assert.Same(t, a, got)
	_, err = reg.Attempt(a.ID(), 2)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = reg.Attempt(p.ID(), 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = reg.Placement(p.ID(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.CancelOwner(1))
	assert.Equal(t, StateCancelled, a.Snapshot().State)
	assert.Equal(t, 1, reg.Len())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, []int{1, 2, 3, 1, 0}, active)
}
