package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

func (cli *commandLine) takeQuiz(ctx context.Context, lessonID int64) error {
	current, err := cli.require(ctx, models.RoleStudent)
	if err != nil {
		return err
	}
	snap, err := cli.quiz.Start(ctx, current, lessonID)
	if err != nil {
		return err
	}
	attempt, err := cli.quiz.Attempt(snap.ID, current.UserID)
	if err != nil {
		return err
	}
	defer attempt.Cancel()

	for !snap.State.Terminal() {
		switch snap.State {
		case quiz.StatePresenting:
			snap, err = cli.answerQuestion(attempt, snap)
		case quiz.StateReviewing:
			fmt.Fprintf(cli.out, "Incorrect. %s\nPress Enter to continue.", snap.Hint)
			if _, err = cli.readLine(); err == nil {
				snap, err = attempt.Acknowledge()
			}
		default:
			snap = settle(attempt)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			// The countdown may have moved the attempt on while we waited for input.
			fmt.Fprintf(cli.out, "%s\n", appErrors.FromError(err).Message)
			snap = settle(attempt)
			err = nil
		}
	}

	if snap.State == quiz.StateFinished {
		fmt.Fprintf(cli.out, "\nQuiz complete: %d/%d correct.\n", snap.Score, snap.Total)
	}
	return nil
}

func (cli *commandLine) answerQuestion(attempt *quiz.Attempt, snap quiz.Snapshot) (quiz.Snapshot, error) {
	q := snap.Question
	fmt.Fprintf(cli.out, "\nQuestion %d/%d (%ds)\n%s\n", snap.Index+1, snap.Total, snap.RemainingSeconds, q.Content)
	for _, opt := range q.Options {
		fmt.Fprintf(cli.out, "  %s) %s\n", opt.Key, opt.Text)
	}
	fmt.Fprint(cli.out, "Answer: ")
	line, err := cli.readLine()
	if err != nil {
		return snap, err
	}
	if now := attempt.Snapshot(); now.Index != snap.Index || now.State != quiz.StatePresenting {
		fmt.Fprintln(cli.out, "Time's up for that question.")
		return settle(attempt), nil
	}
	if _, err := attempt.Select(line); err != nil {
		return snap, err
	}
	if _, err := attempt.Confirm(); err != nil {
		return snap, err
	}
	next := settle(attempt)
	if last := next.LastAnswer; last != nil && last.QuestionID == q.ID && last.Correct {
		fmt.Fprintln(cli.out, "Correct!")
	}
	if next.LastError != "" {
		fmt.Fprintf(cli.out, "Could not record answer: %s\n", next.LastError)
	}
	return next, nil
}

// settle waits until the attempt leaves the transient states.
func settle(attempt *quiz.Attempt) quiz.Snapshot {
	updates, unsubscribe := attempt.Subscribe()
	defer unsubscribe()
	snap := attempt.Snapshot()
	for !settled(snap.State) {
		next, ok := <-updates
		if !ok {
			return attempt.Snapshot()
		}
		snap = next
	}
	return snap
}

func settled(state quiz.State) bool {
	return state != quiz.StateProcessing && state != quiz.StateLoading
}

func (cli *commandLine) takePlacement(ctx context.Context) error {
	current, err := cli.require(ctx, models.RoleStudent)
	if err != nil {
		return err
	}
	snap, err := cli.quiz.StartPlacement(ctx, current)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Placement test: type your answer and press Enter.")

	for snap.State == quiz.StatePresenting {
		fmt.Fprintf(cli.out, "\nQuestion %d/%d\n%s\n> ", snap.Index+1, snap.Total, snap.Question.Content)
		line, err := cli.readLine()
		if err != nil {
			return err
		}
		next, err := cli.quiz.AnswerPlacement(snap.ID, current.UserID, line)
		if err != nil {
			fmt.Fprintf(cli.out, "%s\n", appErrors.FromError(err).Message)
			continue
		}
		if next.LastError != "" {
			fmt.Fprintf(cli.out, "Could not finish the test: %s\n", next.LastError)
		}
		snap = next
	}

	if snap.State == quiz.StateFinished {
		fmt.Fprintf(cli.out, "\n%d/%d correct. %s New level: %d\n", snap.Correct, snap.Total, snap.Message, snap.NewLevel)
	}
	return nil
}

func (cli *commandLine) readLine() (string, error) {
	line, err := cli.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
