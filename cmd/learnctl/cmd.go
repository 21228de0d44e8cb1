package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"github.com/noah-isme/adaptive-learning-portal/internal/client"
	"github.com/noah-isme/adaptive-learning-portal/internal/dto"
	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/internal/service"
	"github.com/noah-isme/adaptive-learning-portal/internal/session"
)

// tokenSlot is the single key the CLI keeps its token under.
const tokenSlot = "learnctl"

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out       io.Writer
	in        *bufio.Reader
	sessions  *session.Manager
	auth      *service.AuthService
	lessons   *service.LessonService
	quiz      *service.QuizService
	dashboard *service.DashboardService
}

func (cli *commandLine) printUsage() {
	figure.NewFigure("learnctl", "", true).Print()
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                       - sign in, the password is prompted next")
	fmt.Fprintln(cli.out, "  register -username NAME -email EMAIL [-role student|teacher]")
	fmt.Fprintln(cli.out, "  logout                                   - forget the stored token")
	fmt.Fprintln(cli.out, "  whoami                                   - show the signed-in user")
	fmt.Fprintln(cli.out, "  lessons                                  - list lessons")
	fmt.Fprintln(cli.out, "  lesson ID                                - show one lesson")
	fmt.Fprintln(cli.out, "  dashboard                                - show your dashboard")
	fmt.Fprintln(cli.out, "  quiz LESSON_ID                           - take a timed quiz")
	fmt.Fprintln(cli.out, "  placement                                - take the placement test")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "The account email. The password will be prompted next.")
	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerUsername := registerCmd.String("username", "", "Display name")
	registerEmail := registerCmd.String("email", "", "Account email")
	registerRole := registerCmd.String("role", string(models.RoleStudent), "student or teacher")

	// Backend calls carry the stored token, as the portal's session middleware does.
	ctx = client.WithToken(ctx, cli.sessions.Token(ctx, tokenSlot))

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, pwd)
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *registerUsername == "" || *registerEmail == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.register(ctx, models.RegisterRequest{
			Username: *registerUsername,
			Email:    *registerEmail,
			Password: pwd,
			Role:     models.UserRole(*registerRole),
		})
	case "logout":
		if err := cli.auth.Logout(ctx, tokenSlot); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Signed out.")
		return nil
	case "whoami":
		return cli.whoami(ctx)
	case "lessons":
		return cli.listLessons(ctx)
	case "lesson":
		id, err := idArg(args, "lesson ID")
		if err != nil {
			return err
		}
		return cli.showLesson(ctx, id)
	case "dashboard":
		return cli.showDashboard(ctx)
	case "quiz":
		id, err := idArg(args, "quiz LESSON_ID")
		if err != nil {
			return err
		}
		return cli.takeQuiz(ctx, id)
	case "placement":
		return cli.takePlacement(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errors.New("password is required")
	}
	return string(pwd), nil
}

// require applies the route guard to a command.
func (cli *commandLine) require(ctx context.Context, role models.UserRole) (*models.Session, error) {
	current := cli.auth.Current(ctx, tokenSlot)
	decision := guard.Decide(current, role)
	switch decision.Outcome {
	case guard.Allow:
		return current, nil
	case guard.RedirectLogin:
		return nil, errors.New("not signed in: run `learnctl login -email EMAIL`")
	default:
		return nil, fmt.Errorf("this command is not available to a %s (home: %s)", current.Role, decision.Location)
	}
}

func (cli *commandLine) login(ctx context.Context, email, password string) error {
	res, err := cli.auth.Login(ctx, tokenSlot, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s). Home: %s\n", res.Session.Subject, res.Session.Role, res.Redirect)
	return nil
}

func (cli *commandLine) register(ctx context.Context, req models.RegisterRequest) error {
	user, next, err := cli.auth.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Registered %s as %s. Next: %s\n", user.Username, user.Role, next)
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	current := cli.auth.Current(ctx, tokenSlot)
	if current == nil {
		fmt.Fprintln(cli.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(cli.out, "%s (id %d, %s)\n", current.Subject, current.UserID, current.Role)
	for _, link := range guard.Nav(current).Links {
		fmt.Fprintf(cli.out, "  %-18s %s\n", link.Label, link.Path)
	}
	return nil
}

func (cli *commandLine) listLessons(ctx context.Context) error {
	if _, err := cli.require(ctx, ""); err != nil {
		return err
	}
	lessons, _, err := cli.lessons.List(ctx)
	if err != nil {
		return err
	}
	if len(lessons) == 0 {
		fmt.Fprintln(cli.out, "No lessons yet.")
		return nil
	}
	for _, l := range lessons {
		fmt.Fprintf(cli.out, "%4d  %-40s %s\n", l.ID, l.Title, l.Difficulty)
	}
	return nil
}

func (cli *commandLine) showLesson(ctx context.Context, id int64) error {
	if _, err := cli.require(ctx, ""); err != nil {
		return err
	}
	view, _, err := cli.lessons.View(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s [%s]\n\n%s\n\n%s\n", view.Lesson.Title, view.Lesson.Difficulty, view.Lesson.Description, view.Lesson.ContentText)
	if view.AttachmentKind != models.AttachmentNone {
		fmt.Fprintf(cli.out, "\nAttachment (%s): %s\n", view.AttachmentKind, view.Lesson.AttachmentURL)
	}
	fmt.Fprintf(cli.out, "\nTake the quiz: learnctl quiz %d\n", id)
	return nil
}

func (cli *commandLine) showDashboard(ctx context.Context) error {
	current, err := cli.require(ctx, "")
	if err != nil {
		return err
	}
	if current.Role.IsStaff() {
		return cli.teacherDashboard(ctx, current)
	}
	resp, err := cli.dashboard.Student(ctx, current)
	if err != nil {
		return err
	}
	if resp.Redirect != "" {
		fmt.Fprintln(cli.out, "Complete the placement test first: learnctl placement")
		return nil
	}
	fmt.Fprintf(cli.out, "%s  Level %d\n", resp.Greeting, resp.Level)
	fmt.Fprintf(cli.out, "Accuracy %.0f%%  Solved %d  Study time %d min\n", resp.Stats.Accuracy, resp.Stats.TotalSolved, resp.Stats.StudyMinutes)
	if r := resp.Recommendation; r != nil {
		fmt.Fprintf(cli.out, "Next step: %s (%s)\n", r.RecommendedAction, r.Reason)
	}
	for _, l := range resp.Lessons {
		fmt.Fprintf(cli.out, "  %4d  %s\n", l.ID, l.Title)
	}
	cli.printWarnings(resp.Warnings)
	return nil
}

func (cli *commandLine) teacherDashboard(ctx context.Context, current *models.Session) error {
	resp, err := cli.dashboard.Teacher(ctx, current)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, resp.Greeting)
	for _, row := range resp.Lessons {
		fmt.Fprintf(cli.out, "  %4d  %-40s %s\n", row.ID, row.Title, row.Difficulty)
	}
	if a := resp.Analytics; a != nil {
		fmt.Fprintf(cli.out, "Students: %d\n", a.TotalStudents)
		for _, s := range a.Students {
			fmt.Fprintf(cli.out, "  %-20s %5.1f%%  %d solved\n", s.Username, s.Accuracy, s.TotalSolved)
		}
	}
	cli.printWarnings(resp.Warnings)
	return nil
}

func (cli *commandLine) printWarnings(warnings []dto.WidgetWarning) {
	for _, w := range warnings {
		fmt.Fprintf(cli.out, "! %s: %s\n", w.Widget, w.Message)
	}
}

func idArg(args []string, usage string) (int64, error) {
	if len(args) < 3 {
		return 0, fmt.Errorf("usage: learnctl %s", usage)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[2]), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[2])
	}
	return id, nil
}
