package guard

import (
	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

// Page paths the guard routes between.
const (
	PathRoot             = "/"
	PathLogin            = "/login"
	PathRegister         = "/register"
	PathDashboard        = "/dashboard"
	PathTeacherDashboard = "/teacher-dashboard"
	PathPlacementTest    = "/placement-test"
)

// Outcome is the result of a guard check.
type Outcome string

const (
	Allow            Outcome = "allow"
	RedirectLogin    Outcome = "redirect_login"
	RedirectRoleHome Outcome = "redirect_role_home"

	// RedirectPlacement sends a student without a placement level to the diagnostic test.
	RedirectPlacement Outcome = "redirect_placement"
)

// Decision tells a page whether to render or where to go instead.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Allowed reports whether the page may render.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Home returns the landing page for a role.
func Home(role models.UserRole) string {
	if role.IsStaff() {
		return PathTeacherDashboard
	}
	return PathDashboard
}

// Decide evaluates a navigation against the current session. An empty required role
// only demands that someone is signed in.
func Decide(session *models.Session, required models.UserRole) Decision {
	if session == nil {
		return Decision{Outcome: RedirectLogin, Location: PathLogin}
	}
	if !session.Role.Satisfies(required) {
		return Decision{Outcome: RedirectRoleHome, Location: Home(session.Role)}
	}
	return Decision{Outcome: Allow}
}

// IsPublic reports whether path renders without a session.
func IsPublic(path string) bool {
	return path == PathLogin || path == PathRegister
}

// Link is one navbar entry.
type Link struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Method string `json:"method,omitempty"`
}

// Navigation describes the navbar for the current session.
type Navigation struct {
	Authenticated bool            `json:"authenticated"`
	Role          models.UserRole `json:"role,omitempty"`
	Links         []Link          `json:"links"`
	Logout        *Link           `json:"logout,omitempty"`
}

// Nav renders role-conditional links. Anonymous visitors see login and register only.
func Nav(session *models.Session) Navigation {
	if session == nil {
		return Navigation{Links: []Link{
			{Label: "Login", Path: PathLogin},
			{Label: "Register", Path: PathRegister},
		}}
	}
	nav := Navigation{
		Authenticated: true,
		Role:          session.Role,
		Logout:        &Link{Label: "Logout", Path: "/auth/logout", Method: "POST"},
	}
	if session.Role.IsStaff() {
		nav.Links = []Link{
			{Label: "Teacher Dashboard", Path: PathTeacherDashboard},
			{Label: "Add Lesson", Path: "/teacher/lessons/new"},
		}
		return nav
	}
	nav.Links = []Link{
		{Label: "Dashboard", Path: PathDashboard},
		{Label: "Placement Test", Path: PathPlacementTest},
	}
	return nav
}
