package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
)

func TestDecide(t *testing.T) {
	student := &models.Session{Role: models.RoleStudent, UserID: 1}
	teacher := &models.Session{Role: models.RoleTeacher, UserID: 2}
	admin := &models.Session{Role: models.RoleAdmin, UserID: 3}

	cases := []struct {
		name     string
		session  *models.Session
		required models.UserRole
		want     Decision
	}{
		{"anonymous on student page", nil, models.RoleStudent, Decision{RedirectLogin, PathLogin}},
		{"anonymous on any page", nil, "", Decision{RedirectLogin, PathLogin}},
		{"teacher on student dashboard", teacher, models.RoleStudent, Decision{RedirectRoleHome, PathTeacherDashboard}},
		{"student on teacher page", student, models.RoleTeacher, Decision{RedirectRoleHome, PathDashboard}},
		{"student on student page", student, models.RoleStudent, Decision{Outcome: Allow}},
		{"teacher on teacher page", teacher, models.RoleTeacher, Decision{Outcome: Allow}},
		{"admin on teacher page", admin, models.RoleTeacher, Decision{Outcome: Allow}},
		{"admin on student page", admin, models.RoleStudent, Decision{RedirectRoleHome, PathTeacherDashboard}},
		{"any signed in", student, "", Decision{Outcome: Allow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.session, tc.required))
		})
	}
}

func TestNav(t *testing.T) {
	anon := Nav(nil)
	assert.False(t, anon.Authenticated)
	assert.Nil(t, anon.Logout)
	assert.Len(t, anon.Links, 2)

	teacher := Nav(&models.Session{Role: models.RoleTeacher, UserID: 2})
	assert.True(t, teacher.Authenticated)
	assert.Equal(t, PathTeacherDashboard, teacher.Links[0].Path)
	assert.NotNil(t, teacher.Logout)

	student := Nav(&models.Session{Role: models.RoleStudent, UserID: 1})
	assert.Equal(t, PathDashboard, student.Links[0].Path)
}

func TestIsPublic(t *testing.T) {
	assert.True(t, IsPublic(PathLogin))
	assert.True(t, IsPublic(PathRegister))
	assert.False(t, IsPublic(PathDashboard))
}
