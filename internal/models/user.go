package models

// UserRole represents the roles understood by the portal's route guard.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	// RoleAdmin is accepted by the backend wherever a teacher is; the portal treats it the same way.
	RoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one the portal can route.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Satisfies reports whether a session holding r may open a page requiring required.
func (r UserRole) Satisfies(required UserRole) bool {
	if required == "" {
		return true
	}
	if r == required {
		return true
	}
	return required == RoleTeacher && r == RoleAdmin
}

// IsStaff is true for roles that manage the curriculum.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// UserStatus is the payload of GET /auth/me/{id}.
type UserStatus struct {
	IsPlacementCompleted bool     `json:"is_placement_completed"`
	CurrentLevel         int      `json:"current_level"`
	Role                 UserRole `json:"role"`
}

// PlacementResult is returned by POST /auth/complete-placement/{id}.
type PlacementResult struct {
	Message  string `json:"message"`
	NewLevel int    `json:"new_level"`
}
