// Package policy is the single source of truth for authorization: a pure
// decision table over (action, caller role, caller id, target). Handlers
// must consult it instead of inlining role checks.
package policy

import "github.com/trezcool/shule/core/user"

type Action string

const (
	PersonRegister       Action = "person:register"
	PersonList           Action = "person:list"
	PersonRead           Action = "person:read"
	PersonUpdate         Action = "person:update"
	PersonDelete         Action = "person:delete"
	PersonChangePassword Action = "person:change_password"

	SubjectRead  Action = "subject:read"
	SubjectWrite Action = "subject:write"

	ClassRead   Action = "class:read"
	ClassWrite  Action = "class:write"
	ClassEnroll Action = "class:enroll"

	StudentRead  Action = "student:read"
	StudentWrite Action = "student:write"

	AttendanceRead    Action = "attendance:read"
	AttendanceWrite   Action = "attendance:write"
	AttendanceHistory Action = "attendance:student_history"

	AnnouncementRead  Action = "announcement:read"
	AnnouncementWrite Action = "announcement:write"
)

// Caller identifies the requester. A zero Caller is anonymous.
type Caller struct {
	ID            string
	Role          string
	Authenticated bool
}

// Target carries the ids ownership rules decide on. Fields irrelevant to an
// action are left empty.
type Target struct {
	PersonID  string // person the action operates on (or the student's person)
	TeacherID string // teacher of the class the action operates on
}

type rule struct {
	public       bool
	anyAuth      bool
	roles        []string
	self         bool // allowed when target person is the caller
	classTeacher bool // allowed when the caller teaches the target class
}

var table = map[Action]rule{
	PersonRegister:       {public: true},
	PersonList:           {roles: []string{user.RoleAdmin}},
	PersonRead:           {roles: []string{user.RoleAdmin}},
	PersonUpdate:         {roles: []string{user.RoleAdmin}},
	PersonDelete:         {roles: []string{user.RoleAdmin}},
	PersonChangePassword: {roles: []string{user.RoleAdmin}, self: true},

	SubjectRead:  {anyAuth: true},
	SubjectWrite: {roles: []string{user.RoleAdmin}},

	ClassRead:   {anyAuth: true},
	ClassWrite:  {roles: []string{user.RoleAdmin}},
	ClassEnroll: {roles: []string{user.RoleAdmin}, classTeacher: true},

	StudentRead:  {roles: []string{user.RoleAdmin, user.RoleTeacher}, self: true},
	StudentWrite: {roles: []string{user.RoleAdmin}},

	AttendanceRead:    {anyAuth: true},
	AttendanceWrite:   {roles: []string{user.RoleAdmin, user.RoleTeacher}},
	AttendanceHistory: {roles: []string{user.RoleAdmin, user.RoleTeacher}, self: true},

	AnnouncementRead:  {anyAuth: true},
	AnnouncementWrite: {roles: []string{user.RoleAdmin, user.RoleTeacher}},
}

// Allow decides whether caller may perform action on target.
func Allow(c Caller, action Action, t Target) bool {
	r, ok := table[action]
	if !ok {
		return false
	}
	if r.public {
		return true
	}
	if !c.Authenticated {
		return false
	}
	if r.anyAuth {
		return true
	}
	for _, role := range r.roles {
		if c.Role == role {
			return true
		}
	}
	if r.self && t.PersonID != "" && t.PersonID == c.ID {
		return true
	}
	if r.classTeacher && t.TeacherID != "" && t.TeacherID == c.ID {
		return true
	}
	return false
}

// RegistrationOpen decides whether the public register endpoint accepts
// unauthenticated writes: either the deployment opted in, or no
// Administrator exists yet (bootstrap).
func RegistrationOpen(openFlag, adminExists bool) bool {
	return openFlag || !adminExists
}
