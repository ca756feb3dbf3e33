package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/user"
)

func TestAllow(t *testing.T) {
	anonymous := Caller{}
	admin := Caller{ID: "a1", Role: user.RoleAdmin, Authenticated: true}
	teacher := Caller{ID: "t1", Role: user.RoleTeacher, Authenticated: true}
	student := Caller{ID: "s1", Role: user.RoleStudent, Authenticated: true}
	parent := Caller{ID: "p1", Role: user.RoleParent, Authenticated: true}

	tests := []struct {
		name   string
		caller Caller
		action Action
		target Target
		want   bool
	}{
		{name: "registration is public", caller: anonymous, action: PersonRegister, want: true},
		{name: "anonymous can do nothing else", caller: anonymous, action: SubjectRead, want: false},
		{name: "unknown action denies", caller: admin, action: Action("nope"), want: false},

		{name: "person list is admin only", caller: admin, action: PersonList, want: true},
		{name: "teachers cannot list persons", caller: teacher, action: PersonList, want: false},

		{name: "anyone changes their own password", caller: student, action: PersonChangePassword, target: Target{PersonID: "s1"}, want: true},
		{name: "but not somebody else's", caller: student, action: PersonChangePassword, target: Target{PersonID: "s2"}, want: false},
		{name: "admins change any password", caller: admin, action: PersonChangePassword, target: Target{PersonID: "s1"}, want: true},

		{name: "any authenticated role reads subjects", caller: parent, action: SubjectRead, want: true},
		{name: "subject writes are admin only", caller: teacher, action: SubjectWrite, want: false},

		{name: "class writes are admin only", caller: teacher, action: ClassWrite, want: false},
		{name: "the owning teacher enrolls", caller: teacher, action: ClassEnroll, target: Target{TeacherID: "t1"}, want: true},
		{name: "another teacher does not", caller: teacher, action: ClassEnroll, target: Target{TeacherID: "t2"}, want: false},
		{name: "admins enroll anywhere", caller: admin, action: ClassEnroll, target: Target{TeacherID: "t2"}, want: true},

		{name: "teachers read students", caller: teacher, action: StudentRead, want: true},
		{name: "a student reads their own profile", caller: student, action: StudentRead, target: Target{PersonID: "s1"}, want: true},
		{name: "but not another student's", caller: student, action: StudentRead, target: Target{PersonID: "s2"}, want: false},

		{name: "teachers write attendance", caller: teacher, action: AttendanceWrite, want: true},
		{name: "students do not", caller: student, action: AttendanceWrite, want: false},
		{name: "a student reads their own history", caller: student, action: AttendanceHistory, target: Target{PersonID: "s1"}, want: true},
		{name: "parents read no history", caller: parent, action: AttendanceHistory, target: Target{PersonID: "s1"}, want: false},

		{name: "teachers post announcements", caller: teacher, action: AnnouncementWrite, want: true},
		{name: "parents read the board", caller: parent, action: AnnouncementRead, want: true},
		{name: "parents do not post", caller: parent, action: AnnouncementWrite, want: false},

		{name: "empty target never grants self", caller: student, action: PersonChangePassword, want: false},
		{name: "empty target never grants class ownership", caller: teacher, action: ClassEnroll, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.caller, tt.action, tt.target))
		})
	}
}

func TestRegistrationOpen(t *testing.T) {
	tests := []struct {
		name        string
		openFlag    bool
		adminExists bool
		want        bool
	}{
		{name: "opted in", openFlag: true, adminExists: true, want: true},
		{name: "bootstrap", openFlag: false, adminExists: false, want: true},
		{name: "closed once an admin exists", openFlag: false, adminExists: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RegistrationOpen(tt.openFlag, tt.adminExists))
		})
	}
}
