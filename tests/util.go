package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/announce"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// NewTestConfig returns a config suitable for tests: no external services,
// short token lifetimes.
func NewTestConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.JWTExpirationDelta = 15 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, firstName, lastName, role, pwd string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo school.Repository, name string) school.Subject {
	t.Helper()

	sub, err := repo.CreateSubject(context.Background(), school.Subject{Name: name})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateClass(
	t *testing.T,
	repo school.Repository,
	name, year string,
	teacher user.User,
	sub school.Subject,
	createdAt ...time.Time,
) school.Class {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cls, err := repo.CreateClass(context.Background(), school.Class{
		Name:           name,
		AcademicYear:   year,
		ScheduledStart: core.NewClockTime(8, 0, 0),
		ScheduledEnd:   core.NewClockTime(9, 30, 0),
		DaysOfWeek:     school.DaysOfWeek{"Monday", "Wednesday"},
		Location:       "Room 1",
		TeacherID:      teacher.ID,
		TeacherName:    teacher.FullName(),
		SubjectID:      sub.ID,
		SubjectName:    sub.Name,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo school.Repository, usr user.User, rollNumber string) school.Student {
	t.Helper()

	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), school.Student{
		RollNumber: rollNumber,
		UserID:     usr.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateRecord(
	t *testing.T,
	repo attendance.Repository,
	std school.Student,
	cls school.Class,
	date core.Date,
	recordedBy user.User,
) attendance.Record {
	t.Helper()

	now := time.Now().UTC()
	rec, err := repo.CreateRecord(context.Background(), attendance.Record{
		Date:          date,
		Time:          core.NewClockTime(9, 0, 0),
		Status:        attendance.StatusPresent,
		CheckinMethod: attendance.CheckinManual,
		StudentID:     std.ID,
		ClassID:       cls.ID,
		RecordedByID:  recordedBy.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

func CreateAnnouncement(
	t *testing.T,
	repo announce.Repository,
	title, audience string,
	createdBy user.User,
	createdAt ...time.Time,
) announce.Announcement {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	ann, err := repo.CreateAnnouncement(context.Background(), announce.Announcement{
		Title:       title,
		Message:     "hello",
		Type:        announce.TypeGeneral,
		Audience:    audience,
		CreatedByID: createdBy.ID,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}

// Logger is a quiet core.Logger for tests.
type Logger struct {
	t *testing.T
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger { return &Logger{t: t} }

func (l Logger) Enable(bool)                          {}
func (l Logger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG: %s %v", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.t.Logf("INFO: %s %v", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR: %s %v", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %v", msg, args) }
