package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/inmem"
)

func newTestService(t *testing.T) (*user.Service, *inmem.DB) {
	t.Helper()
	conf := testutil.NewTestConfig()
	db := inmem.NewDB()
	emailsvc.ClearSentMessages()
	return user.NewService(inmem.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf), conf), db
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Username:  "awe",
		Email:     "awe@test.cd",
		FirstName: "Awe",
		LastName:  "Kasongo",
		Role:      user.RoleTeacher,
		Password:  "s3cr3t",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.NoError(t, usr.CheckPassword("s3cr3t"))
	assert.Error(t, usr.CheckPassword("S3CR3T"))

	// welcome email went out
	if assert.Len(t, emailsvc.SentMessages, 1) {
		assert.Contains(t, emailsvc.SentMessages[0].Subject, "Welcome")
	}

	// username uniqueness is case-insensitive
	_, err = svc.Create(ctx, user.NewUser{Username: "AWE", Role: user.RoleStudent, Password: "x"})
	var cErr *core.ConflictError
	assert.True(t, errors.As(err, &cErr), "want a conflict error, got %v", err)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Username: "awe", Role: user.RoleStudent, Password: "first"})
	assert.NoError(t, err)

	// wrong old password is a field error and changes nothing
	err = svc.ChangePassword(ctx, usr, user.ChangePassword{OldPassword: "nope", NewPassword: "second"})
	var vErr *core.ValidationError
	if assert.True(t, errors.As(err, &vErr), "want a validation error, got %v", err) {
		assert.Equal(t, "old_password", vErr.Fields[0].Field)
	}
	stored, err := svc.GetByID(ctx, usr.ID)
	assert.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("first"))

	// only the most recently set secret verifies
	assert.NoError(t, svc.ChangePassword(ctx, stored, user.ChangePassword{OldPassword: "first", NewPassword: "second"}))
	stored, err = svc.GetByID(ctx, usr.ID)
	assert.NoError(t, err)
	assert.Error(t, stored.CheckPassword("first"))
	assert.NoError(t, stored.CheckPassword("second"))
}

func TestService_Update_roleLock(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, svc.Repo(), "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	schRepo := inmem.NewSchoolRepository(db)
	sub := testutil.CreateSubject(t, schRepo, "Maths")
	testutil.CreateClass(t, schRepo, "M1", "2024", teacher, sub)

	// role cannot change while a class references the teacher
	uu := user.UpdateUser{Role: user.RoleParent}
	assert.NoError(t, uu.Validate(teacher))
	_, err := svc.Update(ctx, teacher, uu)
	var cErr *core.ConflictError
	if assert.True(t, errors.As(err, &cErr), "want a conflict error, got %v", err) {
		assert.Equal(t, user.ErrRoleLocked, errors.Cause(cErr.Err))
	}

	// other fields still update
	first := "Renamed"
	uu = user.UpdateUser{FirstName: &first}
	assert.NoError(t, uu.Validate(teacher))
	updated, err := svc.Update(ctx, teacher, uu)
	assert.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.Equal(t, user.RoleTeacher, updated.Role)
}
