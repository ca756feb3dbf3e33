package main

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"

	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/inmem"
)

func newTestCLI(t *testing.T) (*commandLine, *inmem.DB) {
	t.Helper()
	conf := testutil.NewTestConfig()
	db := inmem.NewDB()
	usrSvc := user.NewService(inmem.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf), conf)
	return &commandLine{db: &sqlx.DB{}, usrSvc: usrSvc}, db
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := newTestCLI(t)
	mockPassword(t, "s3cr3t")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no command", args: []string{"admin"}, wantErr: errHelp},
		{name: "unknown command", args: []string{"admin", "frobnicate"}, wantErr: errHelp},
		{name: "addadmin requires a username", args: []string{"admin", "addadmin"}, wantErr: errHelp},
		{name: "resetpassword requires a username", args: []string{"admin", "resetpassword"}, wantErr: errHelp},
		{name: "addadmin", args: []string{"admin", "addadmin", "-username", "root", "-email", "root@test.cd"}},
		{name: "resetpassword", args: []string{"admin", "resetpassword", "-username", "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(tt.args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, _ := newTestCLI(t)
	ctx := context.Background()

	// fresh username creates an Administrator
	assert.NoError(t, cli.addAdmin("Root", "root@test.cd", "s3cr3t"))
	usr, err := cli.usrSvc.GetByUsername(ctx, "root")
	assert.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.NoError(t, usr.CheckPassword("s3cr3t"))

	// existing username gets promoted and re-keyed
	teacher := testutil.CreateUser(t, cli.usrSvc.Repo(), "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "old")
	assert.NoError(t, cli.addAdmin("teach", "", "new"))
	usr, err = cli.usrSvc.GetByID(ctx, teacher.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.Equal(t, "teach@test.cd", usr.Email)
	assert.NoError(t, usr.CheckPassword("new"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := newTestCLI(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, cli.usrSvc.Repo(), "awe", "awe@test.cd", "Awe", "Kasongo", user.RoleStudent, "old")

	assert.Error(t, cli.resetPassword("ghost", "x"))

	// lookup works by username or email
	assert.NoError(t, cli.resetPassword("awe@test.cd", "new"))
	stored, err := cli.usrSvc.GetByID(ctx, usr.ID)
	assert.NoError(t, err)
	assert.Error(t, stored.CheckPassword("old"))
	assert.NoError(t, stored.CheckPassword("new"))
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := newTestCLI(t)

	var calls []string
	record := func(name string) func(*sql.DB, fs.FS, string) error {
		return func(db *sql.DB, fsys fs.FS, dir string) error {
			assert.Equal(t, "migrations", dir)
			calls = append(calls, name)
			return nil
		}
	}
	origUp, origUpByOne, origDown, origRedo := gooseUpFunc, gooseUpByOneFunc, gooseDownFunc, gooseRedoFunc
	gooseUpFunc, gooseUpByOneFunc, gooseDownFunc, gooseRedoFunc = record("up"), record("up-by-one"), record("down"), record("redo")
	t.Cleanup(func() {
		gooseUpFunc, gooseUpByOneFunc, gooseDownFunc, gooseRedoFunc = origUp, origUpByOne, origDown, origRedo
	})

	assert.NoError(t, cli.migrate(nil)) // defaults to up
	assert.NoError(t, cli.migrate([]string{"up-by-one"}))
	assert.NoError(t, cli.migrate([]string{"down"}))
	assert.NoError(t, cli.migrate([]string{"redo"}))
	assert.Error(t, cli.migrate([]string{"sideways"}))
	assert.Equal(t, []string{"up", "up-by-one", "down", "redo"}, calls)
}
