package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo UserRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE LOWER(username) = LOWER($1)`
	args := []interface{}{username}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, stringArray(ids))
	}
	query += `)`

	var exists bool
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &exists, query, args...)
	})
	if err != nil {
		return storeErr(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO "user" (id, username, email, first_name, last_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.Role,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, storeErr(err, "inserting user")
	}
	return usr, nil
}

func (repo UserRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var query string
	var arg string

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query = `SELECT * FROM "user" WHERE id = $1`
		arg = filter.ID
	case filter.Username != "":
		query = `SELECT * FROM "user" WHERE LOWER(username) = LOWER($1)`
		arg = filter.Username
	case filter.UsernameOrEmail != "":
		query = `SELECT * FROM "user" WHERE LOWER(username) = LOWER($1) OR (email <> '' AND LOWER(email) = LOWER($1))`
		arg = filter.UsernameOrEmail
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &row, query, arg)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, storeErr(err, "finding user")
	}
	return row.unpack(), nil
}

func (repo UserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			args = append(args, searchPattern(filter.Search))
			conds = append(conds, `(username ILIKE $1 OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)`)
		}
		if filter.Role != "" {
			args = append(args, filter.Role)
			conds = append(conds, placeholdered(`role = $%d`, len(args)))
		}
	}
	query += where(conds) + orderBy(ordering, "created_at ASC")

	var rows []userRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	})
	if err != nil {
		return nil, storeErr(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE "user"
		SET username = $2, email = $3, first_name = $4, last_name = $5, role = $6,
		    password_hash = $7, updated_at = $8
		WHERE id = $1`,
		usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.Role,
		usr.PasswordHash, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, storeErr(err, "updating user")
	}
	return usr, nil
}

// DeleteUser removes the user; the schema's ON DELETE CASCADE edges take the
// student profile, enrollments, attendance records, announcements and taught
// classes down with it in the same statement.
func (repo UserRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo UserRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &exists,
			`SELECT EXISTS (SELECT 1 FROM "user" WHERE role = $1)`, user.RoleAdmin)
	})
	if err != nil {
		return false, storeErr(err, "checking for administrators")
	}
	return exists, nil
}

func (repo UserRepository) HasRoleDependents(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &exists, `
			SELECT EXISTS (SELECT 1 FROM student WHERE user_id = $1)
			    OR EXISTS (SELECT 1 FROM class WHERE teacher_id = $1)
			    OR EXISTS (SELECT 1 FROM attendance_record WHERE recorded_by_id = $1)
			    OR EXISTS (SELECT 1 FROM announcement WHERE created_by_id = $1)`, id)
	})
	if err != nil {
		return false, storeErr(err, "checking role dependents")
	}
	return exists, nil
}
