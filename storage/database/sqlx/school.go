package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type classRow struct {
	ID             string            `db:"id"`
	Name           string            `db:"name"`
	AcademicYear   string            `db:"academic_year"`
	ScheduledStart core.ClockTime    `db:"scheduled_start_time"`
	ScheduledEnd   core.ClockTime    `db:"scheduled_end_time"`
	DaysOfWeek     school.DaysOfWeek `db:"days_of_week"`
	Location       string            `db:"location"`
	TeacherID      string            `db:"teacher_id"`
	TeacherName    string            `db:"teacher_name"`
	SubjectID      string            `db:"subject_id"`
	SubjectName    string            `db:"subject_name"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
}

func (r classRow) unpack() school.Class {
	return school.Class{
		ID:             r.ID,
		Name:           r.Name,
		AcademicYear:   r.AcademicYear,
		ScheduledStart: r.ScheduledStart,
		ScheduledEnd:   r.ScheduledEnd,
		DaysOfWeek:     r.DaysOfWeek,
		Location:       r.Location,
		TeacherID:      r.TeacherID,
		TeacherName:    r.TeacherName,
		SubjectID:      r.SubjectID,
		SubjectName:    r.SubjectName,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type studentRow struct {
	ID         string    `db:"id"`
	RollNumber string    `db:"roll_number"`
	UserID     string    `db:"user_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`

	Username  string `db:"username"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Role      string `db:"role"`
}

func (r studentRow) unpack() school.Student {
	return school.Student{
		ID:         r.ID,
		RollNumber: r.RollNumber,
		UserID:     r.UserID,
		User: &user.User{
			ID:        r.UserID,
			Username:  r.Username,
			Email:     r.Email,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Role:      r.Role,
		},
		ClassIDs:  []string{},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const classSelect = `
	SELECT c.id, c.name, c.academic_year, c.scheduled_start_time, c.scheduled_end_time,
	       c.days_of_week, c.location, c.teacher_id, c.subject_id, c.created_at, c.updated_at,
	       TRIM(u.first_name || ' ' || u.last_name) AS teacher_name,
	       s.name AS subject_name
	FROM class c
	JOIN "user" u ON u.id = c.teacher_id
	JOIN subject s ON s.id = c.subject_id`

const studentSelect = `
	SELECT st.id, st.roll_number, st.user_id, st.created_at, st.updated_at,
	       u.username, u.email, u.first_name, u.last_name, u.role
	FROM student st
	JOIN "user" u ON u.id = st.user_id`

type SchoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*SchoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Subjects

func (repo SchoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	sub.ID = uuid.New().String()
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO subject (id, name) VALUES ($1, $2)`, sub.ID, sub.Name,
	); err != nil {
		return school.Subject{}, storeErr(err, "inserting subject")
	}
	return sub, nil
}

func (repo SchoolRepository) GetSubject(ctx context.Context, id string) (school.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	var sub school.Subject
	err := retryOnce(func() error {
		return repo.db.QueryRowContext(ctx, `SELECT id, name FROM subject WHERE id = $1`, id).
			Scan(&sub.ID, &sub.Name)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return school.Subject{}, school.ErrSubjectNotFound
		}
		return school.Subject{}, storeErr(err, "finding subject")
	}
	return sub, nil
}

func (repo SchoolRepository) QuerySubjects(ctx context.Context, filter *school.SubjectFilter, ordering []core.DBOrdering) ([]school.Subject, error) {
	query := `SELECT id, name FROM subject`
	var args []interface{}
	if filter != nil && filter.Search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, searchPattern(filter.Search))
	}
	// duplicates permitted, tie-broken by id
	query += orderBy(ordering, "name ASC, id ASC")

	var subs []school.Subject
	err := retryOnce(func() error {
		subs = subs[:0]
		rows, err := repo.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var sub school.Subject
			if err = rows.Scan(&sub.ID, &sub.Name); err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeErr(err, "querying subjects")
	}
	if subs == nil {
		subs = []school.Subject{}
	}
	return subs, nil
}

func (repo SchoolRepository) UpdateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE subject SET name = $2 WHERE id = $1`, sub.ID, sub.Name,
	); err != nil {
		return school.Subject{}, storeErr(err, "updating subject")
	}
	return sub, nil
}

func (repo SchoolRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrSubjectNotFound
	}
	return nil
}

// Classes

func (repo SchoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	cls.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO class (id, name, academic_year, scheduled_start_time, scheduled_end_time,
		                   days_of_week, location, teacher_id, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		cls.ID, cls.Name, cls.AcademicYear, cls.ScheduledStart, cls.ScheduledEnd,
		cls.DaysOfWeek, cls.Location, cls.TeacherID, cls.SubjectID, cls.CreatedAt, cls.UpdatedAt,
	)
	if err != nil {
		return school.Class{}, storeErr(err, "inserting class")
	}
	return cls, nil
}

func (repo SchoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Class{}, school.ErrClassNotFound
	}
	var row classRow
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &row, classSelect+` WHERE c.id = $1`, id)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, storeErr(err, "finding class")
	}
	return row.unpack(), nil
}

func (repo SchoolRepository) QueryClasses(ctx context.Context, filter *school.ClassFilter, ordering []core.DBOrdering) ([]school.Class, error) {
	query := classSelect
	var args []interface{}
	if filter != nil && filter.Search != "" {
		args = append(args, searchPattern(filter.Search))
		query += ` WHERE (c.name ILIKE $1 OR c.academic_year ILIKE $1 OR c.location ILIKE $1
			OR u.first_name ILIKE $1 OR u.last_name ILIKE $1 OR s.name ILIKE $1)`
	}
	query += orderBy(ordering, "c.created_at ASC")

	var rows []classRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	})
	if err != nil {
		return nil, storeErr(err, "querying classes")
	}

	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.unpack())
	}
	return classes, nil
}

func (repo SchoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE class
		SET name = $2, academic_year = $3, scheduled_start_time = $4, scheduled_end_time = $5,
		    days_of_week = $6, location = $7, teacher_id = $8, subject_id = $9, updated_at = $10
		WHERE id = $1`,
		cls.ID, cls.Name, cls.AcademicYear, cls.ScheduledStart, cls.ScheduledEnd,
		cls.DaysOfWeek, cls.Location, cls.TeacherID, cls.SubjectID, cls.UpdatedAt,
	)
	if err != nil {
		return school.Class{}, storeErr(err, "updating class")
	}
	return cls, nil
}

func (repo SchoolRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrClassNotFound
	}
	return nil
}

// Students

func (repo SchoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	std.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO student (id, roll_number, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		std.ID, std.RollNumber, std.UserID, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == "student_user_id_key" {
				return school.Student{}, core.NewConflictError(school.ErrProfileExists)
			}
			return school.Student{}, core.NewConflictError(school.ErrRollNumberTaken)
		}
		if isFKViolation(err) {
			return school.Student{}, core.NewValidationError(user.ErrNotFound,
				core.FieldError{Field: "user", Error: user.ErrNotFound.Error()})
		}
		return school.Student{}, storeErr(err, "inserting student")
	}
	return repo.GetStudent(ctx, school.StudentGetFilter{ID: std.ID})
}

func (repo SchoolRepository) GetStudent(ctx context.Context, filter school.StudentGetFilter) (school.Student, error) {
	var cond string
	var arg string
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return school.Student{}, school.ErrStudentNotFound
		}
		cond = ` WHERE st.id = $1`
		arg = filter.ID
	case filter.UserID != "":
		cond = ` WHERE st.user_id = $1`
		arg = filter.UserID
	default:
		return school.Student{}, school.ErrStudentNotFound
	}

	var row studentRow
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &row, studentSelect+cond, arg)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return school.Student{}, school.ErrStudentNotFound
		}
		return school.Student{}, storeErr(err, "finding student")
	}

	std := row.unpack()
	if err = repo.attachClasses(ctx, map[string]*school.Student{std.ID: &std}); err != nil {
		return school.Student{}, err
	}
	return std, nil
}

func (repo SchoolRepository) QueryStudents(ctx context.Context, filter *school.StudentFilter, ordering []core.DBOrdering) ([]school.Student, error) {
	query := studentSelect
	var args []interface{}
	if filter != nil && filter.Search != "" {
		args = append(args, searchPattern(filter.Search))
		query += ` WHERE (st.roll_number ILIKE $1 OR u.first_name ILIKE $1 OR u.last_name ILIKE $1 OR u.email ILIKE $1)`
	}
	query += orderBy(ordering, "st.created_at ASC")

	var rows []studentRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	})
	if err != nil {
		return nil, storeErr(err, "querying students")
	}

	students := make([]school.Student, 0, len(rows))
	byID := make(map[string]*school.Student, len(rows))
	for _, row := range rows {
		students = append(students, row.unpack())
		byID[row.ID] = &students[len(students)-1]
	}
	if err = repo.attachClasses(ctx, byID); err != nil {
		return nil, err
	}
	return students, nil
}

// attachClasses loads the enrollment edges and class details of the given
// students in one round trip per relation.
func (repo SchoolRepository) attachClasses(ctx context.Context, students map[string]*school.Student) error {
	if len(students) == 0 {
		return nil
	}
	ids := make([]string, 0, len(students))
	for id := range students {
		ids = append(ids, id)
	}

	type edgeRow struct {
		StudentID string `db:"student_id"`
		classRow
	}
	var edges []edgeRow
	err := retryOnce(func() error {
		edges = edges[:0]
		return sqlx.SelectContext(ctx, repo.db, &edges, `
			SELECT e.student_id, c.id, c.name, c.academic_year, c.scheduled_start_time,
			       c.scheduled_end_time, c.days_of_week, c.location, c.teacher_id,
			       c.subject_id, c.created_at, c.updated_at,
			       TRIM(u.first_name || ' ' || u.last_name) AS teacher_name,
			       s.name AS subject_name
			FROM enrollment e
			JOIN class c ON c.id = e.class_id
			JOIN "user" u ON u.id = c.teacher_id
			JOIN subject s ON s.id = c.subject_id
			WHERE e.student_id = ANY($1)
			ORDER BY c.created_at`, stringArray(ids))
	})
	if err != nil {
		return storeErr(err, "loading enrollments")
	}

	for _, edge := range edges {
		std := students[edge.StudentID]
		std.ClassIDs = append(std.ClassIDs, edge.classRow.ID)
		std.Classes = append(std.Classes, edge.classRow.unpack())
	}
	return nil
}

func (repo SchoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE student SET roll_number = $2, updated_at = $3 WHERE id = $1`,
		std.ID, std.RollNumber, std.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return school.Student{}, core.NewConflictError(school.ErrRollNumberTaken)
		}
		return school.Student{}, storeErr(err, "updating student")
	}
	return std, nil
}

func (repo SchoolRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrStudentNotFound
	}
	return nil
}

// EnrollStudents unions the edges inside one transaction; existing edges are
// kept, unknown student ids roll the whole batch back.
func (repo SchoolRepository) EnrollStudents(ctx context.Context, classID string, studentIDs []string) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBTransactor) error {
		var known int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM student WHERE id = ANY($1)`, stringArray(studentIDs),
		).Scan(&known); err != nil {
			return storeErr(err, "resolving students")
		}
		if known != len(dedupe(studentIDs)) {
			return school.ErrStudentNotFound
		}

		for _, id := range studentIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO enrollment (student_id, class_id)
				VALUES ($1, $2)
				ON CONFLICT (student_id, class_id) DO NOTHING`, id, classID,
			); err != nil {
				if isFKViolation(err) {
					return school.ErrClassNotFound
				}
				return storeErr(err, "inserting enrollment")
			}
		}
		return nil
	})
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
