package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
)

type recordRow struct {
	ID             string         `db:"id"`
	Date           core.Date      `db:"attendance_date"`
	Time           core.ClockTime `db:"attendance_time"`
	Status         string         `db:"status"`
	Notes          string         `db:"notes"`
	CheckinMethod  string         `db:"checkin_method"`
	StudentID      string         `db:"student_id"`
	StudentName    string         `db:"student_name"`
	ClassID        string         `db:"class_id"`
	ClassName      string         `db:"class_name"`
	RecordedByID   string         `db:"recorded_by_id"`
	RecordedByName string         `db:"recorded_by_name"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r recordRow) unpack() attendance.Record {
	return attendance.Record{
		ID:             r.ID,
		Date:           r.Date,
		Time:           r.Time,
		Status:         r.Status,
		Notes:          r.Notes,
		CheckinMethod:  r.CheckinMethod,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		ClassID:        r.ClassID,
		ClassName:      r.ClassName,
		RecordedByID:   r.RecordedByID,
		RecordedByName: r.RecordedByName,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const recordSelect = `
	SELECT a.id, a.attendance_date, a.attendance_time, a.status, a.notes, a.checkin_method,
	       a.student_id, a.class_id, a.recorded_by_id, a.created_at, a.updated_at,
	       TRIM(su.first_name || ' ' || su.last_name) AS student_name,
	       c.name AS class_name,
	       TRIM(ru.first_name || ' ' || ru.last_name) AS recorded_by_name
	FROM attendance_record a
	JOIN student st ON st.id = a.student_id
	JOIN "user" su ON su.id = st.user_id
	JOIN class c ON c.id = a.class_id
	JOIN "user" ru ON ru.id = a.recorded_by_id`

type AttendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*AttendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (repo AttendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_record (id, attendance_date, attendance_time, status, notes,
		                               checkin_method, student_id, class_id, recorded_by_id,
		                               created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Date, rec.Time, rec.Status, rec.Notes, rec.CheckinMethod,
		rec.StudentID, rec.ClassID, rec.RecordedByID, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		if isFKViolation(err) {
			return attendance.Record{}, core.NewValidationError(err,
				core.FieldError{Field: "student", Error: school.ErrStudentNotFound.Error()})
		}
		return attendance.Record{}, storeErr(err, "inserting attendance record")
	}
	return repo.GetRecord(ctx, rec.ID)
}

func (repo AttendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row recordRow
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &row, recordSelect+` WHERE a.id = $1`, id)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, storeErr(err, "finding attendance record")
	}
	return row.unpack(), nil
}

func (repo AttendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	query := recordSelect
	var args []interface{}
	if filter != nil && filter.Search != "" {
		args = append(args, searchPattern(filter.Search))
		query += ` WHERE (st.roll_number ILIKE $1 OR su.first_name ILIKE $1 OR su.last_name ILIKE $1 OR c.name ILIKE $1)`
	}
	query += orderBy(ordering, "a.attendance_date DESC, a.created_at DESC")

	var rows []recordRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	})
	if err != nil {
		return nil, storeErr(err, "querying attendance records")
	}

	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unpack())
	}
	return recs, nil
}

func (repo AttendanceRepository) StudentHistory(ctx context.Context, studentID string) ([]attendance.Record, error) {
	var rows []recordRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows,
			recordSelect+` WHERE a.student_id = $1 ORDER BY a.attendance_date DESC, a.created_at DESC`,
			studentID)
	})
	if err != nil {
		return nil, storeErr(err, "loading attendance history")
	}

	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unpack())
	}
	return recs, nil
}

func (repo AttendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE attendance_record
		SET attendance_time = $2, status = $3, checkin_method = $4, notes = $5, updated_at = $6
		WHERE id = $1`,
		rec.ID, rec.Time, rec.Status, rec.CheckinMethod, rec.Notes, rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, storeErr(err, "updating attendance record")
	}
	return rec, nil
}

func (repo AttendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance_record WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting attendance record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
