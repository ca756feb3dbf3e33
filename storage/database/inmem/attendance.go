package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type AttendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*AttendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// denormalizeRecord attaches the student, class and recorder display names.
// Callers must hold at least the read lock.
func (db *DB) denormalizeRecord(rec attendance.Record) attendance.Record {
	if std, ok := db.students[rec.StudentID]; ok {
		if usr, ok := db.users[std.UserID]; ok {
			rec.StudentName = usr.FullName()
		}
	}
	if cls, ok := db.classes[rec.ClassID]; ok {
		rec.ClassName = cls.Name
	}
	if usr, ok := db.users[rec.RecordedByID]; ok {
		rec.RecordedByName = usr.FullName()
	}
	return rec
}

func (repo AttendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.records {
		if existing.StudentID == rec.StudentID && existing.ClassID == rec.ClassID &&
			existing.Date.Equal(rec.Date.Time) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
	}
	rec.ID = uuid.New().String()
	repo.db.records[rec.ID] = rec
	return repo.db.denormalizeRecord(rec), nil
}

func (repo AttendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return repo.db.denormalizeRecord(rec), nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo AttendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]attendance.Record, 0, len(repo.db.records))
	for _, rec := range repo.db.records {
		rec = repo.db.denormalizeRecord(rec)
		if filter != nil && filter.Search != "" {
			var roll string
			if std, ok := repo.db.students[rec.StudentID]; ok {
				roll = std.RollNumber
			}
			if !matches(filter.Search, roll, rec.StudentName, rec.ClassName) {
				continue
			}
		}
		recs = append(recs, rec)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "attendance_date"}, {Field: "created_at"}}
	}
	sortRecords(recs, ordering)
	return recs, nil
}

func (repo AttendanceRepository) StudentHistory(ctx context.Context, studentID string) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if rec.StudentID == studentID {
			recs = append(recs, repo.db.denormalizeRecord(rec))
		}
	}
	sortRecords(recs, []core.DBOrdering{{Field: "attendance_date"}, {Field: "created_at"}})
	return recs, nil
}

func sortRecords(recs []attendance.Record, ordering []core.DBOrdering) {
	orderSlice(recs, ordering, func(i, j int, field string) int {
		a, b := recs[i], recs[j]
		switch field {
		case "attendance_date":
			return compareTimes(a.Date.Time, b.Date.Time)
		case "attendance_time":
			return compareStrings(a.Time.String(), b.Time.String())
		case "status":
			return compareStrings(a.Status, b.Status)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
}

func (repo AttendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.records[rec.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	repo.db.records[rec.ID] = rec
	return repo.db.denormalizeRecord(rec), nil
}

func (repo AttendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.records[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.records, id)
	return nil
}
