package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")

	// ErrDuplicateRecord marks a second write to an occupied
	// (student, class, date) slot. It is raised by the store's unique
	// constraint, never by a pre-check: a pre-check would race.
	ErrDuplicateRecord = errors.New("an attendance record already exists for this student, class and date")

	errUnknownStudent = errors.New("student not found")
	errUnknownClass   = errors.New("class not found")
)

type (
	Repository interface {
		// CreateRecord inserts the record, surfacing the unique
		// (student, class, date) constraint as ErrDuplicateRecord.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		// StudentHistory returns the student's records in descending date order.
		StudentHistory(ctx context.Context, studentID string) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		schools school.Repository
	}
)

func NewService(repo Repository, schools school.Repository) *Service {
	return &Service{repo: repo, schools: schools}
}

// Create stamps recordedBy onto the new record and inserts it. The student
// and class references must resolve; the duplicate-triple check is left to
// the store so concurrent creates collapse atomically into one winner.
func (svc *Service) Create(ctx context.Context, nr NewRecord, recordedBy string) (Record, error) {
	if _, err := svc.schools.GetStudent(ctx, school.StudentGetFilter{ID: nr.StudentID}); err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return Record{}, core.NewValidationError(errUnknownStudent,
				core.FieldError{Field: "student", Error: errUnknownStudent.Error()})
		}
		return Record{}, err
	}
	if _, err := svc.schools.GetClass(ctx, nr.ClassID); err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return Record{}, core.NewValidationError(errUnknownClass,
				core.FieldError{Field: "class_obj", Error: errUnknownClass.Error()})
		}
		return Record{}, err
	}

	now := time.Now().UTC()
	rec := Record{
		Date:          nr.Date,
		Time:          nr.Time,
		Status:        nr.Status,
		CheckinMethod: nr.CheckinMethod,
		Notes:         nr.Notes,
		StudentID:     nr.StudentID,
		ClassID:       nr.ClassID,
		RecordedByID:  recordedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	rec, err := svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		if errors.Cause(err) == ErrDuplicateRecord {
			return Record{}, core.NewConflictError(err)
		}
		return Record{}, err
	}
	return rec, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

// StudentHistory returns the student's records, newest date first. The
// student must exist; access is gated at the API edge.
func (svc *Service) StudentHistory(ctx context.Context, studentID string) ([]Record, error) {
	if _, err := svc.schools.GetStudent(ctx, school.StudentGetFilter{ID: studentID}); err != nil {
		return nil, err
	}
	return svc.repo.StudentHistory(ctx, studentID)
}

func (svc *Service) Update(ctx context.Context, orig Record, ur UpdateRecord) (Record, error) {
	rec := orig
	if ur.Time != nil {
		rec.Time = *ur.Time
	}
	if ur.Status != "" {
		rec.Status = ur.Status
	}
	if ur.CheckinMethod != "" {
		rec.CheckinMethod = ur.CheckinMethod
	}
	if ur.Notes != nil {
		rec.Notes = core.CleanString(*ur.Notes)
	}
	rec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}
