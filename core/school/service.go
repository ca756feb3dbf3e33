package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrSubjectNotFound = errors.New("subject not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")

	ErrNotTeacher      = errors.New("selected user is not a teacher")
	ErrNotStudentRole  = errors.New("selected user is not a student")
	ErrRollNumberTaken = errors.New("a student with this roll number already exists")
	ErrProfileExists   = errors.New("a student profile already exists for this user")

	errScheduleOrder    = errors.New("scheduled end must be after scheduled start")
	errUnknownStudents  = errors.New("some student IDs are invalid")
	errUnknownTeacherID = errors.New("teacher not found")
	errUnknownSubjectID = errors.New("subject not found")
)

type (
	StudentGetFilter struct {
		ID     string
		UserID string
	}

	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *ClassFilter, ordering []core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, filter StudentGetFilter) (Student, error)
		QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		// EnrollStudents adds the (student, class) edges as a set-union in a
		// single transaction. Any unresolved student id fails the whole batch
		// with ErrStudentNotFound.
		EnrollStudents(ctx context.Context, classID string, studentIDs []string) error
	}

	Service struct {
		repo  Repository
		users user.Repository
	}
)

func NewService(repo Repository, users user.Repository) *Service {
	return &Service{repo: repo, users: users}
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name})
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *Service) UpdateSubject(ctx context.Context, id, name string) (Subject, error) {
	sub, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if name = core.CleanString(name); name != "" {
		sub.Name = name
	}
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Classes

// checkClassRefs validates the teacher and subject edges at write time: an
// unresolved id is a validation error, a teacher id pointing at a
// non-Teacher person is a constraint violation.
func (svc *Service) checkClassRefs(ctx context.Context, cls *Class) error {
	teacher, err := svc.users.GetUser(ctx, user.GetFilter{ID: cls.TeacherID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(errUnknownTeacherID,
				core.FieldError{Field: "teacher", Error: errUnknownTeacherID.Error()})
		}
		return err
	}
	if !teacher.IsTeacher() {
		return core.NewConflictError(ErrNotTeacher)
	}

	sub, err := svc.repo.GetSubject(ctx, cls.SubjectID)
	if err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return core.NewValidationError(errUnknownSubjectID,
				core.FieldError{Field: "subject", Error: errUnknownSubjectID.Error()})
		}
		return err
	}

	cls.TeacherName = teacher.FullName()
	cls.SubjectName = sub.Name
	return nil
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:           nc.Name,
		AcademicYear:   nc.AcademicYear,
		ScheduledStart: nc.ScheduledStart,
		ScheduledEnd:   nc.ScheduledEnd,
		DaysOfWeek:     nc.DaysOfWeek,
		Location:       nc.Location,
		TeacherID:      nc.TeacherID,
		SubjectID:      nc.SubjectID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.checkClassRefs(ctx, &cls); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *ClassFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) UpdateClass(ctx context.Context, orig Class, uc UpdateClass) (Class, error) {
	cls, err := uc.Apply(orig)
	if err != nil {
		return Class{}, err
	}
	if err = svc.checkClassRefs(ctx, &cls); err != nil {
		return Class{}, err
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: ns.UserID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Student{}, core.NewValidationError(user.ErrNotFound,
				core.FieldError{Field: "user", Error: user.ErrNotFound.Error()})
		}
		return Student{}, err
	}
	if !usr.IsStudent() {
		return Student{}, core.NewConflictError(ErrNotStudentRole)
	}

	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		RollNumber: ns.RollNumber,
		UserID:     ns.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, StudentGetFilter{ID: id})
}

func (svc *Service) GetStudentByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudent(ctx, StudentGetFilter{UserID: userID})
}

func (svc *Service) QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) UpdateStudent(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	std := orig
	if roll := core.CleanString(us.RollNumber); roll != "" {
		std.RollNumber = roll
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// EnrollStudents unions the given students into the class. The batch is
// transactional: one unresolved id and no edges are added.
func (svc *Service) EnrollStudents(ctx context.Context, classID string, es EnrollStudents) error {
	if err := svc.repo.EnrollStudents(ctx, classID, es.StudentIDs); err != nil {
		if errors.Cause(err) == ErrStudentNotFound {
			return core.NewValidationError(errUnknownStudents,
				core.FieldError{Field: "student_ids", Error: errUnknownStudents.Error()})
		}
		return err
	}
	return nil
}
