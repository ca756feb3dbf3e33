package inmem

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type SchoolRepository struct {
	db *DB
}

var _ school.Repository = (*SchoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Subjects

func (repo SchoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = uuid.New().String()
	repo.db.subjects[sub.ID] = sub
	return sub, nil
}

func (repo SchoolRepository) GetSubject(ctx context.Context, id string) (school.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return sub, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo SchoolRepository) QuerySubjects(ctx context.Context, filter *school.SubjectFilter, ordering []core.DBOrdering) ([]school.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]school.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		if filter != nil && filter.Search != "" && !matches(filter.Search, sub.Name) {
			continue
		}
		subs = append(subs, sub)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "id", Ascending: true}}
	}
	orderSlice(subs, ordering, func(i, j int, field string) int {
		a, b := subs[i], subs[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "id":
			return compareStrings(a.ID, b.ID)
		}
		return 0
	})
	return subs, nil
}

func (repo SchoolRepository) UpdateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[sub.ID]; !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	repo.db.subjects[sub.ID] = sub
	return sub, nil
}

func (repo SchoolRepository) DeleteSubject(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return school.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	for cid, cls := range repo.db.classes {
		if cls.SubjectID == id {
			repo.db.deleteClass(cid)
		}
	}
	return nil
}

// Classes

// denormalizeClass refreshes the teacher and subject display names so reads
// reflect the current rows, like the SQL joins do.
func (db *DB) denormalizeClass(cls school.Class) school.Class {
	if teacher, ok := db.users[cls.TeacherID]; ok {
		cls.TeacherName = teacher.FullName()
	}
	if sub, ok := db.subjects[cls.SubjectID]; ok {
		cls.SubjectName = sub.Name
	}
	return cls
}

func (repo SchoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = cls
	return repo.db.denormalizeClass(cls), nil
}

func (repo SchoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return repo.db.denormalizeClass(cls), nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo SchoolRepository) QueryClasses(ctx context.Context, filter *school.ClassFilter, ordering []core.DBOrdering) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		cls = repo.db.denormalizeClass(cls)
		if filter != nil && filter.Search != "" &&
			!matches(filter.Search, cls.Name, cls.AcademicYear, cls.Location, cls.TeacherName, cls.SubjectName) {
			continue
		}
		classes = append(classes, cls)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	orderSlice(classes, ordering, func(i, j int, field string) int {
		a, b := classes[i], classes[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "academic_year":
			return compareStrings(a.AcademicYear, b.AcademicYear)
		case "scheduled_start_time":
			return compareStrings(a.ScheduledStart.String(), b.ScheduledStart.String())
		case "scheduled_end_time":
			return compareStrings(a.ScheduledEnd.String(), b.ScheduledEnd.String())
		case "location":
			return compareStrings(a.Location, b.Location)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return classes, nil
}

func (repo SchoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	repo.db.classes[cls.ID] = cls
	return repo.db.denormalizeClass(cls), nil
}

func (repo SchoolRepository) DeleteClass(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	repo.db.deleteClass(id)
	return nil
}

// deleteClass removes a class and cascades to its enrollments and
// attendance records. Callers must hold the write lock.
func (db *DB) deleteClass(id string) {
	delete(db.classes, id)
	for _, classIDs := range db.enrollments {
		delete(classIDs, id)
	}
	for rid, rec := range db.records {
		if rec.ClassID == id {
			delete(db.records, rid)
		}
	}
}

// Students

// denormalizeStudent attaches the user details and enrolled classes.
// Callers must hold at least the read lock.
func (db *DB) denormalizeStudent(std school.Student) school.Student {
	if usr, ok := db.users[std.UserID]; ok {
		usr.PasswordHash = nil
		std.User = &usr
	}
	std.ClassIDs = []string{}
	std.Classes = nil
	classes := make([]school.Class, 0, len(db.enrollments[std.ID]))
	for cid := range db.enrollments[std.ID] {
		if cls, ok := db.classes[cid]; ok {
			classes = append(classes, db.denormalizeClass(cls))
		}
	}
	orderSlice(classes, []core.DBOrdering{{Field: "created_at", Ascending: true}},
		func(i, j int, field string) int { return compareTimes(classes[i].CreatedAt, classes[j].CreatedAt) })
	for _, cls := range classes {
		std.ClassIDs = append(std.ClassIDs, cls.ID)
		std.Classes = append(std.Classes, cls)
	}
	return std
}

func (repo SchoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.students {
		if existing.UserID == std.UserID {
			return school.Student{}, core.NewConflictError(school.ErrProfileExists)
		}
		if strings.EqualFold(existing.RollNumber, std.RollNumber) {
			return school.Student{}, core.NewConflictError(school.ErrRollNumberTaken)
		}
	}
	if _, ok := repo.db.users[std.UserID]; !ok {
		return school.Student{}, core.NewValidationError(user.ErrNotFound,
			core.FieldError{Field: "user", Error: user.ErrNotFound.Error()})
	}
	std.ID = uuid.New().String()
	repo.db.students[std.ID] = std
	return repo.db.denormalizeStudent(std), nil
}

func (repo SchoolRepository) GetStudent(ctx context.Context, filter school.StudentGetFilter) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if std, ok := repo.db.students[filter.ID]; ok {
			return repo.db.denormalizeStudent(std), nil
		}
	case filter.UserID != "":
		for _, std := range repo.db.students {
			if std.UserID == filter.UserID {
				return repo.db.denormalizeStudent(std), nil
			}
		}
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo SchoolRepository) QueryStudents(ctx context.Context, filter *school.StudentFilter, ordering []core.DBOrdering) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		std = repo.db.denormalizeStudent(std)
		if filter != nil && filter.Search != "" {
			var first, last, email string
			if std.User != nil {
				first, last, email = std.User.FirstName, std.User.LastName, std.User.Email
			}
			if !matches(filter.Search, std.RollNumber, first, last, email) {
				continue
			}
		}
		students = append(students, std)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	orderSlice(students, ordering, func(i, j int, field string) int {
		a, b := students[i], students[j]
		switch field {
		case "roll_number":
			return compareStrings(a.RollNumber, b.RollNumber)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return students, nil
}

func (repo SchoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	for _, existing := range repo.db.students {
		if existing.ID != std.ID && strings.EqualFold(existing.RollNumber, std.RollNumber) {
			return school.Student{}, core.NewConflictError(school.ErrRollNumberTaken)
		}
	}
	stored := std
	stored.User, stored.ClassIDs, stored.Classes = nil, nil, nil
	repo.db.students[std.ID] = stored
	return repo.db.denormalizeStudent(stored), nil
}

func (repo SchoolRepository) DeleteStudent(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return school.ErrStudentNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}

// deleteStudent removes a student and cascades to their enrollments and
// attendance records. Callers must hold the write lock.
func (db *DB) deleteStudent(id string) {
	delete(db.students, id)
	delete(db.enrollments, id)
	for rid, rec := range db.records {
		if rec.StudentID == id {
			delete(db.records, rid)
		}
	}
}

func (repo SchoolRepository) EnrollStudents(ctx context.Context, classID string, studentIDs []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return school.ErrClassNotFound
	}
	for _, id := range studentIDs {
		if _, ok := repo.db.students[id]; !ok {
			return school.ErrStudentNotFound
		}
	}
	for _, id := range studentIDs {
		if repo.db.enrollments[id] == nil {
			repo.db.enrollments[id] = make(map[string]bool)
		}
		repo.db.enrollments[id][classID] = true
	}
	return nil
}
