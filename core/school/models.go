package school

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// CanonicalDays lists day names in declaration order, Monday first.
var CanonicalDays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// DaysOfWeek is a subset of CanonicalDays. It is carried on the wire and in
// the store as a comma-joined string of canonical day names.
type DaysOfWeek []string

// ParseDaysOfWeek parses a comma-joined day list leniently: surrounding
// whitespace is trimmed and matching is case-insensitive. Unknown day names
// fail; the result is de-duplicated and ordered Monday..Sunday.
func ParseDaysOfWeek(s string) (DaysOfWeek, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[string]bool, 7)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var matched string
		for _, day := range CanonicalDays {
			if strings.EqualFold(part, day) {
				matched = day
				break
			}
		}
		if matched == "" {
			return nil, errors.Errorf("unknown day name %q", part)
		}
		seen[matched] = true
	}
	days := make(DaysOfWeek, 0, len(seen))
	for _, day := range CanonicalDays {
		if seen[day] {
			days = append(days, day)
		}
	}
	return days, nil
}

func (d DaysOfWeek) String() string { return strings.Join(d, ",") }

func (d DaysOfWeek) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DaysOfWeek) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("days_of_week must be a comma-joined string")
	}
	parsed, err := ParseDaysOfWeek(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DaysOfWeek) Value() (driver.Value, error) { return d.String(), nil }

func (d *DaysOfWeek) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*d = nil
		return nil
	default:
		return errors.Errorf("cannot scan %T into DaysOfWeek", src)
	}
	parsed, err := ParseDaysOfWeek(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Class struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	AcademicYear   string         `json:"academic_year"`
	ScheduledStart core.ClockTime `json:"scheduled_start_time"`
	ScheduledEnd   core.ClockTime `json:"scheduled_end_time"`
	DaysOfWeek     DaysOfWeek     `json:"days_of_week"`
	Location       string         `json:"location"`
	TeacherID      string         `json:"teacher"`
	TeacherName    string         `json:"teacher_name"`
	SubjectID      string         `json:"subject"`
	SubjectName    string         `json:"subject_name"`
	CreatedAt      time.Time      `json:"created_at"` // UTC
	UpdatedAt      time.Time      `json:"updated_at"` // UTC
}

// Student is the one-to-one companion of a Student-role person carrying the
// roll number and enrollment set.
type Student struct {
	ID         string     `json:"id"`
	RollNumber string     `json:"roll_number"`
	UserID     string     `json:"user"`
	User       *user.User `json:"user_details,omitempty"`
	ClassIDs   []string   `json:"classes"`
	Classes    []Class    `json:"classes_details,omitempty"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// Request payloads

type NewSubject struct {
	Name string `json:"name" validate:"required"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

type NewClass struct {
	Name           string         `json:"name" validate:"required"`
	AcademicYear   string         `json:"academic_year" validate:"required"`
	ScheduledStart core.ClockTime `json:"scheduled_start_time" validate:"required"`
	ScheduledEnd   core.ClockTime `json:"scheduled_end_time" validate:"required"`
	DaysOfWeek     DaysOfWeek     `json:"days_of_week"`
	Location       string         `json:"location"`
	TeacherID      string         `json:"teacher" validate:"required,uuid4"`
	SubjectID      string         `json:"subject" validate:"required,uuid4"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.Location = core.CleanString(nc.Location)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if !nc.ScheduledStart.Before(nc.ScheduledEnd) {
		return core.NewValidationError(errScheduleOrder,
			core.FieldError{Field: "scheduled_end_time", Error: errScheduleOrder.Error()})
	}
	return nil
}

// UpdateClass keeps empty fields as-is.
type UpdateClass struct {
	Name           string          `json:"name"`
	AcademicYear   string          `json:"academic_year"`
	ScheduledStart *core.ClockTime `json:"scheduled_start_time"`
	ScheduledEnd   *core.ClockTime `json:"scheduled_end_time"`
	DaysOfWeek     *DaysOfWeek     `json:"days_of_week"`
	Location       *string         `json:"location"`
	TeacherID      string          `json:"teacher" validate:"omitempty,uuid4"`
	SubjectID      string          `json:"subject" validate:"omitempty,uuid4"`
}

// Apply overlays uc onto orig and validates the result.
func (uc *UpdateClass) Apply(orig Class) (Class, error) {
	if err := core.Validate.Struct(uc); err != nil {
		return Class{}, err
	}

	cls := orig
	if name := core.CleanString(uc.Name); name != "" {
		cls.Name = name
	}
	if year := core.CleanString(uc.AcademicYear); year != "" {
		cls.AcademicYear = year
	}
	if uc.ScheduledStart != nil {
		cls.ScheduledStart = *uc.ScheduledStart
	}
	if uc.ScheduledEnd != nil {
		cls.ScheduledEnd = *uc.ScheduledEnd
	}
	if uc.DaysOfWeek != nil {
		cls.DaysOfWeek = *uc.DaysOfWeek
	}
	if uc.Location != nil {
		cls.Location = core.CleanString(*uc.Location)
	}
	if uc.TeacherID != "" {
		cls.TeacherID = uc.TeacherID
	}
	if uc.SubjectID != "" {
		cls.SubjectID = uc.SubjectID
	}

	if !cls.ScheduledStart.Before(cls.ScheduledEnd) {
		return Class{}, core.NewValidationError(errScheduleOrder,
			core.FieldError{Field: "scheduled_end_time", Error: errScheduleOrder.Error()})
	}
	return cls, nil
}

type NewStudent struct {
	RollNumber string `json:"roll_number" validate:"required"`
	UserID     string `json:"user" validate:"required,uuid4"`
}

func (ns *NewStudent) Validate() error {
	ns.RollNumber = core.CleanString(ns.RollNumber)
	return core.Validate.Struct(ns)
}

type UpdateStudent struct {
	RollNumber string `json:"roll_number"`
}

type EnrollStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,uuid4"`
}

func (es EnrollStudents) Validate() error { return core.Validate.Struct(es) }

// Query filters

type SubjectFilter struct {
	Search string `query:"search"`
}

type ClassFilter struct {
	// Search does a case-insensitive substring match on class name, academic
	// year, location, teacher first/last name and subject name.
	Search string `query:"search"`
}

type StudentFilter struct {
	// Search matches roll number and the linked user's names and email.
	Search string `query:"search"`
}
