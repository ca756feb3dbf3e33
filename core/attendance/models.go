package attendance

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Statuses
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
	StatusLate    = "Late"
	StatusExcused = "Excused"
)

// Check-in methods
const (
	CheckinQRStatic = "QR_STATIC"
	CheckinManual   = "MANUAL"
)

type Record struct {
	ID             string         `json:"id"`
	Date           core.Date      `json:"attendance_date"`
	Time           core.ClockTime `json:"attendance_time"`
	Status         string         `json:"status"`
	Notes          string         `json:"notes"`
	CheckinMethod  string         `json:"checkin_method"`
	StudentID      string         `json:"student"`
	StudentName    string         `json:"student_name"`
	ClassID        string         `json:"class_obj"`
	ClassName      string         `json:"class_name"`
	RecordedByID   string         `json:"recorded_by"`
	RecordedByName string         `json:"recorded_by_name"`
	CreatedAt      time.Time      `json:"created_at"` // UTC
	UpdatedAt      time.Time      `json:"updated_at"` // UTC
}

type NewRecord struct {
	StudentID     string         `json:"student" validate:"required,uuid4"`
	ClassID       string         `json:"class_obj" validate:"required,uuid4"`
	Date          core.Date      `json:"attendance_date" validate:"required"`
	Time          core.ClockTime `json:"attendance_time" validate:"required"`
	Status        string         `json:"status" validate:"required,oneof=Present Absent Late Excused"`
	CheckinMethod string         `json:"checkin_method" validate:"required,oneof=QR_STATIC MANUAL"`
	Notes         string         `json:"notes"`
}

func (nr *NewRecord) Validate() error {
	nr.Notes = core.CleanString(nr.Notes)
	return core.Validate.Struct(nr)
}

// UpdateRecord keeps empty fields as-is. The (student, class, date) slot is
// fixed at creation; only the observation itself is mutable.
type UpdateRecord struct {
	Time          *core.ClockTime `json:"attendance_time"`
	Status        string          `json:"status" validate:"omitempty,oneof=Present Absent Late Excused"`
	CheckinMethod string          `json:"checkin_method" validate:"omitempty,oneof=QR_STATIC MANUAL"`
	Notes         *string         `json:"notes"`
}

func (ur UpdateRecord) Validate() error { return core.Validate.Struct(ur) }

type QueryFilter struct {
	// Search matches the student's roll number and names, and the class name.
	Search string `query:"search"`
}
