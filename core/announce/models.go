package announce

import (
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Types
const (
	TypeGeneral = "General"
	TypeUrgent  = "Urgent"
	TypeEvent   = "Event"
	TypeHoliday = "Holiday"
)

// Audiences
const (
	AudienceAll      = "All"
	AudienceStudents = "Students"
	AudienceTeachers = "Teachers"
	AudienceParents  = "Parents"
)

type Announcement struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Type          string    `json:"type"`
	Audience      string    `json:"audience"`
	CreatedByID   string    `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// VisibleTo reports whether the announcement's declared audience includes
// the given role. Administrators and Teachers see everything.
func (a Announcement) VisibleTo(role string) bool {
	return len(AudiencesFor(role)) == 0 || contains(AudiencesFor(role), a.Audience)
}

// AudiencesFor returns the audiences a role may see; nil means unrestricted.
func AudiencesFor(role string) []string {
	switch role {
	case user.RoleStudent:
		return []string{AudienceAll, AudienceStudents}
	case user.RoleParent:
		return []string{AudienceAll, AudienceParents}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

type NewAnnouncement struct {
	Title    string `json:"title" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=General Urgent Event Holiday"`
	Audience string `json:"audience" validate:"required,oneof=All Students Teachers Parents"`
}

func (na *NewAnnouncement) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Message = core.CleanString(na.Message)
	return core.Validate.Struct(na)
}

// UpdateAnnouncement keeps empty fields as-is.
type UpdateAnnouncement struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Type     string `json:"type" validate:"omitempty,oneof=General Urgent Event Holiday"`
	Audience string `json:"audience" validate:"omitempty,oneof=All Students Teachers Parents"`
}

func (ua UpdateAnnouncement) Validate() error { return core.Validate.Struct(ua) }

type QueryFilter struct {
	// Search matches title, message, type and audience.
	Search string `query:"search"`
	// Audiences restricts results to the given audiences; nil means all.
	// It is derived from the caller's role, never from client input.
	Audiences []string `query:"-"`
}
