package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	orderingParam       = "ordering"
	errUnknownOrderings = errors.New("unknown ordering fields")
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the `ordering` query param (comma-separated fields, each
// optionally prefixed with "-" for descending) and maps the exposed field
// names to store columns via the given whitelist. Unknown fields are
// rejected so arbitrary column expressions never reach the store.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) error {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return nil
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return nil
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		column, ok := allowed[field]
		if !ok {
			return core.NewValidationError(errUnknownOrderings,
				core.FieldError{Field: orderingParam, Error: "unknown ordering field: " + field})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: column, Ascending: !descending})
	}
	return nil
}

// Per-resource ordering whitelists: exposed field name -> store column.
var (
	userOrderingFields = map[string]string{
		"username":   "username",
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
		"role":       "role",
		"created_at": "created_at",
	}
	subjectOrderingFields = map[string]string{
		"name": "name",
		"id":   "id",
	}
	classOrderingFields = map[string]string{
		"name":                 "c.name",
		"academic_year":        "c.academic_year",
		"scheduled_start_time": "c.scheduled_start_time",
		"scheduled_end_time":   "c.scheduled_end_time",
		"location":             "c.location",
		"created_at":           "c.created_at",
	}
	studentOrderingFields = map[string]string{
		"roll_number": "st.roll_number",
		"created_at":  "st.created_at",
	}
	attendanceOrderingFields = map[string]string{
		"attendance_date": "a.attendance_date",
		"attendance_time": "a.attendance_time",
		"status":          "a.status",
		"created_at":      "a.created_at",
	}
	announcementOrderingFields = map[string]string{
		"title":      "a.title",
		"type":       "a.type",
		"audience":   "a.audience",
		"created_at": "a.created_at",
	}
)
