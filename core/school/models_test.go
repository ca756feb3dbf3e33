package school

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestParseDaysOfWeek(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    DaysOfWeek
		wantErr bool
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "Monday", want: DaysOfWeek{"Monday"}},
		{name: "lenient case and spacing", in: " monday ,WEDNESDAY", want: DaysOfWeek{"Monday", "Wednesday"}},
		{name: "reordered and deduped", in: "Friday,Monday,friday", want: DaysOfWeek{"Monday", "Friday"}},
		{name: "stray commas", in: ",Tuesday,,", want: DaysOfWeek{"Tuesday"}},
		{name: "unknown day", in: "Monday,Someday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDaysOfWeek(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaysOfWeek_JSON(t *testing.T) {
	data, err := json.Marshal(DaysOfWeek{"Monday", "Wednesday"})
	assert.NoError(t, err)
	assert.Equal(t, `"Monday,Wednesday"`, string(data))

	var days DaysOfWeek
	assert.NoError(t, json.Unmarshal([]byte(`"wednesday, monday"`), &days))
	assert.Equal(t, DaysOfWeek{"Monday", "Wednesday"}, days)

	assert.Error(t, json.Unmarshal([]byte(`["Monday"]`), &days))
}

func TestNewClass_Validate(t *testing.T) {
	teacherID := "1b4e28ba-2fa1-41d2-883f-84a9d2a0a51d"
	subjectID := "9e107d9d-372b-4f62-9d1a-2d8a6e5b3f10"

	nc := NewClass{
		Name:           "  M1  ",
		AcademicYear:   "2024",
		ScheduledStart: core.NewClockTime(8, 0, 0),
		ScheduledEnd:   core.NewClockTime(9, 30, 0),
		TeacherID:      teacherID,
		SubjectID:      subjectID,
	}
	assert.NoError(t, nc.Validate())
	assert.Equal(t, "M1", nc.Name)

	// end before start
	nc.ScheduledEnd = core.NewClockTime(7, 0, 0)
	err := nc.Validate()
	var vErr *core.ValidationError
	if assert.True(t, errors.As(err, &vErr), "want a validation error, got %v", err) {
		assert.Equal(t, "scheduled_end_time", vErr.Fields[0].Field)
	}

	// equal times fail too
	nc.ScheduledEnd = nc.ScheduledStart
	assert.Error(t, nc.Validate())

	// missing references
	nc.ScheduledEnd = core.NewClockTime(9, 30, 0)
	nc.TeacherID = ""
	assert.Error(t, nc.Validate())
}

func TestUpdateClass_Apply(t *testing.T) {
	orig := Class{
		Name:           "M1",
		AcademicYear:   "2024",
		ScheduledStart: core.NewClockTime(8, 0, 0),
		ScheduledEnd:   core.NewClockTime(9, 30, 0),
		Location:       "Room 1",
	}

	loc := "  Room 2 "
	cls, err := (&UpdateClass{Location: &loc}).Apply(orig)
	assert.NoError(t, err)
	assert.Equal(t, "Room 2", cls.Location)
	assert.Equal(t, orig.Name, cls.Name)

	// a partial update cannot break the schedule order
	start := core.NewClockTime(10, 0, 0)
	_, err = (&UpdateClass{ScheduledStart: &start}).Apply(orig)
	assert.Error(t, err)
}
