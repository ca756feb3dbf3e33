package core

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
)

const (
	dateFormat      = "2006-01-02"
	clockTimeFormat = "15:04:05"
)

// Date is a calendar date carried on the wire as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return Date{}, errors.Wrap(err, "parsing date")
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateFormat) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("invalid date")
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v.UTC()
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return errors.Errorf("cannot scan %T into Date", src)
}

// ClockTime is a time of day carried on the wire as "HH:MM:SS".
type ClockTime struct {
	time.Time
}

func NewClockTime(hour, min, sec int) ClockTime {
	return ClockTime{time.Date(0, time.January, 1, hour, min, sec, 0, time.UTC)}
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(clockTimeFormat, s)
	if err != nil {
		return ClockTime{}, errors.Wrap(err, "parsing time of day")
	}
	return ClockTime{t}, nil
}

func (ct ClockTime) String() string { return ct.Format(clockTimeFormat) }

// Before reports whether ct is earlier in the day than other.
func (ct ClockTime) Before(other ClockTime) bool {
	return ct.String() < other.String()
}

func (ct ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ct.String() + `"`), nil
}

func (ct *ClockTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("invalid time of day")
	}
	parsed, err := ParseClockTime(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*ct = parsed
	return nil
}

func (ct ClockTime) Value() (driver.Value, error) {
	return ct.String(), nil
}

func (ct *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*ct = NewClockTime(v.Hour(), v.Minute(), v.Second())
		return nil
	case []byte:
		parsed, err := ParseClockTime(string(v))
		if err != nil {
			return err
		}
		*ct = parsed
		return nil
	case string:
		parsed, err := ParseClockTime(v)
		if err != nil {
			return err
		}
		*ct = parsed
		return nil
	}
	return errors.Errorf("cannot scan %T into ClockTime", src)
}
