package todo

import (
	"fmt"
	"time"
)

// TimeOfDay is a same-day reminder time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the 24-hour HH:MM form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return TimeOfDay{}, fmt.Errorf("%w: time %q is not HH:MM", ErrValidation, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// OfTime returns the time of day of t in t's location.
func OfTime(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

func (d TimeOfDay) Valid() bool {
	return d.Hour >= 0 && d.Hour < 24 && d.Minute >= 0 && d.Minute < 60
}

func (d TimeOfDay) minutes() int { return d.Hour*60 + d.Minute }

func (d TimeOfDay) Before(o TimeOfDay) bool { return d.minutes() < o.minutes() }

// On places d on the calendar day of day, in loc.
func (d TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	day = day.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), d.Hour, d.Minute, 0, 0, loc)
}

func (d TimeOfDay) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: time %d:%d", ErrValidation, d.Hour, d.Minute)
	}
	return []byte(d.String()), nil
}

func (d *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
