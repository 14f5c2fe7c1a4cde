package core

import "time"

// Date is a calendar day with the time zeroed, UTC. It wraps time.Time so
// callers can do arithmetic directly, and serializes as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(`"`+dateLayout+`"`, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// PeriodKey returns the "YYYY-MM" key for the date's month.
func PeriodKey(d Date) string {
	return d.Format("2006-01")
}

// MonthEnd returns the last calendar day of the date's month.
func MonthEnd(d Date) Date {
	firstOfNext := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Date{Time: firstOfNext.AddDate(0, 0, -1)}
}

// MondayOf rewinds the date to the Monday of its ISO week. Sunday counts as
// day 7 of the previous week.
func MondayOf(d Date) Date {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return d.AddDays(-(wd - 1))
}

// WeekSpan is one slice of a month partition.
type WeekSpan struct {
	Index int
	Start Date
	End   Date
}

// PartitionWeeks splits [monthStart, monthEnd] into Monday-starting weeks
// clipped to the month's range. The result is a full, gap-free,
// non-overlapping cover: the first span starts at monthStart and the last
// one ends at monthEnd. Indices are 1-based and sequential.
func PartitionWeeks(monthStart, monthEnd Date) []WeekSpan {
	var spans []WeekSpan
	cursor := MondayOf(monthStart)
	for i := 1; !cursor.After(monthEnd); i++ {
		start := cursor
		if start.Before(monthStart) {
			start = monthStart
		}
		end := cursor.AddDays(6)
		if end.After(monthEnd) {
			end = monthEnd
		}
		spans = append(spans, WeekSpan{Index: i, Start: start, End: end})
		cursor = cursor.AddDays(7)
	}
	return spans
}
