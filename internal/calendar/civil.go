package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ChinaStandardTime is the single civil time convention used throughout
// the package (UTC+8, no daylight saving).
var ChinaStandardTime = time.FixedZone("CST", 8*60*60)

// Date layouts accepted by the parse helpers.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// CivilDateTime is a Gregorian date with an optional wall-clock time in
// China Standard Time.
type CivilDateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int

	// HasTime is false when only the date is known; Hour and Minute are
	// then ignored.
	HasTime bool
}

// NewCivilDate returns a date without a time of day.
func NewCivilDate(year, month, day int) CivilDateTime {
	return CivilDateTime{Year: year, Month: month, Day: day}
}

// NewCivilDateTime returns a date with a time of day.
func NewCivilDateTime(year, month, day, hour, minute int) CivilDateTime {
	return CivilDateTime{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, HasTime: true}
}

// FromTime converts t to China Standard Time and keeps its wall clock.
func FromTime(t time.Time) CivilDateTime {
	t = t.In(ChinaStandardTime)
	return NewCivilDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// ParseCivil parses a YYYY-MM-DD date and an optional HH:MM time.
// An empty clock string yields a date without time.
func ParseCivil(date, clock string) (CivilDateTime, error) {
	d, err := ParseDateString(date)
	if err != nil {
		return CivilDateTime{}, invalidDate("ParseCivil", "date %q: use YYYY-MM-DD", date)
	}
	c := NewCivilDate(d.Year(), int(d.Month()), d.Day())

	clock = strings.TrimSpace(clock)
	if clock == "" {
		return c, nil
	}
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return CivilDateTime{}, invalidDate("ParseCivil", "time %q: use HH:MM", clock)
	}
	c.Hour, c.Minute, c.HasTime = t.Hour(), t.Minute(), true
	return c, nil
}

// ParseDateString parses a date string in YYYY-MM-DD format.
func ParseDateString(dateStr string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(dateStr), ChinaStandardTime)
}

// FormatDate formats a date as YYYY-MM-DD
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// Validate checks that the fields name a real Gregorian date and time.
func (c CivilDateTime) Validate() error {
	if c.Month < 1 || c.Month > 12 {
		return invalidDate("Validate", "month %d not in 1-12", c.Month)
	}
	if c.Day < 1 || c.Day > daysInMonth(c.Year, c.Month) {
		return invalidDate("Validate", "day %d not in month %04d-%02d", c.Day, c.Year, c.Month)
	}
	if c.HasTime {
		if c.Hour < 0 || c.Hour > 23 {
			return invalidDate("Validate", "hour %d not in 0-23", c.Hour)
		}
		if c.Minute < 0 || c.Minute > 59 {
			return invalidDate("Validate", "minute %d not in 0-59", c.Minute)
		}
	}
	return nil
}

// Date returns the date part without time.
func (c CivilDateTime) Date() CivilDateTime {
	return NewCivilDate(c.Year, c.Month, c.Day)
}

// AddDays returns the civil date n days later, keeping the time of day.
func (c CivilDateTime) AddDays(n int) CivilDateTime {
	y, m, d := fromJulianDayNumber(c.julianDayNumber() + n)
	c.Year, c.Month, c.Day = y, m, d
	return c
}

// Before reports whether c's day comes strictly before other's day.
func (c CivilDateTime) Before(other CivilDateTime) bool {
	return c.julianDayNumber() < other.julianDayNumber()
}

// DaysSince returns the whole days from other's day to c's day.
func (c CivilDateTime) DaysSince(other CivilDateTime) int {
	return c.julianDayNumber() - other.julianDayNumber()
}

// Time returns the instant in China Standard Time.
func (c CivilDateTime) Time() time.Time {
	return time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, 0, 0, ChinaStandardTime)
}

// String formats the value as "2006-01-02" or "2006-01-02 15:04".
func (c CivilDateTime) String() string {
	s := fmt.Sprintf("%04d-%02d-%02d", c.Year, c.Month, c.Day)
	if c.HasTime {
		s += fmt.Sprintf(" %02d:%02d", c.Hour, c.Minute)
	}
	return s
}

// julianDayNumber returns the integer Julian Day Number of the date.
// Pure integer arithmetic, so no time zone or DST can shift the count.
func (c CivilDateTime) julianDayNumber() int {
	a := (14 - c.Month) / 12
	y := c.Year + 4800 - a
	m := c.Month + 12*a - 3
	return c.Day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

func fromJulianDayNumber(jdn int) (year, month, day int) {
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153

	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return year, month, day
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(year, month int) int {
	switch month {
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
