package calendar

import (
	"fmt"
	"strings"
)

// lunarEpoch is Gregorian 1900-01-31, the first day of lunar year 1900.
var lunarEpoch = NewCivilDate(1900, 1, 31)

// LunarDate is a date in the traditional lunisolar calendar.
type LunarDate struct {
	Year   int  `json:"year"`
	Month  int  `json:"month"`
	Day    int  `json:"day"`
	IsLeap bool `json:"is_leap"`
}

// SolarToLunar converts a Gregorian date to its lunisolar date.
//
// The conversion counts days from the 1900-01-31 epoch and walks the
// lunar table forward: first whole years, then months of the final year
// with the leap month inserted right after its ordinal month. The walk is
// linear; there are at most 201 years and 13 months to step through.
func SolarToLunar(date CivilDateTime) (LunarDate, error) {
	const op = "SolarToLunar"

	if err := date.Validate(); err != nil {
		return LunarDate{}, err
	}

	offset := date.DaysSince(lunarEpoch)
	if offset < 0 {
		return LunarDate{}, outOfRange(op, "%s is before the 1900-01-31 epoch", date.Date())
	}

	year := MinLunarYear
	for ; year <= MaxLunarYear; year++ {
		days := yearLength(year)
		if offset < days {
			break
		}
		offset -= days
	}
	if year > MaxLunarYear {
		return LunarDate{}, outOfRange(op, "%s is after lunar year %d", date.Date(), MaxLunarYear)
	}

	leap := leapMonth(year)
	for month := 1; month <= 12; month++ {
		days := monthLength(year, month, false)
		if offset < days {
			return LunarDate{Year: year, Month: month, Day: offset + 1}, nil
		}
		offset -= days

		if month == leap {
			days = monthLength(year, month, true)
			if offset < days {
				return LunarDate{Year: year, Month: month, Day: offset + 1, IsLeap: true}, nil
			}
			offset -= days
		}
	}

	// yearLength and the month walk sum the same table entries.
	return LunarDate{}, outOfRange(op, "month walk overran lunar year %d", year)
}

// LunarToSolar converts a lunisolar date back to the Gregorian calendar.
func LunarToSolar(l LunarDate) (CivilDateTime, error) {
	offset, err := l.DayOfYear()
	if err != nil {
		return CivilDateTime{}, err
	}
	newYear, err := LunarNewYear(l.Year)
	if err != nil {
		return CivilDateTime{}, err
	}
	return newYear.AddDays(offset), nil
}

// LunarNewYear returns the Gregorian date of the first day of the lunar year.
func LunarNewYear(year int) (CivilDateTime, error) {
	if err := checkLunarYear("LunarNewYear", year); err != nil {
		return CivilDateTime{}, err
	}
	offset := 0
	for y := MinLunarYear; y < year; y++ {
		offset += yearLength(y)
	}
	return lunarEpoch.AddDays(offset), nil
}

// DayOfYear returns the number of days between the lunar new year and l;
// the first day of the year is 0.
func (l LunarDate) DayOfYear() (int, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}

	offset := 0
	leap := leapMonth(l.Year)
	for month := 1; month < l.Month; month++ {
		offset += monthLength(l.Year, month, false)
		if month == leap {
			offset += monthLength(l.Year, month, true)
		}
	}
	if l.IsLeap {
		offset += monthLength(l.Year, l.Month, false)
	}
	return offset + l.Day - 1, nil
}

// Validate checks l against the lunar table.
func (l LunarDate) Validate() error {
	days, err := MonthLength(l.Year, l.Month, l.IsLeap)
	if err != nil {
		return err
	}
	if l.Day < 1 || l.Day > days {
		return outOfRange("LunarDate.Validate", "day %d not in 1-%d", l.Day, days)
	}
	return nil
}

// Animal returns the zodiac animal of the lunar year.
func (l LunarDate) Animal() string {
	return Branch(l.Year - 1900).Animal()
}

var (
	chineseDigits     = []rune("〇一二三四五六七八九")
	lunarMonthNames   = [...]string{"正", "二", "三", "四", "五", "六", "七", "八", "九", "十", "冬", "腊"}
	lunarDayTens      = [...]string{"初", "十", "廿", "三"}
	lunarDayUnitNames = [...]string{"十", "一", "二", "三", "四", "五", "六", "七", "八", "九"}
)

// YearInChinese writes the year digit by digit, e.g. "二〇二五".
func (l LunarDate) YearInChinese() string {
	var b strings.Builder
	for _, r := range fmt.Sprint(l.Year) {
		b.WriteRune(chineseDigits[r-'0'])
	}
	return b.String()
}

// MonthInChinese returns the traditional month name, e.g. "正" or "闰六".
func (l LunarDate) MonthInChinese() string {
	name := lunarMonthNames[mod(l.Month-1, 12)]
	if l.IsLeap {
		return "闰" + name
	}
	return name
}

// DayInChinese returns the traditional day name, e.g. "初一", "廿八".
func (l LunarDate) DayInChinese() string {
	switch l.Day {
	case 10:
		return "初十"
	case 20:
		return "二十"
	case 30:
		return "三十"
	}
	return lunarDayTens[l.Day/10] + lunarDayUnitNames[l.Day%10]
}

// String renders the lunar date, e.g. "二〇二五年正月廿八".
func (l LunarDate) String() string {
	return l.YearInChinese() + "年" + l.MonthInChinese() + "月" + l.DayInChinese()
}
