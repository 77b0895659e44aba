package calendar

import (
	"fmt"
	"strings"
)

// ZiHourRule selects how the late Zi hour (23:00-23:59) is attributed.
type ZiHourRule string

const (
	// LateZiKeepsDay keeps the day pillar on the civil day and takes the
	// hour stem from the following day's stem.
	LateZiKeepsDay ZiHourRule = "keep"

	// LateZiAdvancesDay moves the day pillar itself to the following day
	// from 23:00 on.
	LateZiAdvancesDay ZiHourRule = "advance"
)

// ParseZiHourRule accepts "keep" or "advance"; empty selects the default.
func ParseZiHourRule(s string) (ZiHourRule, error) {
	switch ZiHourRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", LateZiKeepsDay:
		return LateZiKeepsDay, nil
	case LateZiAdvancesDay:
		return LateZiAdvancesDay, nil
	default:
		return "", invalidDate("ParseZiHourRule", "unknown zi hour rule %q (want keep or advance)", s)
	}
}

// lateZiHour is the first civil hour that already belongs to the next
// day's Zi hour.
const lateZiHour = 23

// Starting stem of the Tiger month, by year stem mod 5
// (甲己 → 丙寅, 乙庚 → 戊寅, 丙辛 → 庚寅, 丁壬 → 壬寅, 戊癸 → 甲寅).
var tigerMonthStem = [5]int{2, 4, 6, 8, 0}

// Starting stem of the Rat hour, by day stem mod 5
// (甲己 → 甲子, 乙庚 → 丙子, 丙辛 → 戊子, 丁壬 → 庚子, 戊癸 → 壬子).
var ratHourStem = [5]int{0, 2, 4, 6, 8}

// Offsets that anchor the year and day pillars to the epoch: lunar 1900 is
// 庚子 (index 36) and 1900-01-31 is 甲辰 (index 40).
const (
	yearCycleOffset = 36
	dayCycleOffset  = 40
)

// PillarSet is the full result of one query. It is a value: nothing in it
// refers back to the engine.
type PillarSet struct {
	Date CivilDateTime `json:"-"`

	Year  GanZhi  `json:"year"`
	Month GanZhi  `json:"month"`
	Day   GanZhi  `json:"day"`
	Hour  *GanZhi `json:"hour,omitempty"`

	HourRange string `json:"hour_range,omitempty"`

	Lunar        LunarDate `json:"lunar"`
	LunarDisplay string    `json:"lunar_date"`
	Animal       string    `json:"zodiac"`

	Term     SolarTerm  `json:"solar_term"`
	MonthJie JieBracket `json:"month_jie"`

	ZiRule ZiHourRule `json:"zi_rule"`

	// Degraded is set when any solar term used is a mean estimate.
	Degraded bool `json:"degraded,omitempty"`
}

// String renders the pillars as "辛未年 丙申月 庚辰日 癸未时"; the hour field
// is omitted when no hour was computed.
func (p PillarSet) String() string {
	parts := []string{p.Year.String() + "年", p.Month.String() + "月", p.Day.String() + "日"}
	if p.Hour != nil {
		parts = append(parts, p.Hour.String()+"时")
	}
	return strings.Join(parts, " ")
}

// Engine composes the converter, term calculator, and cycle arithmetic.
// The zero value is not ready; use NewEngine. An Engine holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	ziRule ZiHourRule
}

// Option configures an Engine.
type Option func(*Engine)

// WithZiHourRule selects the late Zi hour convention.
func WithZiHourRule(rule ZiHourRule) Option {
	return func(e *Engine) {
		if rule != "" {
			e.ziRule = rule
		}
	}
}

// NewEngine returns an engine using LateZiKeepsDay unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{ziRule: LateZiKeepsDay}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ZiRule returns the engine's late Zi hour convention.
func (e *Engine) ZiRule() ZiHourRule {
	return e.ziRule
}

// Compute returns the pillars for a civil date. The hour pillar is filled
// only when wantHour is set and date carries a time of day.
func (e *Engine) Compute(date CivilDateTime, wantHour bool) (PillarSet, error) {
	lunar, err := SolarToLunar(date)
	if err != nil {
		return PillarSet{}, err
	}

	jie, err := MonthBoundaries(date)
	if err != nil {
		return PillarSet{}, err
	}
	term, err := CurrentTerm(date)
	if err != nil {
		return PillarSet{}, err
	}

	year := YearPillar(lunar.Year)
	p := PillarSet{
		Date:         date,
		Year:         year,
		Month:        MonthPillar(year.Stem, jie.Position),
		Day:          DayPillar(date),
		Lunar:        lunar,
		LunarDisplay: lunar.String(),
		Animal:       lunar.Animal(),
		Term:         term,
		MonthJie:     jie,
		ZiRule:       e.ziRule,
		Degraded:     jie.Approximate() || term.Approximate,
	}

	lateZi := date.HasTime && date.Hour >= lateZiHour
	if lateZi && e.ziRule == LateZiAdvancesDay {
		p.Day = DayPillar(date.AddDays(1))
	}

	if wantHour && date.HasTime {
		hourStemDay := p.Day
		if lateZi && e.ziRule == LateZiKeepsDay {
			hourStemDay = DayPillar(date.AddDays(1))
		}
		hour := HourPillar(hourStemDay.Stem, date.Hour)
		p.Hour = &hour
		p.HourRange = hour.Branch.HourRange()
	}

	return p, nil
}

// HourSlot is one double hour within a civil day.
type HourSlot struct {
	Pillar GanZhi `json:"pillar"`
	Range  string `json:"range"`
}

// DayHours lists the thirteen hour pillars of a civil day: the early Zi
// hour (00:00-00:59), the eleven double hours from 丑 to 亥, and the late
// Zi hour (23:00-23:59), whose stem follows the next day.
func (e *Engine) DayHours(date CivilDateTime) ([]HourSlot, error) {
	if _, err := SolarToLunar(date); err != nil {
		return nil, err
	}

	dayStem := DayPillar(date).Stem
	slots := make([]HourSlot, 0, NumBranches+1)

	slots = append(slots, HourSlot{Pillar: HourPillar(dayStem, 0), Range: "00:00-00:59"})
	for b := 1; b < NumBranches; b++ {
		slots = append(slots, HourSlot{
			Pillar: HourPillar(dayStem, 2*b),
			Range:  Branch(b).HourRange(),
		})
	}

	nextStem := DayPillar(date.AddDays(1)).Stem
	slots = append(slots, HourSlot{Pillar: HourPillar(nextStem, lateZiHour), Range: "23:00-23:59"})

	return slots, nil
}

// YearPillar returns the pillar of a lunar year. The stems-and-branches
// year turns with the lunar new year, not on January 1st.
func YearPillar(lunarYear int) GanZhi {
	return Sexagenary(lunarYear - 1900 + yearCycleOffset)
}

// MonthPillar returns the month pillar given the year stem and the month's
// position counted from the Tiger month (寅 = 0).
func MonthPillar(yearStem Stem, position int) GanZhi {
	start := tigerMonthStem[mod(int(yearStem), 5)]
	return GanZhi{
		Stem:   Stem(mod(start+position, NumStems)),
		Branch: Branch(mod(position+2, NumBranches)),
	}
}

// DayPillar returns the pillar of a civil day. It depends only on the day
// count from 1900-01-31 and not on the lunar tables.
func DayPillar(date CivilDateTime) GanZhi {
	return Sexagenary(date.DaysSince(lunarEpoch) + dayCycleOffset)
}

// HourBranch maps a civil hour to its double-hour branch; 23:00-00:59 is 子.
func HourBranch(hour int) Branch {
	return Branch(mod((hour+1)/2, NumBranches))
}

// HourPillar returns the hour pillar from the governing day stem and the
// civil hour.
func HourPillar(dayStem Stem, hour int) GanZhi {
	branch := HourBranch(hour)
	start := ratHourStem[mod(int(dayStem), 5)]
	return GanZhi{
		Stem:   Stem(mod(start+int(branch), NumStems)),
		Branch: branch,
	}
}

// FullString is a convenience for log lines and CLI output.
func (p PillarSet) FullString() string {
	return fmt.Sprintf("%s (%s, %s年)", p.String(), p.LunarDisplay, p.Animal)
}
