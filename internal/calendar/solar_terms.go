package calendar

import (
	"time"
)

// Solar term indices, in calendar order starting from 小寒 (Minor Cold).
// Even indices are the twelve Jie (节) that open a GanZhi month; odd
// indices are the Qi (气) that fall mid-month.
const (
	MinorCold = iota
	MajorCold
	SpringBegins
	RainWater
	AwakenInsects
	SpringEquinox
	ClearAndBright
	GrainRain
	SummerBegins
	GrainBuds
	GrainInEar
	SummerSolstice
	MinorHeat
	MajorHeat
	AutumnBegins
	EndOfHeat
	WhiteDew
	AutumnEquinox
	ColdDew
	FrostDescends
	WinterBegins
	MinorSnow
	MajorSnow
	WinterSolstice

	NumSolarTerms = 24
)

var termNames = [NumSolarTerms]string{
	"小寒", "大寒", "立春", "雨水", "惊蛰", "春分",
	"清明", "谷雨", "立夏", "小满", "芒种", "夏至",
	"小暑", "大暑", "立秋", "处暑", "白露", "秋分",
	"寒露", "霜降", "立冬", "小雪", "大雪", "冬至",
}

// termOffsetMinutes is the mean offset of each term from 小寒, in minutes.
// Together with termEpoch and the tropical year it gives the first
// estimate of a term's instant.
var termOffsetMinutes = [NumSolarTerms]float64{
	0, 21208, 42467, 63836, 85337, 107014,
	128867, 150921, 173149, 195551, 218072, 240693,
	263343, 285989, 308563, 331033, 353350, 375494,
	397447, 419210, 440795, 462224, 483532, 504758,
}

// termEpoch is the mean instant of 小寒 1900.
var termEpoch = time.Date(1900, time.January, 6, 2, 5, 0, 0, time.UTC)

// Term computations reach one year either side of the lunar table so that
// months straddling a year boundary can be bracketed.
const (
	minTermYear = MinLunarYear - 1
	maxTermYear = MaxLunarYear + 2
)

// SolarTerm is the occurrence of one of the 24 terms in a given year.
type SolarTerm struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Year    int       `json:"year"`
	Instant time.Time `json:"instant"`

	// Approximate is set when the astronomical refinement did not
	// converge and Instant is the mean-term estimate.
	Approximate bool `json:"approximate,omitempty"`
}

// TermName returns the Chinese name of a term index (0 = 小寒).
func TermName(index int) string {
	return termNames[mod(index, NumSolarTerms)]
}

// IsJie reports whether the term opens a GanZhi month.
func (t SolarTerm) IsJie() bool {
	return t.Index%2 == 0
}

// Date returns the civil day (UTC+8) on which the term falls.
func (t SolarTerm) Date() CivilDateTime {
	return FromTime(t.Instant).Date()
}

// TermInstant computes when term index occurs in the given Gregorian year.
//
// The instant starts from the mean-term estimate
//
//	termEpoch + 365.242199 × (year − 1900) days + termOffsetMinutes[index]
//
// and is refined by solving for the moment the sun's apparent longitude
// reaches 285° + 15° × index. The result is expressed in UTC+8.
func TermInstant(year, index int) (SolarTerm, error) {
	const op = "TermInstant"

	if year < minTermYear || year > maxTermYear {
		return SolarTerm{}, outOfRange(op, "year %d not in %d-%d", year, minTermYear, maxTermYear)
	}
	if index < 0 || index >= NumSolarTerms {
		return SolarTerm{}, outOfRange(op, "term index %d not in 0-%d", index, NumSolarTerms-1)
	}

	minutes := meanTropicalYear*24*60*float64(year-1900) + termOffsetMinutes[index]
	estimate := termEpoch.Add(time.Duration(minutes * float64(time.Minute)))

	target := normalizeDegrees(285 + 15*float64(index))
	instant, ok := refineSolarLongitude(estimate, target)

	return SolarTerm{
		Index:       index,
		Name:        termNames[index],
		Year:        year,
		Instant:     instant.In(ChinaStandardTime),
		Approximate: !ok,
	}, nil
}

// SolarTerms lists all 24 terms of a Gregorian year in order.
func SolarTerms(year int) ([]SolarTerm, error) {
	if year < MinLunarYear || year > MaxLunarYear {
		return nil, outOfRange("SolarTerms", "year %d not in %d-%d", year, MinLunarYear, MaxLunarYear)
	}

	terms := make([]SolarTerm, 0, NumSolarTerms)
	for i := 0; i < NumSolarTerms; i++ {
		term, err := TermInstant(year, i)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// JieBracket is the pair of consecutive Jie terms around a date, and the
// GanZhi month they open.
type JieBracket struct {
	Start SolarTerm `json:"start"`
	Next  SolarTerm `json:"next"`

	// Branch is the month branch opened by Start (立春 opens 寅).
	Branch Branch `json:"-"`

	// Position counts months from the Tiger month: 寅 = 0 ... 丑 = 11.
	Position int `json:"position"`
}

// Approximate reports whether either bounding term is an estimate.
func (b JieBracket) Approximate() bool {
	return b.Start.Approximate || b.Next.Approximate
}

// MonthBoundaries finds the Jie terms bracketing date and the month branch
// they define. Comparison is by civil day: the day a Jie falls on already
// belongs to the month it opens.
//
// The walk starts at 大雪 of the previous year and steps two terms at a
// time. When the following Jie computes earlier than the current one (小寒
// after 大雪), it is recomputed for the next year.
func MonthBoundaries(date CivilDateTime) (JieBracket, error) {
	start, next, err := bracketTerms("MonthBoundaries", date, MajorSnow, 2)
	if err != nil {
		return JieBracket{}, err
	}

	position := mod((start.Index-SpringBegins)/2, NumBranches)
	return JieBracket{
		Start:    start,
		Next:     next,
		Branch:   Branch(mod(position+2, NumBranches)),
		Position: position,
	}, nil
}

// CurrentTerm returns the latest of the 24 terms falling on or before date.
func CurrentTerm(date CivilDateTime) (SolarTerm, error) {
	term, _, err := bracketTerms("CurrentTerm", date, WinterSolstice, 1)
	return term, err
}

// bracketTerms walks terms from firstIndex of the year before date.Year in
// increments of step and returns the consecutive pair whose civil days
// enclose date.
func bracketTerms(op string, date CivilDateTime, firstIndex, step int) (SolarTerm, SolarTerm, error) {
	if date.Year < MinLunarYear || date.Year > MaxLunarYear+1 {
		return SolarTerm{}, SolarTerm{}, outOfRange(op, "year %d not in %d-%d", date.Year, MinLunarYear, MaxLunarYear+1)
	}
	day := date.Date()

	current, err := TermInstant(date.Year-1, firstIndex)
	if err != nil {
		return SolarTerm{}, SolarTerm{}, err
	}

	// One pass over a year of terms plus the one opening the year.
	steps := NumSolarTerms/step + 1
	for i := 0; i < steps; i++ {
		nextIndex := (current.Index + step) % NumSolarTerms
		next, err := TermInstant(current.Year, nextIndex)
		if err != nil {
			return SolarTerm{}, SolarTerm{}, err
		}
		if next.Instant.Before(current.Instant) {
			next, err = TermInstant(current.Year+1, nextIndex)
			if err != nil {
				return SolarTerm{}, SolarTerm{}, err
			}
		}

		if !day.Before(current.Date()) && day.Before(next.Date()) {
			return current, next, nil
		}
		current = next
	}

	return SolarTerm{}, SolarTerm{}, &Error{
		Op:     op,
		Kind:   KindAmbiguousTermBoundary,
		Detail: "no pair of terms brackets " + day.String(),
	}
}
