package calendar

import (
	"strings"
)

// Pillar names a position in a four-pillar chart.
type Pillar string

const (
	PillarYear  Pillar = "year"
	PillarMonth Pillar = "month"
	PillarDay   Pillar = "day"
	PillarHour  Pillar = "hour"
)

// referenceSuffixes are the unit characters that close each field of a
// reference string, in pillar order.
var referenceSuffixes = [4]struct {
	pillar Pillar
	suffix rune
}{
	{PillarYear, '年'},
	{PillarMonth, '月'},
	{PillarDay, '日'},
	{PillarHour, '时'},
}

// Reference is a parsed "S B年 S B月 S B日 S B时" string.
type Reference struct {
	Year  GanZhi
	Month GanZhi
	Day   GanZhi
	Hour  GanZhi
}

// String renders r in the same form ParseReference accepts.
func (r Reference) String() string {
	return r.Year.String() + "年 " + r.Month.String() + "月 " + r.Day.String() + "日 " + r.Hour.String() + "时"
}

// ParseReference parses a four-field reference such as
// "辛未年 丙申月 庚辰日 癸未时". Fields are separated by whitespace; each is a
// valid stem/branch pair followed by its unit character.
func ParseReference(s string) (Reference, error) {
	const op = "ParseReference"

	fields := strings.Fields(s)
	if len(fields) != len(referenceSuffixes) {
		return Reference{}, malformedReference(op, "want 4 fields, got %d in %q", len(fields), s)
	}

	var pillars [4]GanZhi
	for i, field := range fields {
		runes := []rune(field)
		want := referenceSuffixes[i]
		if len(runes) != 3 || runes[2] != want.suffix {
			return Reference{}, malformedReference(op, "%s field %q must be a stem/branch pair followed by %q",
				want.pillar, field, string(want.suffix))
		}
		g, err := ParseGanZhi(string(runes[:2]))
		if err != nil {
			return Reference{}, &Error{Op: op, Kind: KindMalformedReference, Detail: string(want.pillar) + " field", Err: err}
		}
		pillars[i] = g
	}

	return Reference{Year: pillars[0], Month: pillars[1], Day: pillars[2], Hour: pillars[3]}, nil
}

// PillarCheck is the outcome for one pillar.
type PillarCheck struct {
	Pillar   Pillar `json:"pillar"`
	Expected GanZhi `json:"expected"`
	Actual   GanZhi `json:"actual"`
	Match    bool   `json:"match"`
}

// Validation is the outcome of comparing a chart against a reference.
type Validation struct {
	IsValid bool          `json:"is_valid"`
	Checks  []PillarCheck `json:"checks"`
	Actual  string        `json:"actual"`

	// Degraded carries PillarSet.Degraded of the recomputed chart.
	Degraded bool `json:"degraded,omitempty"`
}

// Mismatches returns the checks that failed.
func (v Validation) Mismatches() []PillarCheck {
	var out []PillarCheck
	for _, c := range v.Checks {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}

// Validate recomputes all four pillars for date and compares them with
// the reference string. date must carry a time of day. A malformed
// reference is an error; a mismatch is not.
func (e *Engine) Validate(date CivilDateTime, expected string) (Validation, error) {
	ref, err := ParseReference(expected)
	if err != nil {
		return Validation{}, err
	}
	if !date.HasTime {
		return Validation{}, invalidDate("Validate", "%s has no time of day for the hour pillar", date)
	}

	p, err := e.Compute(date, true)
	if err != nil {
		return Validation{}, err
	}

	actual := [4]GanZhi{p.Year, p.Month, p.Day, *p.Hour}
	want := [4]GanZhi{ref.Year, ref.Month, ref.Day, ref.Hour}

	v := Validation{IsValid: true, Actual: p.String(), Degraded: p.Degraded}
	for i, rs := range referenceSuffixes {
		check := PillarCheck{
			Pillar:   rs.pillar,
			Expected: want[i],
			Actual:   actual[i],
			Match:    want[i] == actual[i],
		}
		v.IsValid = v.IsValid && check.Match
		v.Checks = append(v.Checks, check)
	}
	return v, nil
}
