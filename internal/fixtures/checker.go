package fixtures

import (
	"github.com/zapponejosh/ganzhi-api/internal/calendar"
	"github.com/zapponejosh/ganzhi-api/internal/database"
)

// Checker validates reference charts, each under its own zi rule.
type Checker struct {
	engines map[calendar.ZiHourRule]*calendar.Engine
}

// NewChecker returns a checker with one engine per late Zi convention.
func NewChecker() *Checker {
	return &Checker{
		engines: map[calendar.ZiHourRule]*calendar.Engine{
			calendar.LateZiKeepsDay:    calendar.NewEngine(calendar.WithZiHourRule(calendar.LateZiKeepsDay)),
			calendar.LateZiAdvancesDay: calendar.NewEngine(calendar.WithZiHourRule(calendar.LateZiAdvancesDay)),
		},
	}
}

// Check recomputes one chart. Failures to run the check (bad date, range,
// malformed expected string) are recorded in the result's Error rather
// than returned, so that one bad chart does not stop a run.
func (c *Checker) Check(ref database.ReferenceChart) database.ValidationResult {
	result := database.ValidationResult{
		Label:      ref.Label,
		Expected:   ref.Expected,
		Mismatches: []string{},
	}
	if ref.ID != 0 {
		id := ref.ID
		result.ReferenceID = &id
	}

	fail := func(err error) database.ValidationResult {
		msg := err.Error()
		result.Error = &msg
		return result
	}

	date, err := calendar.ParseCivil(ref.SolarDate, ref.SolarTime)
	if err != nil {
		return fail(err)
	}
	rule, err := calendar.ParseZiHourRule(ref.ZiRule)
	if err != nil {
		return fail(err)
	}

	v, err := c.engines[rule].Validate(date, ref.Expected)
	if err != nil {
		return fail(err)
	}

	result.Actual = v.Actual
	result.Match = v.IsValid
	result.Degraded = v.Degraded
	for _, m := range v.Mismatches() {
		result.Mismatches = append(result.Mismatches, string(m.Pillar))
	}
	return result
}

// Run checks every chart and returns an unsaved run summary.
func (c *Checker) Run(source string, refs []database.ReferenceChart) *database.RunSummary {
	summary := &database.RunSummary{
		Run:     database.ValidationRun{Source: source},
		Results: make([]database.ValidationResult, 0, len(refs)),
	}
	for _, ref := range refs {
		summary.Results = append(summary.Results, c.Check(ref))
	}
	summary.Tally()
	return summary
}

// RunFixtures checks fixtures that are not stored in a database.
func (c *Checker) RunFixtures(source string, fixtures []Fixture) *database.RunSummary {
	refs := make([]database.ReferenceChart, 0, len(fixtures))
	for _, f := range fixtures {
		refs = append(refs, f.Chart())
	}
	return c.Run(source, refs)
}
