// Command dategen writes candidate reference charts around every boundary of
// a year: each Jie term, lunar new year, and a late Zi hour. The expected
// pillars come from the engine itself, so the output is a starting point for
// fixtures that still have to be checked against a printed almanac.
//
// Usage:
//
//	go run ./cmd/dategen -year 2025 -o data/boundaries-2025.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
	"github.com/zapponejosh/ganzhi-api/internal/fixtures"
)

// nearMidnight flags terms whose instant is this close to a day change.
const nearMidnight = time.Hour

func main() {
	year := flag.Int("year", 2025, "Year to generate dates for")
	zi := flag.String("zi", "keep", "Zi hour rule for generated charts: keep|advance")
	output := flag.String("o", "", "Output YAML file (default stdout)")
	flag.Parse()

	if err := run(*year, *zi, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(year int, zi, output string) error {
	rule, err := calendar.ParseZiHourRule(zi)
	if err != nil {
		return err
	}
	engine := calendar.NewEngine(calendar.WithZiHourRule(rule))

	fmt.Fprintf(os.Stderr, "=== Boundary Date Generator for %d ===\n\n", year)

	var list []fixtures.Fixture
	add := func(date calendar.CivilDateTime, label, notes string) error {
		p, err := engine.Compute(date, true)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		list = append(list, fixtures.Fixture{
			Label:    label,
			Date:     date.Date().String(),
			Time:     fmt.Sprintf("%02d:%02d", date.Hour, date.Minute),
			Zi:       string(rule),
			Expected: p.String(),
			Notes:    notes,
		})
		return nil
	}

	// ==========================================================================
	// LUNAR NEW YEAR (eve and first day)
	// ==========================================================================
	newYear, err := calendar.LunarNewYear(year)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Lunar new year: %s\n", newYear)

	eve := newYear.AddDays(-1)
	if err := add(calendar.NewCivilDateTime(eve.Year, eve.Month, eve.Day, 12, 0), fmt.Sprintf("除夕 %d", year), ""); err != nil {
		return err
	}
	if err := add(calendar.NewCivilDateTime(newYear.Year, newYear.Month, newYear.Day, 12, 0), fmt.Sprintf("春节 %d", year), ""); err != nil {
		return err
	}

	// ==========================================================================
	// JIE TERMS (day before and day of)
	// ==========================================================================
	terms, err := calendar.SolarTerms(year)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "\nJie terms:")
	for _, t := range terms {
		if !t.IsJie() {
			continue
		}

		day := t.Date()
		fmt.Fprintf(os.Stderr, "  %s  %s\n", t.Instant.Format("2006-01-02 15:04"), t.Name)

		notes := ""
		if isNearMidnight(t.Instant) {
			notes = fmt.Sprintf("%s falls at %s; the boundary day is sensitive to the term model",
				t.Name, t.Instant.Format("15:04"))
		}
		if t.Approximate {
			notes = "term instant is approximate"
		}

		before := day.AddDays(-1)
		if err := add(calendar.NewCivilDateTime(before.Year, before.Month, before.Day, 12, 0),
			fmt.Sprintf("%s eve %d", t.Name, year), notes); err != nil {
			return err
		}
		if err := add(calendar.NewCivilDateTime(day.Year, day.Month, day.Day, 12, 0),
			fmt.Sprintf("%s %d", t.Name, year), notes); err != nil {
			return err
		}
	}

	// ==========================================================================
	// LATE ZI HOUR
	// ==========================================================================
	if err := add(calendar.NewCivilDateTime(year, 6, 30, 23, 30), fmt.Sprintf("late zi %d", year),
		fmt.Sprintf("generated with zi rule %s", rule)); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nGenerated %d charts\n", len(list))

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return fixtures.Encode(w, list)
}

func isNearMidnight(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	since := t.Sub(midnight)
	return since < nearMidnight || since > 24*time.Hour-nearMidnight
}
