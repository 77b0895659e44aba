// Package fixtures reads reference charts from YAML files and checks
// stored charts against the calendar engine.
package fixtures

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
	"github.com/zapponejosh/ganzhi-api/internal/database"
)

// Fixture is one reference chart as written in a fixture file or posted
// to the API.
type Fixture struct {
	Label    string `yaml:"label" json:"label"`
	Date     string `yaml:"date" json:"date"`
	Time     string `yaml:"time" json:"time"`
	Zi       string `yaml:"zi,omitempty" json:"zi,omitempty"`
	Expected string `yaml:"expected" json:"expected"`
	Notes    string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// File is the top-level layout of a fixture file.
type File struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// Validate checks that the fixture can be run: a date with a time of day,
// a known zi rule and a well-formed expected string.
func (f Fixture) Validate() error {
	if f.Time == "" {
		return errors.New("time is required for the hour pillar")
	}
	if _, err := calendar.ParseCivil(f.Date, f.Time); err != nil {
		return err
	}
	if _, err := calendar.ParseZiHourRule(f.Zi); err != nil {
		return err
	}
	if _, err := calendar.ParseReference(f.Expected); err != nil {
		return err
	}
	return nil
}

// Chart converts the fixture to a storable reference chart.
func (f Fixture) Chart() database.ReferenceChart {
	rule := string(calendar.LateZiKeepsDay)
	if zi := strings.ToLower(strings.TrimSpace(f.Zi)); zi != "" {
		rule = zi
	}

	chart := database.ReferenceChart{
		Label:     f.Label,
		SolarDate: f.Date,
		SolarTime: f.Time,
		ZiRule:    rule,
		Expected:  f.Expected,
	}
	if f.Notes != "" {
		notes := f.Notes
		chart.Notes = &notes
	}
	return chart
}

// FromChart converts a stored chart back to its file form.
func FromChart(c database.ReferenceChart) Fixture {
	f := Fixture{
		Label:    c.Label,
		Date:     c.SolarDate,
		Time:     c.SolarTime,
		Zi:       c.ZiRule,
		Expected: c.Expected,
	}
	if c.Notes != nil {
		f.Notes = *c.Notes
	}
	return f
}

// Decode reads a fixture file. Unknown keys are rejected. Every fixture is
// validated and all problems are reported together.
func Decode(r io.Reader) ([]Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return []Fixture{}, nil
		}
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	var errs []error
	for i, f := range file.Fixtures {
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("fixture %d (%s %s): %w", i+1, f.Date, f.Time, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if file.Fixtures == nil {
		file.Fixtures = []Fixture{}
	}
	return file.Fixtures, nil
}

// LoadFile opens and decodes a fixture file.
func LoadFile(path string) ([]Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes fixtures in the same layout Decode reads.
func Encode(w io.Writer, fixtures []Fixture) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Fixtures: fixtures}); err != nil {
		return fmt.Errorf("encode fixtures: %w", err)
	}
	return enc.Close()
}
