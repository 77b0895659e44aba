package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// --- command structure ---

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, expected := range []string{"show", "hours", "lunar", "terms", "validate", "check"} {
		if !names[expected] {
			t.Errorf("expected subcommand %q to be registered", expected)
		}
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, flag := range []string{"zi", "format"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected --%s persistent flag", flag)
		}
	}
}

func TestRootCmd_UnknownFormat_ReturnsError(t *testing.T) {
	if _, err := execute(t, "lunar", "2025-02-25", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// --- show ---

func TestShow_JSON(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"show", "1991-09-07", "--time", "14:30"}, "辛未年 丙申月 庚辰日 癸未时"},
		{[]string{"show", "2001-12-10", "-t", "09:28"}, "辛巳年 庚子月 丁未日 乙巳时"},
		{[]string{"show", "2025-02-25", "-t", "23:30", "--zi", "advance"}, "乙巳年 戊寅月 丙寅日 戊子时"},
		{[]string{"show", "2025-02-25", "-t", "23:30"}, "乙巳年 戊寅月 乙丑日 戊子时"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--format", "json")...)
			if err != nil {
				t.Fatalf("execute error = %v", err)
			}

			var p struct {
				Year  string `json:"year"`
				Month string `json:"month"`
				Day   string `json:"day"`
				Hour  string `json:"hour"`
			}
			if err := json.Unmarshal([]byte(out), &p); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, out)
			}

			got := p.Year + "年 " + p.Month + "月 " + p.Day + "日 " + p.Hour + "时"
			if got != tt.want {
				t.Errorf("chart = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShow_Pretty(t *testing.T) {
	out, err := execute(t, "show", "1900-01-31")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	for _, want := range []string{"1900-01-31", "庚子", "己丑", "甲辰", "鼠"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "zi rule") {
		t.Errorf("date-only output should not show an hour line:\n%s", out)
	}
}

func TestShow_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"before epoch", []string{"show", "1900-01-30"}},
		{"bad date", []string{"show", "1991/09/07"}},
		{"bad time", []string{"show", "1991-09-07", "-t", "24:00"}},
		{"bad zi", []string{"show", "1991-09-07", "--zi", "split"}},
		{"too many args", []string{"show", "1991-09-07", "14:30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseDateArgs(t *testing.T) {
	// 2025-02-25 15:30 UTC is 23:30 in UTC+8.
	now := time.Date(2025, time.February, 25, 15, 30, 0, 0, time.UTC)

	got, err := parseDateArgs(nil, "", now)
	if err != nil {
		t.Fatalf("parseDateArgs() error = %v", err)
	}
	if want := calendar.NewCivilDateTime(2025, 2, 25, 23, 30); got != want {
		t.Errorf("parseDateArgs(now) = %v, want %v", got, want)
	}

	got, err = parseDateArgs(nil, "08:15", now)
	if err != nil {
		t.Fatalf("parseDateArgs() error = %v", err)
	}
	if want := calendar.NewCivilDateTime(2025, 2, 25, 8, 15); got != want {
		t.Errorf("parseDateArgs(clock) = %v, want %v", got, want)
	}

	got, err = parseDateArgs([]string{"1991-09-07"}, "", now)
	if err != nil {
		t.Fatalf("parseDateArgs() error = %v", err)
	}
	if want := calendar.NewCivilDate(1991, 9, 7); got != want {
		t.Errorf("parseDateArgs(date) = %v, want %v", got, want)
	}
}

// --- hours / lunar / terms ---

func TestHours_JSON(t *testing.T) {
	out, err := execute(t, "hours", "2025-02-25", "--format", "json")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}

	var hours []struct {
		Pillar string `json:"pillar"`
		Range  string `json:"range"`
	}
	if err := json.Unmarshal([]byte(out), &hours); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(hours) != 13 {
		t.Fatalf("len(hours) = %d, want 13", len(hours))
	}
	if hours[0].Pillar != "丙子" || hours[0].Range != "00:00-00:59" {
		t.Errorf("hours[0] = %+v, want 丙子 00:00-00:59", hours[0])
	}
	if hours[12].Pillar != "戊子" || hours[12].Range != "23:00-23:59" {
		t.Errorf("hours[12] = %+v, want 戊子 23:00-23:59", hours[12])
	}
}

func TestLunar_Pretty(t *testing.T) {
	out, err := execute(t, "lunar", "2025-07-25")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	for _, want := range []string{"二〇二五年闰六月初一", "乙巳年", "蛇"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestLunar_OutOfRange(t *testing.T) {
	_, err := execute(t, "lunar", "2101-02-01")
	if !calendar.IsKind(err, calendar.KindOutOfRange) {
		t.Errorf("error = %v, want out of range", err)
	}
}

func TestTerms(t *testing.T) {
	out, err := execute(t, "terms", "2025", "--jie", "--format", "json")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}

	var terms []calendar.SolarTerm
	if err := json.Unmarshal([]byte(out), &terms); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(terms) != 12 {
		t.Fatalf("len(terms) = %d, want 12", len(terms))
	}
	if terms[1].Name != "立春" {
		t.Errorf("terms[1] = %s, want 立春", terms[1].Name)
	}

	out, err = execute(t, "terms", "2025")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(out), "\n") + 1; lines != 24 {
		t.Errorf("pretty output has %d lines, want 24", lines)
	}
	if !strings.Contains(out, "* 2025-02-03") {
		t.Errorf("pretty output missing 立春 line:\n%s", out)
	}

	if _, err := execute(t, "terms", "abc"); err == nil {
		t.Error("expected error for non-numeric year")
	}
}

// --- validate ---

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "1991-09-07", "14:30", "辛未年 丙申月 庚辰日 癸未时")
	if err != nil {
		t.Fatalf("execute error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "OK") {
		t.Errorf("output missing OK:\n%s", out)
	}

	// Unquoted pillars are joined.
	if _, err := execute(t, "validate", "1991-09-07", "14:30", "辛未年", "丙申月", "庚辰日", "癸未时"); err != nil {
		t.Errorf("unquoted pillars: error = %v", err)
	}
}

func TestValidate_Mismatch(t *testing.T) {
	out, err := execute(t, "validate", "2025-02-25", "23:30", "乙巳年 戊寅月 丙寅日 戊子时")
	if err == nil {
		t.Fatal("expected mismatch error under the keep rule")
	}
	if !strings.Contains(out, "expected 丙寅, got 乙丑") {
		t.Errorf("output missing day mismatch:\n%s", out)
	}

	if _, err := execute(t, "validate", "2025-02-25", "23:30", "乙巳年 戊寅月 丙寅日 戊子时", "--zi", "advance"); err != nil {
		t.Errorf("advance rule: error = %v", err)
	}
}

func TestValidate_Malformed(t *testing.T) {
	_, err := execute(t, "validate", "1991-09-07", "14:30", "辛未 丙申 庚辰 癸未")
	if !calendar.IsKind(err, calendar.KindMalformedReference) {
		t.Errorf("error = %v, want malformed reference", err)
	}
}

// --- check ---

func writeFixtures(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refs.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	return path
}

func TestCheck_ShippedFixtures(t *testing.T) {
	out, err := execute(t, "check", "--file", filepath.Join("..", "..", "data", "references.yaml"))
	if err != nil {
		t.Fatalf("execute error = %v\n%s", err, out)
	}
	if strings.Contains(out, "FAIL") || strings.Contains(out, "ERROR") {
		t.Errorf("unexpected failure:\n%s", out)
	}
}

func TestCheck_ReportsFailures(t *testing.T) {
	path := writeFixtures(t, `
fixtures:
  - label: good
    date: "1991-09-07"
    time: "14:30"
    expected: 辛未年 丙申月 庚辰日 癸未时
  - label: wrong day
    date: "1991-09-07"
    time: "14:30"
    zi: advance
    expected: 辛未年 丙申月 辛巳日 癸未时
`)

	out, err := execute(t, "check", "-f", path)
	if err == nil {
		t.Fatal("expected error when a chart fails")
	}
	if !strings.Contains(out, "1 passed, 1 failed") {
		t.Errorf("summary missing counts:\n%s", out)
	}
	if !strings.Contains(out, "wrong day") || !strings.Contains(out, "day") {
		t.Errorf("failure detail missing:\n%s", out)
	}
}

func TestCheck_JSON(t *testing.T) {
	path := writeFixtures(t, `
fixtures:
  - label: epoch noon
    date: "1900-01-31"
    time: "12:00"
    expected: 庚子年 己丑月 甲辰日 庚午时
`)

	out, err := execute(t, "check", "-f", path, "--format", "json")
	if err != nil {
		t.Fatalf("execute error = %v\n%s", err, out)
	}

	var summary struct {
		Run struct {
			Source string `json:"source"`
			Total  int    `json:"total"`
			Passed int    `json:"passed"`
		} `json:"run"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if summary.Run.Total != 1 || summary.Run.Passed != 1 || summary.Run.Source != path {
		t.Errorf("run = %+v", summary.Run)
	}
}

func TestCheck_MissingFile(t *testing.T) {
	if _, err := execute(t, "check", "-f", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- theme ---

func TestTheme_PillarKeepsText(t *testing.T) {
	theme := DefaultTheme()
	for k := 0; k < calendar.CycleLength; k++ {
		g := calendar.Sexagenary(k)
		if got := theme.Pillar(g); !strings.Contains(got, g.String()) {
			t.Errorf("Pillar(%s) = %q", g, got)
		}
	}
}
