package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
	"github.com/zapponejosh/ganzhi-api/internal/database"
	"github.com/zapponejosh/ganzhi-api/internal/fixtures"
)

func showCmd(opts *options) *cobra.Command {
	var clock string

	c := &cobra.Command{
		Use:   "show [date]",
		Short: "Show the four pillars for a date (default: now, UTC+8)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}

			date, err := parseDateArgs(args, clock, opts.now())
			if err != nil {
				return err
			}

			p, err := engine.Compute(date, date.HasTime)
			if err != nil {
				return err
			}

			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			printChart(cmd.OutOrStdout(), DefaultTheme(), p)
			return nil
		},
	}

	c.Flags().StringVarP(&clock, "time", "t", "", "Time of day HH:MM (UTC+8); omit for date only")
	return c
}

func hoursCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hours [date]",
		Short: "List the thirteen hour pillars of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}

			date, err := parseDateArgs(args, "", opts.now())
			if err != nil {
				return err
			}
			date = date.Date()

			hours, err := engine.DayHours(date)
			if err != nil {
				return err
			}

			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), hours)
			}

			theme := DefaultTheme()
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, theme.Title.Render(date.String()))
			for _, h := range hours {
				fmt.Fprintf(w, "  %s  %s时\n", theme.Faint.Render(h.Range), theme.Pillar(h.Pillar))
			}
			return nil
		},
	}
}

func lunarCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lunar [date]",
		Short: "Convert a Gregorian date to the Chinese lunar calendar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArgs(args, "", opts.now())
			if err != nil {
				return err
			}
			date = date.Date()

			lunar, err := calendar.SolarToLunar(date)
			if err != nil {
				return err
			}

			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), lunar)
			}

			year := calendar.YearPillar(lunar.Year)
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s年, %s)\n",
				date, lunar, year, lunar.Animal())
			return nil
		},
	}
}

func termsCmd(opts *options) *cobra.Command {
	var jieOnly bool

	c := &cobra.Command{
		Use:   "terms <year>",
		Short: "List the 24 solar terms of a year (UTC+8)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}

			terms, err := calendar.SolarTerms(year)
			if err != nil {
				return err
			}
			if jieOnly {
				jie := terms[:0:0]
				for _, t := range terms {
					if t.IsJie() {
						jie = append(jie, t)
					}
				}
				terms = jie
			}

			if opts.json() {
				return writeJSON(cmd.OutOrStdout(), terms)
			}

			theme := DefaultTheme()
			w := cmd.OutOrStdout()
			for _, t := range terms {
				marker := " "
				if t.IsJie() {
					marker = "*"
				}
				line := fmt.Sprintf("%s %s  %s", marker, t.Instant.Format("2006-01-02 15:04"), t.Name)
				if t.Approximate {
					line += theme.Faint.Render("  (approximate)")
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&jieOnly, "jie", false, "Only list the twelve Jie terms that open a month")
	return c
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <date> <time> <expected>",
		Short: `Check a reference chart such as "辛未年 丙申月 庚辰日 癸未时"`,
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}

			date, err := calendar.ParseCivil(args[0], args[1])
			if err != nil {
				return err
			}

			// Let the pillars be passed unquoted as four arguments.
			expected := strings.Join(args[2:], " ")

			v, err := engine.Validate(date, expected)
			if err != nil {
				return err
			}

			if opts.json() {
				if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			} else {
				printValidation(cmd.OutOrStdout(), DefaultTheme(), v)
			}

			if !v.IsValid {
				return fmt.Errorf("%d pillar(s) do not match", len(v.Mismatches()))
			}
			return nil
		},
	}
}

func checkCmd(opts *options) *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "check",
		Short: "Validate every chart in a fixture file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := fixtures.LoadFile(file)
			if err != nil {
				return err
			}

			summary := fixtures.NewChecker().RunFixtures(file, list)

			if opts.json() {
				if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
			} else {
				printSummary(cmd.OutOrStdout(), DefaultTheme(), summary)
			}

			if bad := summary.Run.Failed + summary.Run.Errored; bad > 0 {
				return fmt.Errorf("check failed (%d of %d chart(s))", bad, summary.Run.Total)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "data/references.yaml", "Fixture YAML file")
	return c
}

func printChart(w io.Writer, theme Theme, p calendar.PillarSet) {
	cells := []string{
		theme.Pillar(p.Year) + "年",
		theme.Pillar(p.Month) + "月",
		theme.Pillar(p.Day) + "日",
	}
	if p.Hour != nil {
		cells = append(cells, theme.Pillar(*p.Hour)+"时")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", theme.Title.Render(p.Date.String()))
	fmt.Fprintf(&b, "%s\n\n", strings.Join(cells, "  "))
	fmt.Fprintf(&b, "%s%s (%s)\n", theme.Label.Render("lunar"), p.LunarDisplay, p.Animal)
	fmt.Fprintf(&b, "%s%s %s\n", theme.Label.Render("term"), p.Term.Name, p.Term.Instant.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "%s%s → %s\n", theme.Label.Render("month"), p.MonthJie.Start.Name, p.MonthJie.Next.Name)
	if p.Hour != nil {
		fmt.Fprintf(&b, "%s%s (zi rule: %s)\n", theme.Label.Render("hour"), p.HourRange, p.ZiRule)
	}
	if p.Degraded {
		fmt.Fprintf(&b, "%s\n", theme.Faint.Render("solar term instants are approximate"))
	}

	fmt.Fprintln(w, theme.Card.Render(strings.TrimRight(b.String(), "\n")))
}

func printValidation(w io.Writer, theme Theme, v calendar.Validation) {
	for _, c := range v.Checks {
		mark := theme.Pass.Render("✓")
		if !c.Match {
			mark = theme.Fail.Render("✗")
		}
		fmt.Fprintf(w, "  %s %-5s expected %s, got %s\n", mark, c.Pillar, c.Expected, c.Actual)
	}
	if v.Degraded {
		fmt.Fprintln(w, theme.Faint.Render("  (solar term instants are approximate)"))
	}
	if v.IsValid {
		fmt.Fprintln(w, theme.Pass.Render("OK"))
	}
}

func printSummary(w io.Writer, theme Theme, s *database.RunSummary) {
	fmt.Fprintf(w, "Source:  %s\n", s.Run.Source)
	fmt.Fprintf(w, "Charts:  %d (%d passed, %d failed, %d errored)\n\n",
		s.Run.Total, s.Run.Passed, s.Run.Failed, s.Run.Errored)

	for _, r := range s.Results {
		switch {
		case r.Error != nil:
			fmt.Fprintf(w, "- [%s] %s\n  error: %s\n", theme.Fail.Render("ERROR"), r.Label, *r.Error)
		case !r.Match:
			fmt.Fprintf(w, "- [%s] %s\n  expected: %s\n  actual:   %s\n  pillars:  %s\n",
				theme.Fail.Render("FAIL"), r.Label, r.Expected, r.Actual, strings.Join(r.Mismatches, ", "))
		default:
			fmt.Fprintf(w, "- [%s] %s  %s\n", theme.Pass.Render("OK"), r.Label, r.Actual)
		}
	}
}
