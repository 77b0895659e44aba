// Package cli implements the ganzhi command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	zi     string
	format string
	now    func() time.Time
}

func (o *options) engine() (*calendar.Engine, error) {
	rule, err := calendar.ParseZiHourRule(o.zi)
	if err != nil {
		return nil, err
	}
	return calendar.NewEngine(calendar.WithZiHourRule(rule)), nil
}

func (o *options) checkFormat() error {
	switch o.format {
	case "pretty", "", "json":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", o.format)
	}
}

func (o *options) json() bool {
	return o.format == "json"
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}

	cmd := &cobra.Command{
		Use:          "ganzhi",
		Short:        "Four pillars, lunar dates and solar terms for 1900-2100",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.checkFormat()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.zi, "zi", "keep", "Late Zi hour (23:00-23:59) rule: keep|advance")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "pretty", "Output format: pretty|json")

	cmd.AddCommand(
		showCmd(opts),
		hoursCmd(opts),
		lunarCmd(opts),
		termsCmd(opts),
		validateCmd(opts),
		checkCmd(opts),
	)
	return cmd
}

// parseDateArgs reads an optional date and time from positional args,
// defaulting to the current moment in UTC+8.
func parseDateArgs(args []string, clock string, now time.Time) (calendar.CivilDateTime, error) {
	if len(args) == 0 {
		if clock != "" {
			today := calendar.FromTime(now)
			return calendar.ParseCivil(today.Date().String(), clock)
		}
		return calendar.FromTime(now), nil
	}
	return calendar.ParseCivil(args[0], clock)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
