// Package rebalance decides, per calendar step, whether a full re-score and
// re-select runs. Cadences are robfig/cron schedules evaluated against the
// trading calendar instead of the wall clock.
package rebalance

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// aliases maps pandas-style frequency strings onto cron specs (UTC midnight)
var aliases = map[string]string{
	"D":         "@daily",
	"B":         "@daily",
	"DAILY":     "@daily",
	"W":         "0 0 * * 5",
	"WEEKLY":    "0 0 * * 5",
	"W-MON":     "0 0 * * 1",
	"W-TUE":     "0 0 * * 2",
	"W-WED":     "0 0 * * 3",
	"W-THU":     "0 0 * * 4",
	"W-FRI":     "0 0 * * 5",
	"W-SAT":     "0 0 * * 6",
	"W-SUN":     "0 0 * * 0",
	"M":         "0 0 1 * *",
	"MS":        "0 0 1 * *",
	"MONTHLY":   "0 0 1 * *",
	"Q":         "0 0 1 1,4,7,10 *",
	"QS":        "0 0 1 1,4,7,10 *",
	"QUARTERLY": "0 0 1 1,4,7,10 *",
}

// Frequency is a parsed rebalance cadence
type Frequency struct {
	raw      string
	spec     string
	schedule cron.Schedule
}

// ParseFrequency accepts an alias (W-FRI, weekly, monthly, ...), a cron
// descriptor (@weekly, @every 168h) or a standard 5-field cron expression.
func ParseFrequency(s string) (Frequency, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Frequency{}, fmt.Errorf("empty rebalance frequency")
	}

	spec := raw
	if alias, ok := aliases[strings.ToUpper(raw)]; ok {
		spec = alias
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return Frequency{}, fmt.Errorf("invalid rebalance frequency %q: %w", raw, err)
	}

	return Frequency{raw: raw, spec: spec, schedule: schedule}, nil
}

// MustParseFrequency panics on error; for constants and tests
func MustParseFrequency(s string) Frequency {
	f, err := ParseFrequency(s)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the frequency as configured
func (f Frequency) String() string {
	return f.raw
}

// Spec returns the resolved cron spec
func (f Frequency) Spec() string {
	return f.spec
}

// Next returns the first activation strictly after t
func (f Frequency) Next(t time.Time) time.Time {
	return f.schedule.Next(t)
}
