package rebalance

import "time"

// Scheduler fires on the first step of a run and then on the first step at or
// after each cadence activation. A holiday on the anchor day moves the
// rebalance to the next available step.
// Steps must be fed in strictly increasing date order.
type Scheduler struct {
	freq    Frequency
	next    time.Time
	started bool
	fired   int
}

// NewScheduler creates a scheduler for one run
func NewScheduler(freq Frequency) *Scheduler {
	return &Scheduler{freq: freq}
}

// ShouldRebalance reports whether date is a rebalance step and advances state
func (s *Scheduler) ShouldRebalance(date time.Time) bool {
	if !s.started || !date.Before(s.next) {
		s.started = true
		s.next = s.freq.Next(date)
		s.fired++
		return true
	}
	return false
}

// Fired returns how many rebalances have fired
func (s *Scheduler) Fired() int {
	return s.fired
}

// Dates returns the rebalance steps of a calendar without side effects
func Dates(freq Frequency, calendar []time.Time) []time.Time {
	s := NewScheduler(freq)
	var out []time.Time
	for _, d := range calendar {
		if s.ShouldRebalance(d) {
			out = append(out, d)
		}
	}
	return out
}
