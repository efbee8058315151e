package universe

import (
	"regexp"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// SPAC 판별을 위한 정규식 패턴
var spacPattern = regexp.MustCompile(`(?i)(스팩|SPAC|\d+호$|제\d+호)`)

// Exclusion reasons
const (
	ExcludeNotListed   = "not_listed"
	ExcludeDelisted    = "delisted"
	ExcludeListingDays = "listing_days"
	ExcludeSector      = "excluded_sector"
	ExcludeSPAC        = "spac"
	ExcludeID          = "excluded_id"
)

// Member is one universe candidate with its listing window
type Member struct {
	Instrument   contracts.Instrument
	Name         string
	Listed       time.Time // zero = always listed
	Delisted     time.Time // zero = still listed; exclusive
	Fundamentals *contracts.Fundamentals
}

// Filter holds the membership criteria applied on every List call
type Filter struct {
	MinListingDays int      `yaml:"min_listing_days"`
	ExcludeSectors []string `yaml:"exclude_sectors"`
	ExcludeIDs     []string `yaml:"exclude_ids"`
	ExcludeSPAC    bool     `yaml:"exclude_spac"`
}

// Exclusion returns why m is not a member on date, or "" when it is
func (f Filter) Exclusion(m Member, date time.Time) string {
	date = contracts.Day(date)

	// 우선순위 순서로 체크
	if !m.Listed.IsZero() && contracts.Day(m.Listed).After(date) {
		return ExcludeNotListed
	}
	if !m.Delisted.IsZero() && !date.Before(contracts.Day(m.Delisted)) {
		return ExcludeDelisted
	}
	if f.MinListingDays > 0 && !m.Listed.IsZero() {
		days := int(date.Sub(contracts.Day(m.Listed)).Hours() / 24)
		if days < f.MinListingDays {
			return ExcludeListingDays
		}
	}
	for _, sector := range f.ExcludeSectors {
		if m.Instrument.Sector == sector {
			return ExcludeSector
		}
	}
	for _, id := range f.ExcludeIDs {
		if m.Instrument.ID == id {
			return ExcludeID
		}
	}
	if f.ExcludeSPAC && m.Name != "" && spacPattern.MatchString(m.Name) {
		return ExcludeSPAC
	}

	return ""
}

// Apply returns the members passing the filter on date, ordered by ID
func (f Filter) Apply(members []Member, date time.Time) []contracts.Instrument {
	out := make([]contracts.Instrument, 0, len(members))
	for _, m := range members {
		if f.Exclusion(m, date) == "" {
			out = append(out, m.Instrument)
		}
	}
	return contracts.NewUniverse(out).Instruments
}

func fundamentalsOf(members []Member) map[string]contracts.Fundamentals {
	out := make(map[string]contracts.Fundamentals)
	for _, m := range members {
		if m.Fundamentals != nil {
			out[m.Instrument.ID] = *m.Fundamentals
		}
	}
	return out
}
