package universe

import (
	"context"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// StaticProvider returns the same instruments on every date
type StaticProvider struct {
	members []Member
	filter  Filter
}

// NewStaticProvider creates a provider over a fixed instrument list
func NewStaticProvider(instruments []contracts.Instrument) *StaticProvider {
	members := make([]Member, len(instruments))
	for i, inst := range instruments {
		members[i] = Member{Instrument: inst}
	}
	return &StaticProvider{members: members}
}

// NewMemberProvider creates a provider with listing windows and a filter
func NewMemberProvider(members []Member, filter Filter) *StaticProvider {
	return &StaticProvider{members: members, filter: filter}
}

// List implements contracts.UniverseProvider
func (p *StaticProvider) List(_ context.Context, date time.Time) ([]contracts.Instrument, error) {
	return p.filter.Apply(p.members, date), nil
}

// Fundamentals implements contracts.FundamentalsProvider
func (p *StaticProvider) Fundamentals(context.Context) (map[string]contracts.Fundamentals, error) {
	return fundamentalsOf(p.members), nil
}
