package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// MemoryProvider serves price history held in memory
type MemoryProvider struct {
	mu     sync.RWMutex
	series map[string]contracts.PriceSeries
	errs   map[string]error
}

// NewMemoryProvider creates a provider preloaded with series
func NewMemoryProvider(series ...contracts.PriceSeries) *MemoryProvider {
	p := &MemoryProvider{
		series: make(map[string]contracts.PriceSeries, len(series)),
		errs:   make(map[string]error),
	}
	for _, s := range series {
		p.Put(s)
	}
	return p
}

// Put stores (or replaces) the series of one instrument
func (p *MemoryProvider) Put(s contracts.PriceSeries) {
	bars := make([]contracts.PriceBar, len(s.Bars))
	copy(bars, s.Bars)
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[s.Instrument.ID] = contracts.PriceSeries{Instrument: s.Instrument, Bars: bars}
}

// Fail makes every GetHistory for id return err
func (p *MemoryProvider) Fail(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[id] = err
}

// GetHistory returns the stored bars in [start, end]
func (p *MemoryProvider) GetHistory(ctx context.Context, instrument contracts.Instrument, start, end time.Time) (contracts.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return contracts.PriceSeries{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err, ok := p.errs[instrument.ID]; ok {
		return contracts.PriceSeries{}, err
	}
	s, ok := p.series[instrument.ID]
	if !ok {
		return contracts.PriceSeries{}, fmt.Errorf("%w: %s", contracts.ErrInstrumentNotFound, instrument.ID)
	}

	out := s.Between(start, end)
	out.Instrument = instrument
	return out, nil
}
