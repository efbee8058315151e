package portfolio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// StaticHoldings is a fixed holdings list (from a file or a request)
type StaticHoldings []contracts.Holding

// CurrentHoldings implements the holdings source used by recommendations
func (h StaticHoldings) CurrentHoldings(context.Context) ([]contracts.Holding, error) {
	out := make([]contracts.Holding, len(h))
	copy(out, h)
	return out, nil
}

// LoadHoldingsFile reads a YAML list of holdings:
//
//	holdings:
//	  - instrument_id: "005930"
//	    weight: 0.15
//	    entry_price: 71000
func LoadHoldingsFile(path string) (StaticHoldings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holdings file: %w", err)
	}

	var doc struct {
		Holdings []contracts.Holding `yaml:"holdings"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse holdings %s: %w", path, err)
	}

	if err := ValidateHoldings(doc.Holdings); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return StaticHoldings(doc.Holdings), nil
}

// ValidateHoldings checks ids, weights in [0,1] summing to at most 1, and positive entry prices
func ValidateHoldings(holdings []contracts.Holding) error {
	seen := make(map[string]struct{}, len(holdings))
	total := 0.0
	for i, h := range holdings {
		if h.InstrumentID == "" {
			return fmt.Errorf("holdings[%d]: instrument_id is required", i)
		}
		if _, dup := seen[h.InstrumentID]; dup {
			return fmt.Errorf("holdings[%d]: %w: %s", i, contracts.ErrDuplicatePosition, h.InstrumentID)
		}
		seen[h.InstrumentID] = struct{}{}

		if h.Weight < 0 || h.Weight > 1 || math.IsNaN(h.Weight) {
			return fmt.Errorf("holdings[%d]: weight %v outside [0,1]", i, h.Weight)
		}
		if h.EntryPrice <= 0 || math.IsNaN(h.EntryPrice) || math.IsInf(h.EntryPrice, 0) {
			return fmt.Errorf("holdings[%d]: entry_price must be > 0", i)
		}
		total += h.Weight
	}
	if total > 1+1e-6 {
		return fmt.Errorf("holding weights sum to %.4f > 1", total)
	}
	return nil
}
