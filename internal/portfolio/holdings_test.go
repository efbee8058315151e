package portfolio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

func TestLoadHoldingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.yaml")
	doc := "holdings:\n  - instrument_id: \"005930\"\n    weight: 0.15\n    entry_price: 71000\n  - instrument_id: \"000660\"\n    weight: 0.10\n    entry_price: 120000\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	h, err := LoadHoldingsFile(path)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "005930", h[0].InstrumentID)

	got, err := h.CurrentHoldings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []contracts.Holding(h), got)
}

func TestValidateHoldings(t *testing.T) {
	tests := []struct {
		name     string
		holdings []contracts.Holding
		wantErr  bool
	}{
		{"empty", nil, false},
		{"valid", []contracts.Holding{{InstrumentID: "A", Weight: 0.5, EntryPrice: 10}}, false},
		{"missing id", []contracts.Holding{{Weight: 0.1, EntryPrice: 10}}, true},
		{"duplicate", []contracts.Holding{{InstrumentID: "A", Weight: 0.1, EntryPrice: 1}, {InstrumentID: "A", Weight: 0.1, EntryPrice: 1}}, true},
		{"negative weight", []contracts.Holding{{InstrumentID: "A", Weight: -0.1, EntryPrice: 10}}, true},
		{"zero price", []contracts.Holding{{InstrumentID: "A", Weight: 0.1}}, true},
		{"over invested", []contracts.Holding{{InstrumentID: "A", Weight: 0.6, EntryPrice: 1}, {InstrumentID: "B", Weight: 0.6, EntryPrice: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHoldings(tt.holdings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadHoldingsFile_Example(t *testing.T) {
	h, err := LoadHoldingsFile("../../config/holdings.example.yaml")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "005930.KS", h[0].InstrumentID)
}
