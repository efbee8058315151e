package portfolio

import "github.com/wonny/aegis-momentum/internal/strategyconfig"

// Rejection reasons emitted during the greedy fill
const (
	RejectSectorCount       = "sector_count"
	RejectSectorWeight      = "sector_weight"
	RejectInvalidVolatility = "invalid_volatility"
	RejectZeroSize          = "zero_size"
)

const weightTolerance = 1e-9

// sectorBook tracks admitted names and weight per sector during one selection
// ⭐ SSOT: 섹터 제약조건은 여기서만
type sectorBook struct {
	limits strategyconfig.SectorConstraints
	count  map[string]int
	weight map[string]float64
}

func newSectorBook(limits strategyconfig.SectorConstraints) *sectorBook {
	return &sectorBook{
		limits: limits,
		count:  make(map[string]int),
		weight: make(map[string]float64),
	}
}

// check returns "" when the candidate fits its sector.
// The count cap yields to scores at or above the override; the weight cap never does.
func (b *sectorBook) check(sector string, score, weight float64) string {
	if b.limits.MaxPositions > 0 && b.count[sector] >= b.limits.MaxPositions {
		override := b.limits.OverrideScore > 0 && score >= b.limits.OverrideScore
		if !override {
			return RejectSectorCount
		}
	}
	if b.limits.MaxWeight > 0 && b.weight[sector]+weight > b.limits.MaxWeight+weightTolerance {
		return RejectSectorWeight
	}
	return ""
}

func (b *sectorBook) admit(sector string, weight float64) {
	b.count[sector]++
	b.weight[sector] += weight
}
