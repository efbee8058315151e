package strategyconfig

// Default returns the baseline momentum strategy
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "momentum_v1",
			Version:    "1.0.0",
		},
		Signals: Signals{
			Momentum: Momentum{
				LookbacksDays: []int{21, 63, 126},
				Weights:       []float64{0.3, 0.4, 0.3},
			},
			Quality: Quality{
				SMAShort:        20,
				SMALong:         50,
				StabilityFactor: 10,
			},
			RSI:               RSI{Period: 14},
			MeanReversion:     MeanReversion{Window: 20},
			AnnualizationDays: 252,
		},
		Ranking: Ranking{
			Weights: RankingWeights{
				Momentum:      0.35,
				Quality:       0.25,
				Risk:          -0.15,
				RSI:           0.10,
				Sharpe:        0.15,
				MeanReversion: 0.05,
			},
		},
		Portfolio: Portfolio{
			TopN:             6,
			Weighting:        WeightingEqual,
			KellyCap:         0.20,
			VolatilityCapPct: 60,
			MinComposite:     0,
			Sector: SectorConstraints{
				MaxPositions:  2,
				OverrideScore: 90,
				MaxWeight:     0.40,
			},
			Fundamentals: FundamentalFilters{
				MinMarketCap:    5_000_000_000,
				MaxPE:           50,
				MinROE:          10,
				MaxDebtToEquity: 2.0,
				MinProfitMargin: 5,
			},
		},
		Risk: Risk{
			StopLossPct:   -0.10,
			TakeProfitPct: 0.40,
			MaxWeight:     0.18,
			HardCapWeight: 0.20,
			RebalanceBand: 0.03,
		},
		Rebalance: Rebalance{Frequency: "W-FRI"},
		Regime: Regime{
			SMAWindow:      200,
			ReduceFraction: 0.30,
			Trend: TrendRules{
				MinReturn3M: 0,
				MinReturn6M: 0,
				RSILow:      40,
				RSIHigh:     70,
			},
		},
		Backtest: Backtest{
			InitialCapital: 100_000,
			CommissionBps:  0,
			SlippageBps:    0,
			PeriodsPerYear: 252,
		},
	}
}
