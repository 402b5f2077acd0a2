package config

// Default returns the built-in reference configuration: thirty-nine
// indicators across nine weighted domains, the pair caps, the phase band
// table, and the critical jump rules. A config file overrides whole
// sections, never individual rows.
func Default() *Config {
	return &Config{
		Indicators: []IndicatorConfig{
			// economy
			{Name: "Treasury", Kind: KindNumeric, Amber: 2.5, Red: 4.0},
			{Name: "GroceryCPI", Kind: KindNumeric, Amber: 4.0, Red: 8.0},
			{Name: "MarketVolatility", Kind: KindNumeric, Amber: 25, Red: 40},
			{Name: "GDPGrowth", Kind: KindNumeric, Amber: 1.0, Red: 0.0, Invert: true},
			// jobs_labor
			{Name: "JoblessClaims", Kind: KindNumeric, Amber: 300_000, Red: 400_000},
			{Name: "StrikeTracker", Kind: KindNumeric, Amber: 5, Red: 15},
			{Name: "LuxuryCollapse", Kind: KindNumeric, Amber: 10, Red: 25},
			// rights_governance
			{Name: "LegiScan", Kind: KindNumeric, Amber: 5, Red: 12},
			{Name: "ACLEDProtests", Kind: KindNumeric, Amber: 50, Red: 150},
			{Name: "ICEDetention", Kind: KindNumeric, Amber: 85, Red: 95},
			{Name: "TaiwanZone", Kind: KindEnumerated, GreenCode: "NONE", AmberCode: "TEMP", RedCode: "BLOCKADE"},
			{Name: "DoDAutonomy", Kind: KindEnumerated, GreenCode: "HUMAN_VETO", AmberCode: "PILOT", RedCode: "REMOVED"},
			// security_infrastructure
			{Name: "CISACyber", Kind: KindNumeric, Amber: 3, Red: 7},
			{Name: "GridOutages", Kind: KindNumeric, Amber: 50_000, Red: 250_000},
			{Name: "WHODisease", Kind: KindNumeric, Amber: 1, Red: 3},
			{Name: "HormuzRisk", Kind: KindNumeric, Amber: 30, Red: 60},
			{Name: "PharmacyShortage", Kind: KindNumeric, Amber: 15, Red: 30},
			// oil_axis
			{Name: "CREAOil", Kind: KindNumeric, Amber: 60, Red: 80},
			{Name: "MBridgeSettlements", Kind: KindNumeric, Amber: 10, Red: 25},
			{Name: "OFACDesignations", Kind: KindNumeric, Amber: 10, Red: 25},
			{Name: "JODIOil", Kind: KindNumeric, Amber: 5, Red: 10},
			// ai_window
			{Name: "AILayoffs", Kind: KindNumeric, Amber: 10_000, Red: 50_000},
			{Name: "AIRansomware", Kind: KindNumeric, Amber: 5, Red: 15},
			{Name: "DeepfakeShocks", Kind: KindNumeric, Amber: 2, Red: 5},
			{Name: "LaborDisplacement", Kind: KindNumeric, Amber: 2, Red: 5},
			// global_conflict
			{Name: "GlobalConflict", Kind: KindNumeric, Amber: 40, Red: 70},
			{Name: "TaiwanPLA", Kind: KindNumeric, Amber: 20, Red: 40},
			{Name: "NATOReadiness", Kind: KindNumeric, Amber: 50, Red: 80},
			{Name: "NuclearTests", Kind: KindNumeric, Amber: 1, Red: 3},
			{Name: "RussiaNATO", Kind: KindNumeric, Amber: 50, Red: 75},
			{Name: "DefenseSpending", Kind: KindNumeric, Amber: 5, Red: 10},
			// domestic_control
			{Name: "DCControl", Kind: KindNumeric, Amber: 40, Red: 70},
			{Name: "GuardMetros", Kind: KindNumeric, Amber: 2, Red: 5},
			{Name: "ICEDetentions", Kind: KindNumeric, Amber: 60_000, Red: 80_000},
			{Name: "DHSRemoval", Kind: KindNumeric, Amber: 40, Red: 70},
			{Name: "HillLegislation", Kind: KindNumeric, Amber: 3, Red: 8},
			{Name: "LibertyLitigation", Kind: KindNumeric, Amber: 5, Red: 12},
			// watchlist
			{Name: "AGIMilestones", Kind: KindNumeric, Amber: 2, Red: 4},
			{Name: "SchoolClosures", Kind: KindNumeric, Amber: 5, Red: 20},
		},
		Domains: []DomainConfig{
			{
				Name:       "economy",
				Weight:     1.0,
				Indicators: []string{"Treasury", "GroceryCPI", "MarketVolatility", "GDPGrowth"},
				Critical:   []string{"MarketVolatility"},
			},
			{
				Name:       "jobs_labor",
				Weight:     1.0,
				Indicators: []string{"JoblessClaims", "StrikeTracker", "LuxuryCollapse"},
			},
			{
				Name:       "rights_governance",
				Weight:     1.0,
				Indicators: []string{"LegiScan", "ACLEDProtests", "ICEDetention", "TaiwanZone", "DoDAutonomy"},
				Critical:   []string{"TaiwanZone"},
			},
			{
				Name:       "security_infrastructure",
				Weight:     1.25,
				Indicators: []string{"CISACyber", "GridOutages", "WHODisease", "HormuzRisk", "PharmacyShortage"},
			},
			{
				Name:       "oil_axis",
				Weight:     1.0,
				Indicators: []string{"CREAOil", "MBridgeSettlements", "OFACDesignations", "JODIOil"},
			},
			{
				Name:       "ai_window",
				Weight:     1.0,
				Indicators: []string{"AILayoffs", "AIRansomware", "DeepfakeShocks", "LaborDisplacement"},
				Critical:   []string{"DeepfakeShocks"},
			},
			{
				Name:       "global_conflict",
				Weight:     1.5,
				Indicators: []string{"GlobalConflict", "TaiwanPLA", "NATOReadiness", "NuclearTests", "RussiaNATO", "DefenseSpending"},
				Critical:   []string{"NATOReadiness"},
			},
			{
				Name:       "domestic_control",
				Weight:     1.25,
				Indicators: []string{"DCControl", "GuardMetros", "ICEDetentions", "DHSRemoval", "HillLegislation", "LibertyLitigation"},
				Critical:   []string{"GuardMetros", "DHSRemoval"},
			},
			{
				Name:       "watchlist",
				Weight:     0.75,
				Indicators: []string{"AGIMilestones", "SchoolClosures"},
			},
		},
		PairCaps: []PairCapConfig{
			// Two views of the same detention system.
			{Indicators: []string{"ICEDetentions", "DHSRemoval"}, Domain: "domestic_control", CapFactor: 1.0},
			// Settlement share and discounted-crude flows track one event.
			{Indicators: []string{"MBridgeSettlements", "CREAOil"}, Domain: "oil_axis", CapFactor: 1.5},
			// Both measure Taiwan-strait military pressure.
			{Indicators: []string{"TaiwanPLA", "GlobalConflict"}, Domain: "global_conflict", CapFactor: 2.0},
		},
		CompositeWeights: map[string]float64{
			"global_conflict":         1.5,
			"security_infrastructure": 1.25,
			"domestic_control":        1.25,
		},
		Staleness:    StalenessConfig{AmberHours: 48, RedHours: 168},
		Confirmation: ConfirmationConfig{RequiredPolls: 2, WindowMinutes: 60},
		Bands: []PhaseBand{
			{Phase: 0, Name: "Normal Operations", Headline: "Normal routines; skills & fitness", MaxScore: 0.10, RequireNoAmbers: true},
			{Phase: 1, Name: "72-Hour Ready", Headline: "72-h kit verified; contact sheet", MaxScore: 0.20, OrAmbers: 1},
			{Phase: 2, Name: "Digital & Comms", Headline: "Digital hygiene & comms live", MaxScore: 0.30, OrAmbers: 2},
			{Phase: 2.5, Name: "Liquidity Buffer", Headline: "Liquidity/docs buffer; passports on person", MaxScore: 0.35},
			{Phase: 3, Name: "Health Prep", Headline: "HEPA/N95 ready; avoid hotspots", MaxScore: 0.45, OrConfirmedRed: true},
			{Phase: 4, Name: "Light Restrictions", Headline: "Light curfew; top off cash/fuel", MaxScore: 0.55, MinHighDomains: 1},
			{Phase: 5, Name: "Generator Prep", Headline: "Generator prep/day-tank; meds 60-90d", MaxScore: 0.65, MinHighDomains: 2},
			{Phase: 6, Name: "Shelter Active", Headline: "Shelter nook active; roles matrix", MaxScore: 0.75, MinHighDomains: 2},
			{Phase: 7, Name: "Hardened Operations", Headline: "Harden nook; genset/ATS live; WFH", MaxScore: 0.85, MinHighDomains: 3},
			{Phase: 8, Name: "Water & Movement", Headline: "Water totes/filters; limited movement", MaxScore: 0.95, MinHighDomains: 4},
			{Phase: 9, Name: "Full Emergency", Headline: "Full emergency posture", MaxScore: 1.01},
		},
		CriticalRules: []CriticalRule{
			{
				Name:        "market_deepfake_crisis",
				Indicators:  []string{"MarketVolatility", "DeepfakeShocks"},
				MinPhase:    7,
				WindowHours: 3,
			},
			{
				Name:       "nato_activation",
				Indicators: []string{"NATOReadiness"},
				MinPhase:   6,
				Bump:       &RuleBump{Indicator: "RussiaNATO", MinValue: 75, PhaseBump: 1},
			},
			{
				Name:       "guard_deployment",
				Indicators: []string{"GuardMetros"},
				MinPhase:   5,
			},
			{
				Name:       "dhs_powers_expansion",
				Indicators: []string{"DHSRemoval"},
				MinPhase:   5,
			},
		},
		Actions: map[string][]string{
			"0":   {"Continue normal routines", "Maintain fitness and skills training", "Review emergency contacts"},
			"1":   {"Verify 72-hour kit contents", "Update contact sheet", "Test emergency communications"},
			"2":   {"Complete digital security audit", "Test backup communications", "Review financial accounts"},
			"2.5": {"Increase cash reserves", "Ensure passports accessible", "Review evacuation routes"},
			"3":   {"Stock N95/HEPA supplies", "Avoid crowded venues", "Top off medications"},
			"4":   {"Implement light curfew", "Fill vehicle fuel tanks", "Maximize cash on hand"},
			"5":   {"Prepare generator/fuel", "Stock 60-90 day medications", "Reduce unnecessary travel"},
			"6":   {"Activate shelter preparations", "Implement roles matrix", "Begin remote work if possible"},
			"7":   {"Harden shelter space", "Generator/ATS operational", "Full work from home"},
			"8":   {"Fill water storage", "Minimize all movement", "Monitor emergency channels only"},
			"9":   {"Full emergency posture", "Shelter in place", "Execute contingency plans"},
		},
		Collect: CollectConfig{TimeoutSecs: 30},
		Watch:   WatchConfig{IntervalSecs: 3600},
		Store:   StoreConfig{Driver: "sqlite", Path: "watchtower.db"},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}
