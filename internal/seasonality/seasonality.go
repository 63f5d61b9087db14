package seasonality

import (
	"github.com/andresuchdata/replenish/internal/domain"
)

// Category names known to the model. Anything else resolves to General.
const (
	General        = "general"
	Snowboards     = "snowboards"
	SummerSports   = "summer-sports"
	OutdoorApparel = "outdoor-apparel"
	HolidayGifts   = "holiday-gifts"
)

// Months are zero-based: 0 is January.
var defaultPatterns = map[string]domain.SeasonalityPattern{
	General: {
		Category:        General,
		PeakFactor:      1.0,
		OffSeasonFactor: 1.0,
	},
	Snowboards: {
		Category:        Snowboards,
		PeakMonths:      []int{10, 11, 0, 1},
		OffSeasonMonths: []int{5, 6},
		PeakFactor:      1.3,
		OffSeasonFactor: 0.7,
	},
	SummerSports: {
		Category:        SummerSports,
		PeakMonths:      []int{4, 5, 6, 7},
		OffSeasonMonths: []int{11, 0},
		PeakFactor:      1.3,
		OffSeasonFactor: 0.7,
	},
	OutdoorApparel: {
		Category:        OutdoorApparel,
		PeakMonths:      []int{8, 9, 10},
		OffSeasonMonths: []int{3, 4},
		PeakFactor:      1.2,
		OffSeasonFactor: 0.85,
	},
	HolidayGifts: {
		Category:        HolidayGifts,
		PeakMonths:      []int{10, 11},
		OffSeasonMonths: []int{0, 1},
		PeakFactor:      1.5,
		OffSeasonFactor: 0.8,
	},
}

// Model maps a category and month to a demand multiplier. It is read-only
// after construction and safe for concurrent use.
type Model struct {
	patterns map[string]domain.SeasonalityPattern
}

// NewModel returns a model over the built-in category table.
func NewModel() *Model {
	return &Model{patterns: defaultPatterns}
}

// NewModelWithPatterns builds a model from custom reference data. Every
// pattern must have PeakFactor > OffSeasonFactor, unless it has no bands.
func NewModelWithPatterns(patterns []domain.SeasonalityPattern) (*Model, error) {
	m := &Model{patterns: make(map[string]domain.SeasonalityPattern, len(patterns)+1)}
	m.patterns[General] = defaultPatterns[General]

	for _, p := range patterns {
		if p.Category == "" {
			return nil, domain.NewInvalidInput("category", p.Category, "must not be empty")
		}
		hasBands := len(p.PeakMonths) > 0 || len(p.OffSeasonMonths) > 0
		if hasBands && p.PeakFactor <= p.OffSeasonFactor {
			return nil, domain.NewInvalidInput("peak_factor", p.PeakFactor, "must exceed off_season_factor")
		}
		if p.PeakFactor <= 0 || p.OffSeasonFactor <= 0 {
			return nil, domain.NewInvalidInput("factor", p.Category, "factors must be positive")
		}
		for _, months := range [][]int{p.PeakMonths, p.OffSeasonMonths} {
			for _, month := range months {
				if err := validateMonth(month); err != nil {
					return nil, err
				}
			}
		}
		m.patterns[p.Category] = p
	}

	return m, nil
}

// Pattern returns the pattern for category, falling back to General.
func (m *Model) Pattern(category string) domain.SeasonalityPattern {
	if p, ok := m.patterns[category]; ok {
		return p
	}
	return m.patterns[General]
}

// Factor returns the demand multiplier for category in month.
func (m *Model) Factor(category string, month int) (float64, error) {
	if err := validateMonth(month); err != nil {
		return 0, err
	}

	p := m.Pattern(category)
	switch {
	case contains(p.PeakMonths, month):
		return p.PeakFactor, nil
	case contains(p.OffSeasonMonths, month):
		return p.OffSeasonFactor, nil
	default:
		return 1.0, nil
	}
}

// AdjustedSales scales an average daily sales figure by the month's factor.
func (m *Model) AdjustedSales(avgDailySales float64, category string, month int) (float64, error) {
	if avgDailySales < 0 {
		return 0, domain.NewInvalidInput("avg_daily_sales", avgDailySales, "must be non-negative")
	}
	factor, err := m.Factor(category, month)
	if err != nil {
		return 0, err
	}
	return avgDailySales * factor, nil
}

// IsPeakSeason reports whether month falls inside the category's peak band.
func (m *Model) IsPeakSeason(category string, month int) (bool, error) {
	if err := validateMonth(month); err != nil {
		return false, err
	}
	return contains(m.Pattern(category).PeakMonths, month), nil
}

// MonthsUntilPeak returns how many months remain until the next peak month.
// It is 0 while in peak and for categories without a peak band.
func (m *Model) MonthsUntilPeak(category string, month int) (int, error) {
	if err := validateMonth(month); err != nil {
		return 0, err
	}

	peaks := m.Pattern(category).PeakMonths
	if len(peaks) == 0 || contains(peaks, month) {
		return 0, nil
	}

	best := 12
	for _, p := range peaks {
		d := (p - month + 12) % 12
		if d < best {
			best = d
		}
	}
	return best, nil
}

// Season names the meteorological (northern hemisphere) season of month.
func Season(month int) (string, error) {
	if err := validateMonth(month); err != nil {
		return "", err
	}
	switch month {
	case 11, 0, 1:
		return "winter", nil
	case 2, 3, 4:
		return "spring", nil
	case 5, 6, 7:
		return "summer", nil
	default:
		return "fall", nil
	}
}

func validateMonth(month int) error {
	if month < 0 || month > 11 {
		return domain.NewInvalidInput("month", month, "must be between 0 and 11")
	}
	return nil
}

func contains(months []int, month int) bool {
	for _, m := range months {
		if m == month {
			return true
		}
	}
	return false
}
