package ads

import (
	"fmt"
	"math"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// Analysis is the efficiency and budget reading of one AdsMetrics snapshot
type Analysis struct {
	ListingID      string           `json:"listing_id,omitempty"`
	PeriodDays     int              `json:"period_days"`
	Status         models.AdsStatus `json:"status"`
	Bands          EfficiencyBands  `json:"bands"`
	TACOSDerived   bool             `json:"tacos_derived"`
	CostAllocation CostAllocation   `json:"cost_allocation"`
	StatusAdvice   *StatusAdvice    `json:"status_advice,omitempty"`
}

// Analyze classifies the ads metrics of a listing and checks the spend against
// the planned ads cost, which is adsCostPercent of listingPrice per unit sold.
func Analyze(metrics models.AdsMetrics, listingPrice, adsCostPercent float64) (Analysis, error) {
	if err := Validate(metrics); err != nil {
		return Analysis{}, err
	}
	if listingPrice < 0 {
		return Analysis{}, models.NewNegativeValueError("listing_price", listingPrice)
	}

	derived := metrics.TACOS == nil
	metrics = DeriveTACOS(metrics)
	derived = derived && metrics.TACOS != nil

	return Analysis{
		ListingID:      metrics.ListingID,
		PeriodDays:     metrics.PeriodDays,
		Status:         metrics.Status,
		Bands:          ClassifyEfficiency(metrics),
		TACOSDerived:   derived,
		CostAllocation: AllocateCost(metrics, listingPrice, models.NewAmount(adsCostPercent).Value()),
		StatusAdvice:   AdviseStatus(metrics.Status),
	}, nil
}

// Validate rejects negative spend and negative counters
func Validate(m models.AdsMetrics) error {
	if m.PeriodDays != 0 && !ValidPeriod(m.PeriodDays) {
		return &models.InputDataError{Field: "period_days", Reason: fmt.Sprintf("unsupported period %d", m.PeriodDays)}
	}

	values := []struct {
		field string
		value float64
	}{
		{"cost", m.Cost},
		{"prints", float64(m.Prints)},
		{"clicks", float64(m.Clicks)},
		{"organic_items_quantity", float64(m.OrganicItemsQuantity)},
		{"direct_items_quantity", float64(m.DirectItemsQuantity)},
		{"indirect_items_quantity", float64(m.IndirectItemsQuantity)},
		{"units_quantity", float64(m.UnitsQuantity)},
		{"organic_units_quantity", float64(m.OrganicUnitsQuantity)},
	}
	for _, v := range values {
		if v.value < 0 {
			return models.NewNegativeValueError(v.field, v.value)
		}
	}
	return nil
}

// ValidPeriod reports whether days is one of the synced reporting windows
func ValidPeriod(days int) bool {
	for _, p := range models.AdsPeriods {
		if p == days {
			return true
		}
	}
	return false
}

// DeriveTACOS fills TACOS from spend over total revenue when the API omitted it
func DeriveTACOS(m models.AdsMetrics) models.AdsMetrics {
	if m.TACOS != nil {
		return m
	}
	revenue := m.TotalAmount + m.OrganicUnitsAmount
	if revenue <= 0 {
		return m
	}
	tacos := m.Cost / revenue * 100
	m.TACOS = &tacos
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
