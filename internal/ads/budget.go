package ads

import (
	"math"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// BudgetBand grades the deviation between actual and planned ads spend
type BudgetBand string

const (
	BudgetOnBudget         BudgetBand = "on-budget"
	BudgetWatch            BudgetBand = "watch"
	BudgetOverBudget       BudgetBand = "over-budget"
	BudgetExcellentSavings BudgetBand = "excellent-savings"
)

// Scenario compares spend with the plan for a given number of units
type Scenario struct {
	Units            int        `json:"units"`
	MaxPlannedCost   float64    `json:"max_planned_cost"`
	ActualCost       float64    `json:"actual_cost"`
	DeviationPercent float64    `json:"deviation_percent"`
	Band             BudgetBand `json:"band"`
	// OverPlan is true when spend exceeded the plan; it gives the watch band its direction
	OverPlan bool `json:"over_plan"`
}

// CostAllocation holds the paid-units and all-units readings
type CostAllocation struct {
	PlannedCostPerUnit float64  `json:"planned_cost_per_unit"`
	PaidUnits          Scenario `json:"paid_units"`
	AllUnits           Scenario `json:"all_units"`
}

func AllocateCost(m models.AdsMetrics, listingPrice, adsCostPercent float64) CostAllocation {
	perUnit := listingPrice * adsCostPercent / 100
	return CostAllocation{
		PlannedCostPerUnit: round2(perUnit),
		PaidUnits:          scenario(m.Cost, perUnit, m.UnitsQuantity),
		AllUnits:           scenario(m.Cost, perUnit, m.UnitsQuantity+m.OrganicUnitsQuantity),
	}
}

func scenario(cost, perUnit float64, units int) Scenario {
	maxPlanned := perUnit * float64(units)
	deviation := 0.0
	if maxPlanned != 0 {
		deviation = (cost - maxPlanned) / maxPlanned * 100
	}
	return Scenario{
		Units:            units,
		MaxPlannedCost:   round2(maxPlanned),
		ActualCost:       round2(cost),
		DeviationPercent: round2(deviation),
		Band:             BudgetBandFor(deviation),
		OverPlan:         deviation > 0,
	}
}

// BudgetBandFor bands a deviation percentage; the sign decides the far band
func BudgetBandFor(deviation float64) BudgetBand {
	switch abs := math.Abs(deviation); {
	case abs <= 10:
		return BudgetOnBudget
	case abs <= 25:
		return BudgetWatch
	case deviation > 0:
		return BudgetOverBudget
	default:
		return BudgetExcellentSavings
	}
}
