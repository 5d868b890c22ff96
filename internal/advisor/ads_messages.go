package advisor

import (
	"fmt"
	"strings"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/ads"
)

var bandSeverity = map[ads.Band]Severity{
	ads.BandExcellent: SeveritySuccess,
	ads.BandModerate:  SeverityInfo,
	ads.BandPoor:      SeverityWarning,
}

func bandAdvisory(r ads.BandResult) Advisory {
	var value string
	switch r.Metric {
	case ads.MetricCTR:
		value = fmt.Sprintf("%.2f%%", r.Value*100)
	case ads.MetricROAS:
		value = fmt.Sprintf("%.2fx", r.Value)
	default:
		value = fmt.Sprintf("%.2f%%", r.Value)
	}

	return Advisory{
		Severity: bandSeverity[r.Band],
		Code:     r.Metric + "_" + string(r.Band),
		Message:  fmt.Sprintf("%s of %s is %s.", strings.ToUpper(r.Metric), value, r.Band),
	}
}

// budgetAdvisory reads the paid-units scenario; nothing is said without a plan
func budgetAdvisory(c ads.CostAllocation) (Advisory, bool) {
	s := c.PaidUnits
	if s.MaxPlannedCost <= 0 {
		return Advisory{}, false
	}

	detail := fmt.Sprintf("ads spend %s against a plan of %s (%+.1f%%)", money(s.ActualCost), money(s.MaxPlannedCost), s.DeviationPercent)
	switch s.Band {
	case ads.BudgetOnBudget:
		return Advisory{SeveritySuccess, "ads_on_budget", "On budget: " + detail + "."}, true
	case ads.BudgetWatch:
		if s.OverPlan {
			return Advisory{SeverityWarning, "ads_watch_over", "Slightly over budget: " + detail + "."}, true
		}
		return Advisory{SeveritySuccess, "ads_watch_under", "Below budget: " + detail + "."}, true
	case ads.BudgetOverBudget:
		return Advisory{SeverityError, "ads_over_budget", "Over budget: " + detail + ". Review bids or pause low-return ads."}, true
	default:
		return Advisory{SeveritySuccess, "ads_excellent_savings", "Excellent savings: " + detail + "."}, true
	}
}
