package advisor

import (
	"fmt"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/ads"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/catalog"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/pricing"
)

// Severity of an advisory
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Advisory is one rendered recommendation
type Advisory struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Build turns the analytics of one listing into an ordered list of advisories:
// pricing, shipping policy, seller tier, ads efficiency, then ads status.
// Classification and ads analysis are optional.
func Build(price pricing.PriceResolution, costs pricing.CostBreakdown, classification *catalog.Classification, analysis *ads.Analysis) []Advisory {
	var out []Advisory
	out = append(out, pricingAdvisories(price, costs, classification)...)
	out = append(out, shippingAdvisories(classification)...)
	out = append(out, sellerTierAdvisories(classification)...)
	out = append(out, adsEfficiencyAdvisories(analysis)...)
	out = append(out, adsStatusAdvisories(analysis)...)
	return out
}

func pricingAdvisories(price pricing.PriceResolution, costs pricing.CostBreakdown, c *catalog.Classification) []Advisory {
	var out []Advisory

	if costs.NetProfit < 0 {
		out = append(out, Advisory{
			Severity: SeverityError,
			Code:     "negative_profit",
			Message:  fmt.Sprintf("Selling at %s loses %s per unit after fees and costs.", money(price.Current), money(-costs.NetProfit)),
		})
	}

	if c == nil {
		return out
	}

	if s := c.Stats; s != nil {
		switch c.PricePosition {
		case catalog.PriceBelowMin:
			out = append(out, Advisory{SeveritySuccess, "price_below_min",
				fmt.Sprintf("Your price %s is below the lowest competitor (%s).", money(c.OwnPrice), money(s.MinPrice))})
		case catalog.PriceAboveMax:
			out = append(out, Advisory{SeverityWarning, "price_above_max",
				fmt.Sprintf("Your price %s is above every competitor (highest %s).", money(c.OwnPrice), money(s.MaxPrice))})
		case catalog.PriceAboveAvg:
			out = append(out, Advisory{SeverityWarning, "price_above_avg",
				fmt.Sprintf("Your price %s is above the competitor average of %s.", money(c.OwnPrice), money(s.AvgPrice))})
		case catalog.PriceWithinRange:
			out = append(out, Advisory{SeveritySuccess, "price_within_range",
				fmt.Sprintf("Your price %s is within the competitor range (%s to %s), rank %d of %d.",
					money(c.OwnPrice), money(s.MinPrice), money(s.MaxPrice), s.OwnRank, s.Count+1)})
		}
	}

	switch c.Status {
	case models.CatalogStatusCompeting:
		if c.PriceToWin != nil && *c.PriceToWin > 0 {
			out = append(out, Advisory{SeverityWarning, "price_to_win",
				fmt.Sprintf("Reduce the price to %s to win the catalog buy box.", money(*c.PriceToWin))})
		}
	case models.CatalogStatusWinning:
		out = append(out, Advisory{SeveritySuccess, "catalog_winning", "Your listing is winning the catalog buy box."})
	case models.CatalogStatusSharingFirstPlace:
		out = append(out, Advisory{SeverityInfo, "catalog_sharing",
			"You share first place in the catalog. A small price or shipping advantage can secure the buy box."})
	}

	if c.VisitShare == catalog.VisitShareMinimum {
		out = append(out, Advisory{SeverityWarning, "low_visibility",
			"Your listing receives a minimum share of catalog visits."})
	}

	return out
}

func shippingAdvisories(c *catalog.Classification) []Advisory {
	if c == nil || c.Stats == nil {
		return nil
	}
	var out []Advisory
	s := c.Stats

	if s.FreeShipping*2 > s.Count && !c.OwnFreeShipping {
		out = append(out, Advisory{SeverityWarning, "offer_free_shipping",
			fmt.Sprintf("%d of %d competitors offer free shipping. Consider offering it too.", s.FreeShipping, s.Count)})
	}
	if s.LogisticTypes.Fulfillment > 0 && c.OwnLogisticType != "fulfillment" {
		out = append(out, Advisory{SeverityInfo, "activate_fulfillment",
			fmt.Sprintf("%d competitors ship with Mercado Envios Full. Activating Full can improve delivery time and ranking.", s.LogisticTypes.Fulfillment)})
	}
	return out
}

func sellerTierAdvisories(c *catalog.Classification) []Advisory {
	if c == nil || c.Stats == nil {
		return nil
	}
	s := c.Stats
	if s.GoldOrSilver()*2 <= s.Count {
		return nil
	}
	return []Advisory{{SeverityWarning, "strong_seller_tiers",
		fmt.Sprintf("%d of %d competitors are MercadoLíder gold or silver. Reputation weighs in the buy box.", s.GoldOrSilver(), s.Count)}}
}

func adsEfficiencyAdvisories(a *ads.Analysis) []Advisory {
	if a == nil {
		return nil
	}
	var out []Advisory
	for _, r := range a.Bands.Present() {
		out = append(out, bandAdvisory(r))
	}
	if adv, ok := budgetAdvisory(a.CostAllocation); ok {
		out = append(out, adv)
	}
	return out
}

func adsStatusAdvisories(a *ads.Analysis) []Advisory {
	if a == nil || a.StatusAdvice == nil {
		return nil
	}
	severity := SeverityInfo
	if a.StatusAdvice.Code == ads.AdviceSuspended {
		severity = SeverityWarning
	}
	return []Advisory{{severity, a.StatusAdvice.Code, a.StatusAdvice.Message}}
}

func money(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}
