package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// CommissionSource tells where the commission figure came from
type CommissionSource string

const (
	CommissionFromSaleFeeAmount CommissionSource = "sale_fee_amount"
	CommissionDerived           CommissionSource = "derived"
	CommissionEstimated         CommissionSource = "estimate"
)

// CostBreakdown is the per-unit cost and profit of one listing at its current price.
// MarkupPercent is profit over cost; MarginPercent is profit over price.
type CostBreakdown struct {
	ListingFeeAmount     float64          `json:"listing_fee_amount"`
	CommissionAmount     float64          `json:"commission_amount"`
	CommissionSource     CommissionSource `json:"commission_source"`
	TaxesAmount          float64          `json:"taxes_amount"`
	AdsCostAmount        float64          `json:"ads_cost_amount"`
	AdditionalCostsTotal float64          `json:"additional_costs_total"`
	TotalCost            float64          `json:"total_cost"`
	NetProfit            float64          `json:"net_profit"`
	MarkupPercent        float64          `json:"markup_percent"`
	MarginPercent        float64          `json:"margin_percent"`
}

var hundred = decimal.NewFromInt(100)

// ComputeCostBreakdown derives commission, total cost, net profit and markup for a listing.
// Optional cost fields that are missing or not positive contribute zero.
func ComputeCostBreakdown(listing models.Listing) (CostBreakdown, error) {
	if listing.Price < 0 {
		return CostBreakdown{}, models.NewNegativeValueError("price", listing.Price)
	}
	return computeBreakdown(listing, feeTerms{
		listingFee:     optional(listing.ListingFeeAmount),
		saleFeeAmount:  listing.SaleFeeAmount,
		saleFeePercent: optional(listing.SaleFeePercentage),
		saleFeeFixed:   optional(listing.SaleFeeFixed),
	}), nil
}

// ComputeCostBreakdownWithFallback behaves like ComputeCostBreakdown but falls
// back to EstimateFees when the listing carries no fee information at all.
func ComputeCostBreakdownWithFallback(listing models.Listing) (CostBreakdown, error) {
	if hasFeeData(listing) {
		return ComputeCostBreakdown(listing)
	}
	if listing.Price < 0 {
		return CostBreakdown{}, models.NewNegativeValueError("price", listing.Price)
	}

	estimate := EstimateFees(listing.ListingTypeID, listing.Price)
	breakdown := computeBreakdown(listing, feeTerms{
		listingFee:     estimate.ListingFeeAmount,
		saleFeePercent: estimate.SaleFeePercentage,
	})
	breakdown.CommissionSource = CommissionEstimated
	return breakdown, nil
}

type feeTerms struct {
	listingFee     float64
	saleFeeAmount  *float64
	saleFeePercent float64
	saleFeeFixed   float64
}

func computeBreakdown(listing models.Listing, fees feeTerms) CostBreakdown {
	price := decimal.NewFromFloat(listing.Price)

	commission := price.Mul(positive(fees.saleFeePercent)).Div(hundred).Add(positive(fees.saleFeeFixed))
	source := CommissionDerived
	if fees.saleFeeAmount != nil {
		commission = positive(*fees.saleFeeAmount)
		source = CommissionFromSaleFeeAmount
	}

	taxes := price.Mul(decimal.NewFromFloat(listing.TaxesPercent.Value())).Div(hundred)
	adsCost := price.Mul(decimal.NewFromFloat(listing.AdsCostPercent.Value())).Div(hundred)
	additional := decimal.NewFromFloat(listing.ProductCost.Value()).
		Add(decimal.NewFromFloat(listing.ShippingCost.Value())).
		Add(taxes).
		Add(adsCost).
		Add(decimal.NewFromFloat(listing.AdditionalFees.Value()))

	listingFee := positive(fees.listingFee)
	total := listingFee.Add(commission).Add(additional)
	profit := price.Sub(total)

	breakdown := CostBreakdown{
		ListingFeeAmount:     cents(listingFee),
		CommissionAmount:     cents(commission),
		CommissionSource:     source,
		TaxesAmount:          cents(taxes),
		AdsCostAmount:        cents(adsCost),
		AdditionalCostsTotal: cents(additional),
		TotalCost:            cents(total),
		NetProfit:            cents(profit),
	}
	if total.IsPositive() {
		breakdown.MarkupPercent = cents(profit.Div(total).Mul(hundred))
	}
	if price.IsPositive() {
		breakdown.MarginPercent = cents(profit.Div(price).Mul(hundred))
	}
	return breakdown
}

func hasFeeData(listing models.Listing) bool {
	return listing.ListingFeeAmount != nil || listing.SaleFeeAmount != nil ||
		listing.SaleFeePercentage != nil || listing.SaleFeeFixed != nil
}

func optional(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func positive(v float64) decimal.Decimal {
	return decimal.NewFromFloat(models.NewAmount(v).Value())
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
