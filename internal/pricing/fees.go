package pricing

// Listing types of the marketplace that carry a fixed listing fee
const (
	ListingTypeGoldSpecial = "gold_special"
	ListingTypeGoldPro     = "gold_pro"
	ListingTypeGold        = "gold"
)

// DefaultSaleFeePercentage is used when the listing_prices API gave no answer
const DefaultSaleFeePercentage = 12.0

// FeeEstimate is a rough fee structure for a listing type
type FeeEstimate struct {
	ListingTypeID     string  `json:"listing_type_id"`
	ListingFeeAmount  float64 `json:"listing_fee_amount"`
	SaleFeePercentage float64 `json:"sale_fee_percentage"`
	SaleFeeAmount     float64 `json:"sale_fee_amount"`
}

// EstimateFees approximates marketplace fees for a listing type when the
// listing_prices endpoint is unavailable.
func EstimateFees(listingTypeID string, price float64) FeeEstimate {
	estimate := FeeEstimate{
		ListingTypeID:     listingTypeID,
		SaleFeePercentage: DefaultSaleFeePercentage,
	}

	switch listingTypeID {
	case ListingTypeGoldSpecial, ListingTypeGoldPro:
		estimate.ListingFeeAmount = 15.90
	case ListingTypeGold:
		estimate.ListingFeeAmount = 7.90
	}

	if price > 0 {
		estimate.SaleFeeAmount = cents(positive(price).Mul(positive(DefaultSaleFeePercentage)).Div(hundred))
	}
	return estimate
}
