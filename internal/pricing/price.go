package pricing

import (
	"math"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// PriceResolution is the effective price of a listing and its promotion state
type PriceResolution struct {
	Current         float64 `json:"current"`
	Original        float64 `json:"original"`
	IsOnSale        bool    `json:"is_on_sale"`
	DiscountPercent int     `json:"discount_percent"`
}

// ResolvePrice picks the current and original price of a listing across the
// legacy and new marketplace price fields. Precedence: sale_price object,
// then original_price, then base_price.
func ResolvePrice(listing models.Listing) (PriceResolution, error) {
	if listing.Price < 0 {
		return PriceResolution{}, models.NewNegativeValueError("price", listing.Price)
	}

	res := PriceResolution{Current: listing.Price, Original: listing.Price}

	switch {
	case listing.SalePriceInfo != nil && listing.SalePriceInfo.RegularAmount > listing.SalePriceInfo.Amount:
		if listing.SalePriceInfo.Amount < 0 {
			return PriceResolution{}, models.NewNegativeValueError("sale_price.amount", listing.SalePriceInfo.Amount)
		}
		res.Current = listing.SalePriceInfo.Amount
		res.Original = listing.SalePriceInfo.RegularAmount
		res.IsOnSale = true

	case listing.OriginalPrice != nil && *listing.OriginalPrice > listing.Price:
		res.Original = *listing.OriginalPrice
		res.IsOnSale = true

	case listing.BasePrice != nil && *listing.BasePrice != listing.Price && listing.OriginalPrice == nil:
		res.Original = *listing.BasePrice
		res.IsOnSale = res.Original > res.Current
	}

	if res.IsOnSale && res.Original > 0 {
		res.DiscountPercent = int(math.Round((res.Original - res.Current) / res.Original * 100))
	}

	return res, nil
}
