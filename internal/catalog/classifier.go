package catalog

import (
	"fmt"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// PricePosition places the listing price against the competitor price range
type PricePosition string

const (
	PriceBelowMin    PricePosition = "below-min"
	PriceAboveMax    PricePosition = "above-max"
	PriceAboveAvg    PricePosition = "above-avg"
	PriceWithinRange PricePosition = "within-range"
)

// Visit share levels reported by the catalog API
const (
	VisitShareMaximum = "maximum"
	VisitShareMedium  = "medium"
	VisitShareMinimum = "minimum"
)

// Classification is the catalog position of one listing
type Classification struct {
	Status             models.CatalogStatus `json:"status"`
	IsCatalogListing   bool                 `json:"is_catalog_listing"`
	Description        string               `json:"description"`
	Position           string               `json:"position,omitempty"`
	VisitShare         string               `json:"visit_share,omitempty"`
	CompetitorsSharing int                  `json:"competitors_sharing"`
	PriceToWin         *float64             `json:"price_to_win,omitempty"`
	OwnPrice           float64              `json:"own_price"`
	OwnFreeShipping    bool                 `json:"own_free_shipping"`
	OwnLogisticType    string               `json:"own_logistic_type,omitempty"`
	PricePosition      PricePosition        `json:"price_position,omitempty"`
	Stats              *Stats               `json:"stats"`
}

// Classify derives the catalog status of a listing and summarizes its competitors.
// The listing's own offer is left out of the statistics when it appears in competitors.
func Classify(listing models.Listing, competitors []models.CompetitorOffer) (Classification, error) {
	if listing.Price < 0 {
		return Classification{}, models.NewNegativeValueError("price", listing.Price)
	}

	rivals := make([]models.CompetitorOffer, 0, len(competitors))
	for i, c := range competitors {
		if c.Price < 0 {
			return Classification{}, models.NewNegativeValueError(fmt.Sprintf("competitors[%d].price", i), c.Price)
		}
		if listing.ID != "" && c.ItemID == listing.ID {
			continue
		}
		rivals = append(rivals, c)
	}

	sharing := 0
	if listing.CatalogCompetitorsSharing != nil && *listing.CatalogCompetitorsSharing > 0 {
		sharing = *listing.CatalogCompetitorsSharing
	}

	status := resolveStatus(listing.CatalogStatus, sharing)
	result := Classification{
		Status:             status,
		IsCatalogListing:   IsCatalogListing(listing),
		Description:        describe(status, sharing),
		VisitShare:         listing.CatalogVisitShare,
		CompetitorsSharing: sharing,
		PriceToWin:         listing.CatalogPriceToWin,
		OwnPrice:           listing.Price,
		OwnFreeShipping:    listing.FreeShipping,
		OwnLogisticType:    listing.LogisticType,
		Stats:              ComputeStats(listing.Price, rivals),
	}

	if status == models.CatalogStatusWinning || status == models.CatalogStatusSharingFirstPlace {
		result.Position = "1º"
	}
	if result.Stats != nil {
		result.PricePosition = positionOf(listing.Price, result.Stats)
	}

	return result, nil
}

// IsCatalogListing reports whether the listing takes part in a catalog product
func IsCatalogListing(listing models.Listing) bool {
	return listing.CatalogListing || listing.CatalogProductID != ""
}

// resolveStatus trusts the reported status; the sharing counter only fills in
// when the marketplace reported nothing usable.
func resolveStatus(reported models.CatalogStatus, sharing int) models.CatalogStatus {
	switch reported {
	case models.CatalogStatusWinning, models.CatalogStatusSharingFirstPlace,
		models.CatalogStatusCompeting, models.CatalogStatusListed:
		return reported
	}
	if sharing > 0 {
		return models.CatalogStatusSharingFirstPlace
	}
	return models.CatalogStatusUnknown
}

func describe(status models.CatalogStatus, sharing int) string {
	switch status {
	case models.CatalogStatusWinning:
		return "Winning the catalog buy box"
	case models.CatalogStatusSharingFirstPlace:
		if sharing == 1 {
			return "Sharing first place with 1 seller"
		}
		if sharing > 1 {
			return fmt.Sprintf("Sharing first place with %d sellers", sharing)
		}
		return "Sharing first place"
	case models.CatalogStatusCompeting:
		return "Competing for the catalog buy box"
	case models.CatalogStatusListed:
		return "Listed in the catalog"
	default:
		return "Not part of the catalog program"
	}
}

func positionOf(price float64, s *Stats) PricePosition {
	switch {
	case price < s.MinPrice:
		return PriceBelowMin
	case price > s.MaxPrice:
		return PriceAboveMax
	case price > s.AvgPrice:
		return PriceAboveAvg
	default:
		return PriceWithinRange
	}
}
