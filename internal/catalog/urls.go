package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

const (
	itemBaseURL    = "https://produto.mercadolivre.com.br/"
	productBaseURL = "https://www.mercadolivre.com.br/p/"
)

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify turns a listing title into the path fragment used by item pages
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CompetitorURL builds the public item page of an offer from its id and title
func CompetitorURL(offer models.CompetitorOffer) string {
	slug := Slugify(offer.Title)
	if slug == "" {
		return itemBaseURL + offer.ItemID
	}
	return itemBaseURL + offer.ItemID + "-" + slug
}

// EffectiveURL returns the seller-curated URL when there is one, otherwise the discovered one
func EffectiveURL(offer models.CompetitorOffer) string {
	switch {
	case offer.ManualURL != "":
		return offer.ManualURL
	case offer.URL != "":
		return offer.URL
	case offer.Permalink != "":
		return offer.Permalink
	default:
		return CompetitorURL(offer)
	}
}

// ProductURL is the catalog product page
func ProductURL(catalogProductID string) string {
	return productBaseURL + catalogProductID
}

// SortByPrice returns a copy of the offers ordered by ascending price
func SortByPrice(offers []models.CompetitorOffer) []models.CompetitorOffer {
	sorted := make([]models.CompetitorOffer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	return sorted
}
