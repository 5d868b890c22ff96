package catalog

import (
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// SellerTierCounts partitions competitors by MercadoLíder status
type SellerTierCounts struct {
	Gold   int `json:"gold"`
	Silver int `json:"silver"`
	Bronze int `json:"bronze"`
	None   int `json:"none"`
}

// LogisticCounts partitions competitors by logistic type
type LogisticCounts struct {
	Fulfillment  int `json:"fulfillment"`
	DropOff      int `json:"drop_off"`
	XDDropOff    int `json:"xd_drop_off"`
	SelfService  int `json:"self_service"`
	CrossDocking int `json:"cross_docking"`
	Other        int `json:"other"`
}

// Stats summarizes the competitor set of a catalog product
type Stats struct {
	Count              int              `json:"count"`
	MinPrice           float64          `json:"min_price"`
	MaxPrice           float64          `json:"max_price"`
	AvgPrice           float64          `json:"avg_price"`
	OwnRank            int              `json:"own_rank"`
	SellerTiers        SellerTierCounts `json:"seller_tiers"`
	LogisticTypes      LogisticCounts   `json:"logistic_types"`
	FreeShipping       int              `json:"free_shipping"`
	PaidShipping       int              `json:"paid_shipping"`
	ShippingModeME2    int              `json:"shipping_mode_me2"`
	ShippingModeCustom int              `json:"shipping_mode_custom"`
}

// ComputeStats returns nil for an empty competitor set
func ComputeStats(ownPrice float64, competitors []models.CompetitorOffer) *Stats {
	if len(competitors) == 0 {
		return nil
	}

	prices := make([]float64, len(competitors))
	for i, c := range competitors {
		prices[i] = c.Price
	}

	s := &Stats{
		Count:    len(competitors),
		MinPrice: floats.Min(prices),
		MaxPrice: floats.Max(prices),
		AvgPrice: stat.Mean(prices, nil),
		OwnRank:  1,
	}

	for _, c := range competitors {
		// ties are not cheaper
		if c.Price < ownPrice {
			s.OwnRank++
		}

		s.SellerTiers.add(c.Seller.PowerSellerStatus)
		s.LogisticTypes.add(c.Shipping.LogisticType)

		if c.Shipping.FreeShipping {
			s.FreeShipping++
		} else {
			s.PaidShipping++
		}

		switch strings.ToLower(c.Shipping.Mode) {
		case "me2":
			s.ShippingModeME2++
		case "custom":
			s.ShippingModeCustom++
		}
	}

	return s
}

// GoldOrSilver is the number of competitors holding a gold or silver tier
func (s *Stats) GoldOrSilver() int {
	return s.SellerTiers.Gold + s.SellerTiers.Silver
}

func (c *SellerTierCounts) add(status string) {
	switch strings.ToLower(status) {
	case "platinum", "gold":
		// platinum is the tier above gold
		c.Gold++
	case "silver":
		c.Silver++
	case "bronze":
		c.Bronze++
	default:
		c.None++
	}
}

func (c *LogisticCounts) add(logisticType string) {
	switch strings.ToLower(logisticType) {
	case "fulfillment":
		c.Fulfillment++
	case "drop_off":
		c.DropOff++
	case "xd_drop_off":
		c.XDDropOff++
	case "self_service":
		c.SelfService++
	case "cross_docking":
		c.CrossDocking++
	default:
		c.Other++
	}
}
