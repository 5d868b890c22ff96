package models

import "sort"

// AdsStatus is the status of a product-ads campaign item
type AdsStatus string

const (
	AdsStatusActive    AdsStatus = "active"
	AdsStatusPaused    AdsStatus = "paused"
	AdsStatusHold      AdsStatus = "hold"
	AdsStatusIdle      AdsStatus = "idle"
	AdsStatusDelegated AdsStatus = "delegated"
	AdsStatusRevoked   AdsStatus = "revoked"
)

// AdsPeriods are the reporting windows synced from the ads API, in days
var AdsPeriods = []int{7, 15, 30, 60, 90}

// AdsMetrics holds the advertising performance of one listing over one period
type AdsMetrics struct {
	ListingID  string    `json:"listing_id,omitempty"`
	PeriodDays int       `json:"period_days"`
	Status     AdsStatus `json:"status"`

	Cost   float64  `json:"cost"`
	CPC    *float64 `json:"cpc,omitempty"`
	Prints int      `json:"prints"`
	Clicks int      `json:"clicks"`
	CTR    *float64 `json:"ctr,omitempty"`
	CVR    *float64 `json:"cvr,omitempty"`
	ACOS   *float64 `json:"acos,omitempty"`
	TACOS  *float64 `json:"tacos,omitempty"`
	ROAS   *float64 `json:"roas,omitempty"`

	OrganicItemsQuantity  int `json:"organic_items_quantity"`
	DirectItemsQuantity   int `json:"direct_items_quantity"`
	IndirectItemsQuantity int `json:"indirect_items_quantity"`
	UnitsQuantity         int `json:"units_quantity"`
	OrganicUnitsQuantity  int `json:"organic_units_quantity"`

	OrganicUnitsAmount float64 `json:"organic_units_amount"`
	DirectAmount       float64 `json:"direct_amount"`
	IndirectAmount     float64 `json:"indirect_amount"`
	TotalAmount        float64 `json:"total_amount"`
}

// AdsMetricsSet keeps at most one AdsMetrics per period. Put replaces.
type AdsMetricsSet struct {
	byPeriod map[int]AdsMetrics
}

func NewAdsMetricsSet(metrics ...AdsMetrics) *AdsMetricsSet {
	set := &AdsMetricsSet{byPeriod: make(map[int]AdsMetrics)}
	for _, m := range metrics {
		set.Put(m)
	}
	return set
}

func (s *AdsMetricsSet) Put(m AdsMetrics) {
	s.byPeriod[m.PeriodDays] = m
}

func (s *AdsMetricsSet) Get(periodDays int) (AdsMetrics, bool) {
	m, ok := s.byPeriod[periodDays]
	return m, ok
}

// Periods returns the stored periods in ascending order
func (s *AdsMetricsSet) Periods() []int {
	periods := make([]int, 0, len(s.byPeriod))
	for p := range s.byPeriod {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	return periods
}
