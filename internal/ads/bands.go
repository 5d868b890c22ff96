package ads

import "github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"

// Band is an efficiency grade
type Band string

const (
	BandExcellent Band = "excellent"
	BandModerate  Band = "moderate"
	BandPoor      Band = "poor"
)

// Metric names used in band results
const (
	MetricACOS  = "acos"
	MetricCTR   = "ctr"
	MetricROAS  = "roas"
	MetricTACOS = "tacos"
)

// BandResult is one graded metric
type BandResult struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Band   Band    `json:"band"`
}

// EfficiencyBands holds a result for every metric the snapshot carries
type EfficiencyBands struct {
	ACOS  *BandResult `json:"acos,omitempty"`
	CTR   *BandResult `json:"ctr,omitempty"`
	ROAS  *BandResult `json:"roas,omitempty"`
	TACOS *BandResult `json:"tacos,omitempty"`
}

// Present returns the graded metrics in advisory order
func (b EfficiencyBands) Present() []BandResult {
	var out []BandResult
	for _, r := range []*BandResult{b.ACOS, b.CTR, b.ROAS, b.TACOS} {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func ClassifyEfficiency(m models.AdsMetrics) EfficiencyBands {
	var b EfficiencyBands
	if m.ACOS != nil {
		b.ACOS = &BandResult{Metric: MetricACOS, Value: *m.ACOS, Band: ACOSBand(*m.ACOS)}
	}
	if m.CTR != nil {
		b.CTR = &BandResult{Metric: MetricCTR, Value: *m.CTR, Band: CTRBand(*m.CTR)}
	}
	if m.ROAS != nil {
		b.ROAS = &BandResult{Metric: MetricROAS, Value: *m.ROAS, Band: ROASBand(*m.ROAS)}
	}
	if m.TACOS != nil {
		b.TACOS = &BandResult{Metric: MetricTACOS, Value: *m.TACOS, Band: TACOSBand(*m.TACOS)}
	}
	return b
}

// ACOSBand grades ad spend over ad revenue, in percent
func ACOSBand(acos float64) Band {
	switch {
	case acos < 10:
		return BandExcellent
	case acos < 20:
		return BandModerate
	default:
		return BandPoor
	}
}

// CTRBand grades click-through rate as a fraction
func CTRBand(ctr float64) Band {
	switch {
	case ctr > 0.02:
		return BandExcellent
	case ctr > 0.01:
		return BandModerate
	default:
		return BandPoor
	}
}

func ROASBand(roas float64) Band {
	switch {
	case roas > 4:
		return BandExcellent
	case roas > 2:
		return BandModerate
	default:
		return BandPoor
	}
}

// TACOSBand grades ad spend over total revenue, in percent
func TACOSBand(tacos float64) Band {
	switch {
	case tacos < 5:
		return BandExcellent
	case tacos < 10:
		return BandModerate
	default:
		return BandPoor
	}
}
