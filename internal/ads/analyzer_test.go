package ads_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/ads"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

// TestACOSBand_Boundary tests the strict comparison at the excellent edge
func TestACOSBand_Boundary(t *testing.T) {
	assert.Equal(t, ads.BandModerate, ads.ACOSBand(10.0))
	assert.Equal(t, ads.BandExcellent, ads.ACOSBand(9.999))
	assert.Equal(t, ads.BandModerate, ads.ACOSBand(19.99))
	assert.Equal(t, ads.BandPoor, ads.ACOSBand(20))
}

// TestEfficiencyBands tests the thresholds of every metric
func TestEfficiencyBands(t *testing.T) {
	testCases := []struct {
		name     string
		band     func(float64) ads.Band
		value    float64
		expected ads.Band
	}{
		{"ctr excellent", ads.CTRBand, 0.021, ads.BandExcellent},
		{"ctr at 0.02", ads.CTRBand, 0.02, ads.BandModerate},
		{"ctr at 0.01", ads.CTRBand, 0.01, ads.BandPoor},
		{"roas excellent", ads.ROASBand, 4.5, ads.BandExcellent},
		{"roas at 4", ads.ROASBand, 4, ads.BandModerate},
		{"roas at 2", ads.ROASBand, 2, ads.BandPoor},
		{"tacos excellent", ads.TACOSBand, 4.99, ads.BandExcellent},
		{"tacos at 5", ads.TACOSBand, 5, ads.BandModerate},
		{"tacos at 10", ads.TACOSBand, 10, ads.BandPoor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.band(tc.value))
		})
	}
}

// TestAnalyze_CostAllocation tests both budget scenarios
func TestAnalyze_CostAllocation(t *testing.T) {
	// Arrange: planned 6.00 per unit, 10 paid units, 5 organic
	metrics := models.AdsMetrics{
		PeriodDays:           30,
		Status:               models.AdsStatusActive,
		Cost:                 72,
		UnitsQuantity:        10,
		OrganicUnitsQuantity: 5,
		ACOS:                 floatPtr(8),
	}

	// Act
	analysis, err := ads.Analyze(metrics, 200, 3)

	// Assert
	require.NoError(t, err)
	allocation := analysis.CostAllocation
	assert.Equal(t, 6.0, allocation.PlannedCostPerUnit)

	assert.Equal(t, 60.0, allocation.PaidUnits.MaxPlannedCost)
	assert.Equal(t, 20.0, allocation.PaidUnits.DeviationPercent)
	assert.Equal(t, ads.BudgetWatch, allocation.PaidUnits.Band)
	assert.True(t, allocation.PaidUnits.OverPlan)

	assert.Equal(t, 15, allocation.AllUnits.Units)
	assert.Equal(t, 90.0, allocation.AllUnits.MaxPlannedCost)
	assert.Equal(t, -20.0, allocation.AllUnits.DeviationPercent)
	assert.Equal(t, ads.BudgetWatch, allocation.AllUnits.Band)
	assert.False(t, allocation.AllUnits.OverPlan)

	assert.Nil(t, analysis.StatusAdvice)
	require.NotNil(t, analysis.Bands.ACOS)
	assert.Equal(t, ads.BandExcellent, analysis.Bands.ACOS.Band)
}

// TestAnalyze_ZeroPlan tests that no plan yields a zero deviation
func TestAnalyze_ZeroPlan(t *testing.T) {
	analysis, err := ads.Analyze(models.AdsMetrics{PeriodDays: 7, Cost: 50}, 100, 0)

	require.NoError(t, err)
	assert.Zero(t, analysis.CostAllocation.PaidUnits.DeviationPercent)
	assert.Equal(t, ads.BudgetOnBudget, analysis.CostAllocation.PaidUnits.Band)
}

// TestBudgetBandFor tests banding on the absolute deviation
func TestBudgetBandFor(t *testing.T) {
	assert.Equal(t, ads.BudgetOnBudget, ads.BudgetBandFor(10))
	assert.Equal(t, ads.BudgetOnBudget, ads.BudgetBandFor(-10))
	assert.Equal(t, ads.BudgetWatch, ads.BudgetBandFor(25))
	assert.Equal(t, ads.BudgetWatch, ads.BudgetBandFor(-10.5))
	assert.Equal(t, ads.BudgetOverBudget, ads.BudgetBandFor(25.01))
	assert.Equal(t, ads.BudgetExcellentSavings, ads.BudgetBandFor(-40))
}

// TestAnalyze_StatusAdvice tests the advice attached to each campaign status
func TestAnalyze_StatusAdvice(t *testing.T) {
	testCases := []struct {
		status   models.AdsStatus
		expected string
	}{
		{models.AdsStatusHold, ads.AdviceSuspended},
		{models.AdsStatusPaused, ads.AdviceReactivate},
		{models.AdsStatusIdle, ads.AdviceGrowthOpportunity},
		{models.AdsStatusActive, ""},
		{models.AdsStatusRevoked, ""},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			analysis, err := ads.Analyze(models.AdsMetrics{PeriodDays: 15, Status: tc.status}, 100, 5)
			require.NoError(t, err)

			if tc.expected == "" {
				assert.Nil(t, analysis.StatusAdvice)
				return
			}
			require.NotNil(t, analysis.StatusAdvice)
			assert.Equal(t, tc.expected, analysis.StatusAdvice.Code)
		})
	}

	hold := ads.AdviseStatus(models.AdsStatusHold)
	paused := ads.AdviseStatus(models.AdsStatusPaused)
	assert.Contains(t, hold.Message, "out of stock")
	assert.NotEqual(t, hold.Message, paused.Message)
}

// TestAnalyze_DerivesTACOS tests the fallback TACOS from revenue
func TestAnalyze_DerivesTACOS(t *testing.T) {
	metrics := models.AdsMetrics{PeriodDays: 30, Cost: 30, TotalAmount: 400, OrganicUnitsAmount: 200}

	analysis, err := ads.Analyze(metrics, 100, 5)

	require.NoError(t, err)
	require.NotNil(t, analysis.Bands.TACOS)
	assert.True(t, analysis.TACOSDerived)
	assert.Equal(t, 5.0, analysis.Bands.TACOS.Value)
	assert.Equal(t, ads.BandModerate, analysis.Bands.TACOS.Band)

	reported := metrics
	reported.TACOS = floatPtr(2)
	analysis, err = ads.Analyze(reported, 100, 5)
	require.NoError(t, err)
	assert.False(t, analysis.TACOSDerived)
	assert.Equal(t, 2.0, analysis.Bands.TACOS.Value)
}

// TestAnalyze_RejectsNegativeValues tests input validation
func TestAnalyze_RejectsNegativeValues(t *testing.T) {
	testCases := map[string]models.AdsMetrics{
		"cost":                   {Cost: -1},
		"units_quantity":         {UnitsQuantity: -2},
		"organic_units_quantity": {OrganicUnitsQuantity: -1},
		"clicks":                 {Clicks: -5},
		"period_days":            {PeriodDays: 14},
	}

	for field, metrics := range testCases {
		t.Run(field, func(t *testing.T) {
			_, err := ads.Analyze(metrics, 100, 5)

			var inputErr *models.InputDataError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, field, inputErr.Field)
		})
	}

	_, err := ads.Analyze(models.AdsMetrics{}, -1, 5)
	assert.Error(t, err)
}
