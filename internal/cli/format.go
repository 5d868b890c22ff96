package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
)

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-R$ %.2f", -v)
	}
	return fmt.Sprintf("R$ %.2f", v)
}

func printReportText(w io.Writer, r *services.ListingReport) {
	title := r.ListingID
	if r.Title != "" {
		title += "  " + r.Title
	}
	fmt.Fprintln(w, title)

	priceLine := "  Price:   " + formatMoney(r.Price.Current)
	if r.Price.IsOnSale {
		priceLine += fmt.Sprintf("  (was %s, -%d%%)", formatMoney(r.Price.Original), r.Price.DiscountPercent)
	}
	fmt.Fprintln(w, priceLine)

	c := r.Costs
	fmt.Fprintf(w, "  Costs:   total %s | commission %s (%s) | profit %s\n",
		formatMoney(c.TotalCost), formatMoney(c.CommissionAmount), c.CommissionSource, formatMoney(c.NetProfit))
	fmt.Fprintf(w, "  Markup:  %.2f%% | margin %.2f%%\n", c.MarkupPercent, c.MarginPercent)

	if cat := r.Catalog; cat != nil {
		line := fmt.Sprintf("  Catalog: %s", cat.Status)
		if s := cat.Stats; s != nil {
			line += fmt.Sprintf(" | rank %d of %d | min %s avg %s max %s",
				s.OwnRank, s.Count+1, formatMoney(s.MinPrice), formatMoney(s.AvgPrice), formatMoney(s.MaxPrice))
		}
		fmt.Fprintln(w, line)
	}

	if a := r.Ads; a != nil {
		var bands []string
		for _, b := range a.Bands.Present() {
			bands = append(bands, fmt.Sprintf("%s %.2f %s", strings.ToUpper(b.Metric), b.Value, b.Band))
		}
		line := fmt.Sprintf("  Ads %dd:  %s", a.PeriodDays, a.Status)
		if len(bands) > 0 {
			line += " | " + strings.Join(bands, ", ")
		}
		fmt.Fprintln(w, line)
	} else if len(r.AvailableAdsPeriods) > 0 {
		fmt.Fprintf(w, "  Ads:     no data for the requested period, available %v\n", r.AvailableAdsPeriods)
	}

	if len(r.Advisories) == 0 {
		return
	}
	fmt.Fprintln(w, "  Advisories:")
	for _, a := range r.Advisories {
		fmt.Fprintf(w, "    [%s] %s\n", a.Severity, a.Message)
	}
}
