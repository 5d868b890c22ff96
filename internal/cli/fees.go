package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/pricing"
)

func newFeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Estimate marketplace fees for a listing type and price",
		Args:  cobra.NoArgs,
		RunE:  runFees,
	}

	cmd.Flags().String("listing-type", pricing.ListingTypeGoldSpecial, "Listing type: gold_special, gold_pro, gold, free")
	cmd.Flags().Float64("price", 0, "Listing price")
	cmd.Flags().String("format", "json", "Output format: json, text")
	return cmd
}

func runFees(cmd *cobra.Command, args []string) error {
	listingType, _ := cmd.Flags().GetString("listing-type")
	price, _ := cmd.Flags().GetFloat64("price")
	format, _ := cmd.Flags().GetString("format")

	if price < 0 {
		return fmt.Errorf("price must not be negative, got %v", price)
	}

	estimate := pricing.EstimateFees(listingType, price)

	out := cmd.OutOrStdout()
	if format == "text" {
		fmt.Fprintf(out, "Listing type: %s\n", estimate.ListingTypeID)
		fmt.Fprintf(out, "Listing fee:  %s\n", formatMoney(estimate.ListingFeeAmount))
		fmt.Fprintf(out, "Sale fee:     %s (%.1f%%)\n", formatMoney(estimate.SaleFeeAmount), estimate.SaleFeePercentage)
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(estimate)
}
