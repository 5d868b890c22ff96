package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyze one listing or a list of listings from a JSON file",
		Long: `Reads {listing, competitors, ads, adsPeriodDays} objects, either a single
object or an array, and prints a report per listing.`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	cmd.Flags().StringP("input", "i", "", "Path to the JSON input, - for stdin")
	cmd.Flags().Int("period", 0, "Ads period in days (7, 15, 30, 60, 90); overrides adsPeriodDays")
	cmd.Flags().String("format", "json", "Output format: json, text")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	period, _ := cmd.Flags().GetInt("period")
	format, _ := cmd.Flags().GetString("format")

	if format != "json" && format != "text" {
		return fmt.Errorf("unknown format %q, expected json or text", format)
	}

	raw, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	requests, err := parseRequests(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}

	svc := services.NewAnalysisService(nil)
	reports := make([]*services.ListingReport, 0, len(requests))
	for i, req := range requests {
		if period > 0 {
			req.AdsPeriodDays = period
		}
		report, err := svc.AnalyzeListing(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("listing %d (%s): %w", i, req.Listing.ID, err)
		}
		reports = append(reports, report)
	}

	out := cmd.OutOrStdout()
	if format == "text" {
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printReportText(out, r)
		}
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return raw, nil
}

// parseRequests accepts a single request object or an array of them
func parseRequests(raw []byte) ([]services.ListingAnalysisRequest, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var requests []services.ListingAnalysisRequest
		if err := json.Unmarshal(trimmed, &requests); err != nil {
			return nil, err
		}
		return requests, nil
	}

	var req services.ListingAnalysisRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []services.ListingAnalysisRequest{req}, nil
}
