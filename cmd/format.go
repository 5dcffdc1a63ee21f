package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/validate"
)

// formatRecords writes the per-class statistics table to out.
func formatRecords(out io.Writer, place string, records []stats.Record, summary stats.Summary) {
	if place != "" {
		_, _ = fmt.Fprintf(out, "LCZ composition for %s\n\n", place)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLASS\tAREA_KM2\tPERCENT\tPOLYGONS\tMEAN_KM2\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "-----\t--------\t-------\t--------\t--------\t-----------")

	for _, r := range records {
		desc := r.Description
		if len(desc) > 48 {
			desc = desc[:45] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%.3f\t%.2f%%\t%d\t%.3f\t%s\n",
			r.Symbol, r.TotalAreaKm2, r.PercentageOfTotal, r.PolygonCount, r.MeanAreaKm2, desc)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %.3f km² across %d classes (%d polygons). Dominant: %s (%.1f%%).\n",
		summary.GrandTotalKm2, summary.ClassCount, summary.PolygonCount, summary.Dominant, summary.DominantShare)
}

// formatReport writes the validation outcome to out.
func formatReport(out io.Writer, r validate.Report) {
	if r.IsValid {
		_, _ = fmt.Fprintln(out, "\nValidation: OK")
	} else {
		_, _ = fmt.Fprintln(out, "\nValidation: FAILED")
	}
	for _, e := range r.Errors {
		_, _ = fmt.Fprintf(out, "  error: %s\n", e)
	}
	for _, wmsg := range r.Warnings {
		_, _ = fmt.Fprintf(out, "  warning: %s\n", wmsg)
	}
	for _, i := range r.Info {
		_, _ = fmt.Fprintf(out, "  %s\n", i)
	}
}
