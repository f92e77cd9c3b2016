package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/monument-cli/internal/store"
)

var qualityJSON bool

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Report column completeness, orphaned satellite rows and provider rating ranges",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("quality"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := st.Quality(ctx)
		if err != nil {
			return eris.Wrap(err, "quality report")
		}

		out := cmd.OutOrStdout()
		if qualityJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printQuality(out, report)
		if !report.Passed() {
			return eris.New("quality: referential integrity checks failed")
		}
		return nil
	},
}

func init() {
	qualityCmd.Flags().BoolVar(&qualityJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(qualityCmd)
}

func printQuality(w io.Writer, r *store.QualityReport) {
	fmt.Fprintf(w, "monuments: %d\n\n", r.Monuments)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tFILLED\tTOTAL\tPERCENT")
	for _, c := range r.Completeness {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", c.Column, c.Filled, c.Total, c.Percent)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RELATIONSHIP\tORPHANS\tSTATUS")
	for _, o := range r.Orphans {
		status := "PASS"
		if !o.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s.%s -> %s\t%d\t%s\n", o.Table, o.Column, o.Parent, o.Orphans, status)
	}
	_ = tw.Flush()

	if len(r.Metrics) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tRECORDS\tMIN\tAVG\tMAX")
	for _, m := range r.Metrics {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", m.Source, m.Records, fmtRating(m.MinRating), fmtRating(m.AvgRating), fmtRating(m.MaxRating))
	}
	_ = tw.Flush()
}

func fmtRating(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
