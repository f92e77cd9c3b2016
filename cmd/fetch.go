package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/fetcher"
	"github.com/sells-group/monument-cli/internal/model"
)

var (
	fetchOut   string
	fetchLimit int
)

var fetchEncyclopediaCmd = &cobra.Command{
	Use:   "fetch-encyclopedia",
	Short: "Look up every stored monument in the encyclopedia and write the candidates as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.LoadBaseRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch: load base records")
		}
		if fetchLimit > 0 && len(records) > fetchLimit {
			records = records[:fetchLimit]
		}

		res, err := fetcher.Collect(ctx, buildEncyclopediaFetcher(cfg), records, cfg.Fetch.Concurrency)
		if err != nil {
			return eris.Wrap(err, "fetch: collect")
		}

		cands := flattenCandidates(res.Candidates)
		if err := writeJSONFile(fetchOut, cands); err != nil {
			return err
		}

		zap.L().Info("fetch complete",
			zap.Int("records", len(records)),
			zap.Int("candidates", len(cands)),
			zap.Int("failed", len(res.Errors)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d candidates for %d records to %s (%d lookups failed)\n",
			len(cands), len(records), fetchOut, len(res.Errors))
		return nil
	},
}

func init() {
	fetchEncyclopediaCmd.Flags().StringVar(&fetchOut, "out", "encyclopedia.json", "output JSON file")
	fetchEncyclopediaCmd.Flags().IntVar(&fetchLimit, "limit", 0, "only look up the first N records (0 = all)")
	rootCmd.AddCommand(fetchEncyclopediaCmd)
}

// flattenCandidates orders candidates by base id so output files are stable.
func flattenCandidates(byBase map[string][]model.CandidateRecord) []model.CandidateRecord {
	ids := make([]string, 0, len(byBase))
	for id := range byBase {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.CandidateRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, byBase[id]...)
	}
	return out
}
