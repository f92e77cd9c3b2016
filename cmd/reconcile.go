package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/ingest"
	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/pipeline"
	"github.com/sells-group/monument-cli/internal/store"
)

type reconcileOptions struct {
	mapFile          string
	encyclopediaFile string
	poiFile          string
	redirectLog      string
	offline          bool
	dryRun           bool
	summaryOut       string
}

var reconcileOpts reconcileOptions

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match, adjudicate and merge candidate files into the stored monuments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if reconcileOpts.offline && cfg.Adjudication.Provider != "static" {
			cfg.Adjudication.Provider = "none"
		}
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, err = runReconcile(ctx, st, reconcileOpts, cmd.OutOrStdout())
		return err
	},
}

func init() {
	f := reconcileCmd.Flags()
	f.StringVar(&reconcileOpts.mapFile, "map", "", "map provider candidates (.csv, .json or .xlsx)")
	f.StringVar(&reconcileOpts.encyclopediaFile, "encyclopedia", "", "encyclopedia candidates (.csv, .json or .xlsx)")
	f.StringVar(&reconcileOpts.poiFile, "poi", "", "points-of-interest candidates (.csv, .json or .xlsx)")
	f.StringVar(&reconcileOpts.redirectLog, "redirect-log", "", "encyclopedia redirect log (query -> title per line)")
	f.BoolVar(&reconcileOpts.offline, "offline", false, "never call a language model; only static verdicts are used")
	f.BoolVar(&reconcileOpts.dryRun, "dry-run", false, "run the pipeline without persisting results")
	f.StringVar(&reconcileOpts.summaryOut, "summary", "", "write the run result as JSON to this path")
	rootCmd.AddCommand(reconcileCmd)
}

// runReconcile loads candidates, runs the pipeline over the stored base
// records and persists the outcome.
func runReconcile(ctx context.Context, st store.Store, opts reconcileOptions, out io.Writer) (*pipeline.RunResult, error) {
	log := zap.L().With(zap.String("component", "reconcile"))

	records, err := st.LoadBaseRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: load base records")
	}
	if len(records) == 0 {
		return nil, eris.New("reconcile: no base records stored, run import first")
	}

	cands, err := loadCandidateFiles(ctx, opts, records)
	if err != nil {
		return nil, err
	}

	p, cleanup, err := buildPipeline(ctx, st)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, err := p.Run(ctx, records, pipeline.Group(cands))
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: run pipeline")
	}

	for _, s := range res.Statuses {
		if s.Err != nil {
			log.Warn("record failed", zap.String("record_id", s.RecordID), zap.Error(s.Err))
		}
	}

	if !opts.dryRun {
		if err := pipeline.Persist(ctx, st, res); err != nil {
			return nil, err
		}
	}
	if opts.summaryOut != "" {
		if err := writeJSONFile(opts.summaryOut, res); err != nil {
			return nil, err
		}
	}

	printSummary(out, res)
	return res, nil
}

func loadCandidateFiles(ctx context.Context, opts reconcileOptions, records []model.BaseRecord) ([]model.CandidateRecord, error) {
	var all []model.CandidateRecord
	for _, in := range []struct {
		path string
		src  model.Source
	}{
		{opts.mapFile, model.SourceMapProvider},
		{opts.encyclopediaFile, model.SourceEncyclopedia},
		{opts.poiFile, model.SourcePointsOfInterest},
	} {
		if in.path == "" {
			continue
		}
		cands, err := ingest.LoadCandidates(ctx, in.path, in.src)
		if err != nil {
			return nil, eris.Wrapf(err, "reconcile: load %s candidates", in.src)
		}
		all = append(all, cands...)
	}

	if opts.redirectLog != "" {
		redirects, err := ingest.LoadRedirectLog(opts.redirectLog)
		if err != nil {
			return nil, eris.Wrap(err, "reconcile: load redirect log")
		}
		names := make(map[string]string, len(records))
		for _, r := range records {
			names[r.ID] = r.Name
		}
		n := ingest.ApplyRedirects(all, redirects, names)
		zap.L().Info("reconcile: redirects applied", zap.Int("flagged", n))
	}
	return all, nil
}

func buildPipeline(ctx context.Context, st store.Store) (*pipeline.Pipeline, func(), error) {
	merger, err := buildMerger(cfg)
	if err != nil {
		return nil, nil, err
	}
	adj, cleanup, err := buildAdjudicator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{pipeline.WithConcurrency(cfg.Batch.Concurrency)}
	if adj != nil {
		opts = append(opts, pipeline.WithEscalator(buildEscalator(adj, st, cfg)))
	}
	p := pipeline.New(buildMatcher(cfg), buildVerifier(cfg), merger, opts...)
	return p, cleanup, nil
}

func printSummary(w io.Writer, res *pipeline.RunResult) {
	fmt.Fprintf(w, "run %s: %d records, %d escalated, %d errors, %d field changes\n",
		res.RunID, len(res.Records), res.Escalated, res.Errors, len(res.Changes()))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tMATCHED\tAMBIGUOUS\tUNMATCHED\tERRORS")
	for _, src := range model.ExternalSources {
		c, ok := res.Counts[src]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", src, c.Matched, c.Ambiguous, c.Unmatched, c.Errors)
	}
	_ = tw.Flush()
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
