package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/ingest"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load base monument records into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		records, err := ingest.LoadBaseRecords(ctx, importFile)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveMergedRecords(ctx, records); err != nil {
			return eris.Wrap(err, "import: save records")
		}

		zap.L().Info("import complete",
			zap.Int("records", len(records)),
			zap.String("file", importFile),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d records from %s\n", len(records), importFile)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to base records (.csv, .json or .xlsx, required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
