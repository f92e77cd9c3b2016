package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/monument-cli/internal/export"
	"github.com/sells-group/monument-cli/internal/store"
)

var (
	exportOut   string
	exportViews []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reporting views (.xlsx), merged monuments (.parquet) or monument points (.shp)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		switch strings.ToLower(filepath.Ext(exportOut)) {
		case ".xlsx":
			views := exportViews
			if len(views) == 0 {
				views = store.ViewNames()
			}
			if err := export.Workbook(ctx, st, exportOut, views); err != nil {
				return err
			}
		case ".parquet":
			records, err := st.LoadBaseRecords(ctx)
			if err != nil {
				return eris.Wrap(err, "export: load records")
			}
			if err := export.Parquet(exportOut, records); err != nil {
				return err
			}
		case ".shp":
			records, err := st.LoadBaseRecords(ctx)
			if err != nil {
				return eris.Wrap(err, "export: load records")
			}
			if _, err := export.Shapefile(exportOut, records); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unsupported output %q (want .xlsx, .parquet or .shp)", exportOut)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (.xlsx, .parquet or .shp, required)")
	exportCmd.Flags().StringSliceVar(&exportViews, "views", nil, "views to include in the workbook (default all)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
