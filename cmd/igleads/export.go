package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igleads/pkg/ledger"
	"igleads/pkg/report"
	"igleads/pkg/store"
	"igleads/pkg/ui"
)

var (
	exportAll       bool
	exportWithEmail bool
	exportOutput    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export accounts from the ledger to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalFlags())
		if err != nil {
			return err
		}
		if err := initLogger(cfg); err != nil {
			return err
		}

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		exporter := report.NewExporter(ledger.New(st))
		var count int
		if exportAll {
			count, err = exporter.ExportAll(exportOutput)
		} else {
			count, err = exporter.ExportInfluencers(exportOutput, exportWithEmail)
		}
		if err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Exported %d accounts to %s", count, exportOutput))
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every account, not just influencers")
	exportCmd.Flags().BoolVar(&exportWithEmail, "with-email", true, "restrict influencer export to accounts with an email")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "influencers.json", "output file path")
	rootCmd.AddCommand(exportCmd)
}
