package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/solar-scout/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored analysis to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		id, _ := cmd.Flags().GetString("id")
		out, _ := cmd.Flags().GetString("out")

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		analysis, err := st.GetAnalysis(ctx, id)
		if err != nil {
			return err
		}
		if analysis == nil {
			return eris.Errorf("export: analysis %s not found", id)
		}

		if err := export.WriteXLSX(analysis, out); err != nil {
			return err
		}

		zap.L().Info("analysis exported",
			zap.String("analysis_id", id),
			zap.String("path", out),
			zap.Int("results", len(analysis.Results)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("id", "", "analysis ID to export")
	exportCmd.Flags().String("out", "analysis.xlsx", "output file path")
	_ = exportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(exportCmd)
}
