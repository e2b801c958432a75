package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/solar-scout/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a solar potential analysis for a disk",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "analyze"))

		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		radius, _ := cmd.Flags().GetFloat64("radius-km")
		urbanPenalty, _ := cmd.Flags().GetBool("urban-penalty")
		landPrices, _ := cmd.Flags().GetBool("land-prices")
		rankByCost, _ := cmd.Flags().GetBool("rank-by-cost")
		exclude, _ := cmd.Flags().GetBool("exclude")
		includeWater, _ := cmd.Flags().GetBool("include-water")
		includeSensitive, _ := cmd.Flags().GetBool("include-sensitive")
		bufferM, _ := cmd.Flags().GetInt("buffer-m")
		salt, _ := cmd.Flags().GetInt64("salt")
		topK, _ := cmd.Flags().GetInt("top-k")
		save, _ := cmd.Flags().GetBool("save")

		req := model.SearchRequest{
			Center:            model.Coordinate{Lat: lat, Lng: lng},
			RadiusKM:          radius,
			UrbanPenalty:      urbanPenalty,
			IncludeLandPrices: landPrices,
			RankByCost:        rankByCost,
			SeedSalt:          salt,
			TopK:              topK,
		}
		if exclude {
			req.Exclusion = &model.ExclusionConfig{
				Enabled:          true,
				BufferM:          bufferM,
				IncludeWater:     includeWater,
				IncludeSensitive: includeSensitive,
			}
		}

		eng, err := buildEngine(cfg, nil)
		if err != nil {
			return err
		}

		analysis, err := eng.Analyze(ctx, req, func(p model.Progress) {
			log.Debug("progress",
				zap.Float64("percent", p.Percent),
				zap.String("stage", string(p.Stage)),
				zap.String("message", p.Message),
			)
		})
		if err != nil {
			return err
		}

		if save {
			st, storeErr := openStore(ctx, cfg)
			if storeErr != nil {
				return storeErr
			}
			defer func() { _ = st.Close() }()

			if storeErr := st.SaveAnalysis(ctx, analysis); storeErr != nil {
				return eris.Wrap(storeErr, "analyze: save analysis")
			}
			log.Info("analysis saved", zap.String("analysis_id", analysis.ID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(analysis), "analyze: encode output")
	},
}

func init() {
	analyzeCmd.Flags().Float64("lat", 0, "disk center latitude (degrees)")
	analyzeCmd.Flags().Float64("lng", 0, "disk center longitude (degrees)")
	analyzeCmd.Flags().Float64("radius-km", 2, "disk radius in kilometers (0, 100]")
	analyzeCmd.Flags().Bool("urban-penalty", false, "apply the latitude-based urban shading penalty")
	analyzeCmd.Flags().Bool("land-prices", false, "attach land price estimates")
	analyzeCmd.Flags().Bool("rank-by-cost", false, "rank by energy per dollar instead of RPS")
	analyzeCmd.Flags().Bool("exclude", false, "exclude residential/commercial polygons")
	analyzeCmd.Flags().Bool("include-water", false, "also exclude water polygons")
	analyzeCmd.Flags().Bool("include-sensitive", false, "also exclude protected areas")
	analyzeCmd.Flags().Int("buffer-m", 0, "outward buffer applied to exclusion polygons (meters)")
	analyzeCmd.Flags().Int64("salt", 0, "seed salt for reproducible alternate grids")
	analyzeCmd.Flags().Int("top-k", 0, "result count (default from config)")
	analyzeCmd.Flags().Bool("save", false, "persist the analysis to the store")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(analyzeCmd)
}
