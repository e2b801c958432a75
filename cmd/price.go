package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/solar-scout/internal/landprice"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/pkg/landapi"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Look up the land price estimate for one coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")

		var providers []landprice.Provider
		if cfg.LandPrice.APIBaseURL != "" {
			providers = append(providers, landapi.NewClient(cfg.LandPrice.APIBaseURL, cfg.LandPrice.APIKey))
		}
		cascade := landprice.NewCascade(
			landprice.NewSynthetic(cfg.LandPrice.Synthetic),
			providers,
			landprice.WithTimeout(time.Duration(cfg.LandPrice.TimeoutSecs)*time.Second),
		)

		est := cascade.Price(cmd.Context(), model.Coordinate{Lat: lat, Lng: lng})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(est), "price: encode output")
	},
}

func init() {
	priceCmd.Flags().Float64("lat", 0, "latitude (degrees)")
	priceCmd.Flags().Float64("lng", 0, "longitude (degrees)")
	_ = priceCmd.MarkFlagRequired("lat")
	_ = priceCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(priceCmd)
}
