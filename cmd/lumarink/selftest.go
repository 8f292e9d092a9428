package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/selftest"
)

var selftestFlags struct {
	driver  string
	pattern string
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Play wiring test patterns on the strip",
	Long:  `Lights every pixel in order, each colour channel, then every letter cell, to check strip wiring and the letter layout.`,
	RunE:  runSelftest,
}

func init() {
	f := selftestCmd.Flags()
	f.StringVar(&selftestFlags.driver, "driver", "", "LED driver: nrzled, term or fake (default from settings)")
	f.StringVar(&selftestFlags.pattern, "pattern", "", "only this pattern: index_sweep, rgb_channels or letter_sweep")
}

func runSelftest(cmd *cobra.Command, _ []string) error {
	_, cfg := loadConfig()
	if selftestFlags.driver != "" {
		cfg.Hardware.Driver = selftestFlags.driver
	}
	kinds := selftest.Kinds
	if selftestFlags.pattern != "" {
		k, err := selftest.ParseKind(selftestFlags.pattern)
		if err != nil {
			return err
		}
		kinds = []selftest.Kind{k}
	}
	drv, _, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer drv.Close()

	ctx, cancel := signalContext()
	defer cancel()
	l := layout.Layout{Pixels: cfg.NumPixels, Skate: cfg.SkatePixels}
	buf := render.NewBuffer(cfg.NumPixels)
	clock := coop.RealClock{}
	present := func(context.Context) error { return drv.Write(buf) }
	for _, k := range kinds {
		log.Info().Str("pattern", string(k)).Msg("self-test")
		if err := selftest.Run(ctx, k, l, buf, present, clock.Wait); err != nil {
			return err
		}
	}
	return nil
}
