package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumarink/lumarink/internal/app"
	"github.com/lumarink/lumarink/internal/button"
	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/driver/fake"
	"github.com/lumarink/lumarink/internal/engine"
	"github.com/lumarink/lumarink/internal/horn"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/led"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/service"
)

var runFlags struct {
	driver      string
	word        string
	team        string
	preview     bool
	previewAddr string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sign on its hardware",
	Long:  `Drives the LED strip over SPI, reads the buttons, joins WiFi and polls the score feed until stopped.`,
	RunE:  runSign,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.driver, "driver", "", "LED driver: nrzled, term or fake (default from settings)")
	f.StringVar(&runFlags.word, "word", "", "word to show")
	f.StringVar(&runFlags.team, "team", "", "team name sent to the score feed")
	f.BoolVar(&runFlags.preview, "preview", false, "serve the live preview")
	f.StringVar(&runFlags.previewAddr, "preview-addr", "", "preview listen address")
}

// applyRunFlags lets command-line flags win over the settings file.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("driver") {
		cfg.Hardware.Driver = runFlags.driver
	}
	if f.Changed("word") {
		cfg.Word = runFlags.word
	}
	if f.Changed("team") {
		cfg.Team = runFlags.team
	}
	if f.Changed("preview") {
		cfg.Preview.Enabled = runFlags.preview
	}
	if f.Changed("preview-addr") {
		cfg.Preview.Addr = runFlags.previewAddr
		cfg.Preview.Enabled = true
	}
	return cfg.Validate()
}

// closer is a driver that holds a device.
type closer interface {
	render.Driver
	Close() error
}

// openDriver picks the LED output. The nrzled driver also initialises the
// periph host, which the button pins need.
func openDriver(cfg *config.Config) (closer, bool, error) {
	l := layout.Layout{Pixels: cfg.NumPixels, Skate: cfg.SkatePixels}
	switch cfg.Hardware.Driver {
	case "nrzled", "":
		s, err := led.Open(led.Options{
			Pixels: cfg.NumPixels,
			Port:   cfg.Hardware.SPIPort,
			FreqHz: cfg.Hardware.NRZFreqHz,
		}, log.With().Str("component", "led").Logger())
		if err != nil {
			return nil, false, err
		}
		return s, true, nil
	case "term":
		d, err := openTerm(l)
		return d, false, err
	case "fake":
		return nopCloser{&fake.Driver{Log: log.With().Str("component", "fake").Logger(), Every: 50}}, false, nil
	}
	return nil, false, fmt.Errorf("unknown driver %q", cfg.Hardware.Driver)
}

type nopCloser struct{ render.Driver }

func (nopCloser) Close() error { return nil }

func openHorn(cfg *config.Config) engine.Horn {
	if !cfg.Horn.Enabled {
		return nil
	}
	h, err := horn.New(cfg.Horn.FreqHz, cfg.Horn.SampleRate, log.With().Str("component", "horn").Logger())
	if err != nil {
		log.Warn().Err(err).Msg("goal horn disabled")
		return nil
	}
	return h
}

func runSign(cmd *cobra.Command, _ []string) error {
	store, cfg := loadConfig()
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	drv, hostReady, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer drv.Close()

	var pins []button.Input
	if hostReady {
		gpios, err := button.OpenPins(cfg.Hardware.Buttons)
		if err != nil {
			log.Warn().Err(err).Msg("buttons unavailable")
		}
		for _, p := range gpios {
			pins = append(pins, p)
		}
	}

	notifier := service.NewNotifier(log.With().Str("component", "systemd").Logger())
	reset := &service.ProcessReset{
		Log: log.Logger,
		Before: func() {
			notifier.Stopping()
			drv.Close()
		},
		Exit: os.Exit,
	}
	core, err := app.InitCore(app.Options{
		Config:     cfg,
		Store:      store,
		Driver:     drv,
		DriverName: cfg.Hardware.Driver,
		Resetter:   reset,
		Horn:       openHorn(cfg),
		Pins:       pins,
		Heartbeat:  notifier.Heartbeat,
		Log:        log.Logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	log.Info().Str("word", cfg.Word).Str("team", cfg.Team).Str("driver", cfg.Hardware.Driver).Msg("sign starting")
	notifier.Ready()
	err = core.Run(ctx)
	notifier.Stopping()
	return err
}
