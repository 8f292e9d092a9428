package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumarink/lumarink/internal/app"
	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/driver/fake"
	"github.com/lumarink/lumarink/internal/driver/term"
	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/score"
	"github.com/lumarink/lumarink/internal/service"
	"github.com/lumarink/lumarink/internal/wifi"
)

var simFlags struct {
	headless   bool
	iterations int
	demoFeed   bool
	portal     bool
	word       string
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the sign in the terminal",
	Long: `Draws the sign in the terminal with a simulated WiFi radio. Keys: b brightness, c colour,
r routine, t self-test, Esc quits. --headless runs a fixed number of iterations on a virtual clock.`,
	RunE: runSim,
}

func init() {
	f := simCmd.Flags()
	f.BoolVar(&simFlags.headless, "headless", false, "no terminal; run on a virtual clock and print a summary")
	f.IntVar(&simFlags.iterations, "iterations", 200, "scheduler iterations for --headless")
	f.BoolVar(&simFlags.demoFeed, "demo-feed", false, "use a built-in feed that scores regularly")
	f.BoolVar(&simFlags.portal, "portal", false, "start without saved networks so the setup portal opens")
	f.StringVar(&simFlags.word, "word", "", "word to show")
}

// demoFeed is a live game where the home team scores every third fetch.
type demoFeed struct {
	team    string
	version int
	calls   atomic.Int32
}

func (d *demoFeed) Fetch(context.Context, string, string, int) (score.Result, error) {
	n := int(d.calls.Add(1))
	return score.Result{Team: d.team, State: score.Live, Score: n / 3, LatestVersion: d.version}, nil
}

func openTerm(l layout.Layout) (*term.Driver, error) {
	return term.Open(l)
}

func runSim(cmd *cobra.Command, _ []string) error {
	if !simFlags.headless && logFile == "" {
		// the terminal belongs to the sign
		logFile = filepath.Join(os.TempDir(), "lumarink-sim.log")
		if err := setupLogging(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	_, cfg := loadConfig()
	if simFlags.word != "" {
		cfg.Word = simFlags.word
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	networks := cfg.WiFi.SimSSIDs
	if len(networks) == 0 {
		networks = []string{"lumarink:lumarink"}
	}
	cfg.WiFi.CredentialsFile = filepath.Join(os.TempDir(), "lumarink-sim-wifi.dat")
	creds := wifi.NewCredentials(cfg.WiFi.CredentialsFile)
	if err := creds.Delete(); err != nil {
		return err
	}
	station := wifi.NewSimStation(networks...)
	if !simFlags.portal {
		ssid, pw, _ := strings.Cut(networks[0], ":")
		if err := creds.Write(ssid, pw); err != nil {
			return err
		}
	}

	var fetcher score.Fetcher
	if simFlags.demoFeed || simFlags.headless {
		fetcher = &demoFeed{team: cfg.Team, version: cfg.FirmwareVersion}
	}

	ctx, cancel := signalContext()
	defer cancel()
	reset := &service.ProcessReset{Log: log.Logger, Exit: func(int) { cancel() }}

	if simFlags.headless {
		return runHeadless(ctx, cancel, cfg, station, fetcher, reset)
	}

	l := layout.Layout{Pixels: cfg.NumPixels, Skate: cfg.SkatePixels}
	screen, err := openTerm(l)
	if err != nil {
		return err
	}
	defer screen.Close()
	core, err := app.InitCore(app.Options{
		Config:     cfg,
		Driver:     screen,
		DriverName: "term",
		Station:    station,
		Fetcher:    fetcher,
		Resetter:   reset,
		Log:        log.Logger,
	})
	if err != nil {
		return err
	}
	screen.SetStatus(fmt.Sprintf("%s  routine %s  [b]rightness [c]olour [r]outine [t]est  esc quits", cfg.Word, core.Engine.Kind()))
	defer core.Bus.Subscribe(func(e events.SettingsChanged) {
		screen.SetStatus(fmt.Sprintf("%s  routine %s  colour %d  brightness %.3f", cfg.Word, e.Routine, e.Colour, e.Brightness))
	})()

	go screen.Keys(ctx, func(r rune) {
		var err error
		switch r {
		case 'b':
			err = core.Press(ctx, app.BrightnessButton)
		case 'c':
			err = core.Press(ctx, app.ColourButton)
		case 'r':
			err = core.Press(ctx, app.RoutineButton)
		case 't':
			err = core.SelfTest(ctx, "letter_sweep")
		}
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("key", string(r)).Msg("key action failed")
		}
	}, cancel)

	return core.Run(ctx)
}

// runHeadless runs the sign on a virtual clock and prints what it did.
func runHeadless(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, station wifi.Station, fetcher score.Fetcher, reset app.Resetter) error {
	drv := &fake.Driver{Log: log.With().Str("component", "fake").Logger(), Every: 25}
	clock := coop.NewVirtualClock(time.Now())
	iterations := 0
	core, err := app.InitCore(app.Options{
		Config:     cfg,
		Driver:     drv,
		DriverName: "fake",
		Clock:      clock,
		Station:    station,
		Fetcher:    fetcher,
		Resetter:   reset,
		Heartbeat: func() {
			iterations++
			if iterations >= simFlags.iterations {
				cancel()
			}
		},
		Log: log.Logger,
	})
	if err != nil {
		return err
	}
	var goals atomic.Int32
	defer core.Bus.Subscribe(func(events.GoalCelebrated) { goals.Add(1) })()

	start := clock.Now()
	if err := core.Run(ctx); err != nil {
		return err
	}
	last := drv.Last()
	fmt.Printf("iterations %d  frames %d  goals %d  simulated %s  lit %d/%d  est %.2fA\n",
		iterations, drv.Count(), goals.Load(), clock.Now().Sub(start).Round(time.Second),
		litCount(last), len(last), render.EstimateAmps(last))
	return nil
}

func litCount(buf render.Buffer) int {
	n := 0
	for _, c := range buf {
		if c.Lit() {
			n++
		}
	}
	return n
}
