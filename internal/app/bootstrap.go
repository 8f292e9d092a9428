// Package app wires the sign together: cooperative runtime, engine, buttons,
// score poller, WiFi, preview and the settings file watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/button"
	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/engine"
	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/metrics"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/score"
	"github.com/lumarink/lumarink/internal/selftest"
	"github.com/lumarink/lumarink/internal/wifi"
	"github.com/lumarink/lumarink/internal/ws"
)

// Button roles, in the order of the hardware.buttons setting.
const (
	BrightnessButton = "brightness"
	ColourButton     = "colour"
	RoutineButton    = "routine"
)

var buttonRoles = []string{BrightnessButton, ColourButton, RoutineButton}

// Resetter ends the process so the supervisor restarts it.
type Resetter interface {
	Reset(reason string)
}

type Options struct {
	Config *config.Config
	// Store persists button and backend changes; nil keeps them in memory.
	Store      *config.Store
	Driver     render.Driver
	DriverName string
	Clock      coop.Clock
	Station    wifi.Station
	Fetcher    score.Fetcher
	Resetter   Resetter
	Horn       engine.Horn
	// Pins are the button inputs in role order; missing ones never press.
	Pins      []button.Input
	Heartbeat func()
	Log       zerolog.Logger
}

type Core struct {
	RT      *coop.Runtime
	Bus     *events.Bus
	Engine  *engine.Engine
	Poller  *score.Poller
	WiFi    *wifi.Manager
	Portal  *wifi.Portal
	Hub     *ws.Hub
	Watcher *config.Watcher
	Buttons []*button.Button

	cfg *config.Config
	log zerolog.Logger
}

// memStore keeps settings in memory when no file is configured.
type memStore struct{ cfg *config.Config }

func (m *memStore) Update(fn func(*config.Config)) (*config.Config, error) {
	fn(m.cfg)
	return m.cfg.Clone(), nil
}

func InitCore(o Options) (*Core, error) {
	if o.Config == nil || o.Driver == nil {
		return nil, errors.New("app: config and driver are required")
	}
	if o.Clock == nil {
		o.Clock = coop.RealClock{}
	}
	cfg := o.Config.Clone()
	log := o.Log

	c := &Core{
		RT:  coop.New(coop.WithClock(o.Clock), coop.WithLogger(log.With().Str("component", "coop").Logger())),
		Bus: events.New(),
		cfg: cfg,
		log: log,
	}

	var settings engine.Settings = &memStore{cfg: cfg.Clone()}
	if o.Store != nil {
		settings = o.Store
	}

	drivers := render.Tee{&render.Limiter{Next: o.Driver, Amps: cfg.Hardware.BudgetAmps}}
	if cfg.Preview.Enabled {
		c.Hub = ws.NewHub(ws.Topology{
			Pixels: cfg.NumPixels,
			Skate:  cfg.SkatePixels,
			Word:   cfg.Word,
			Driver: o.DriverName,
		}, c, log.With().Str("component", "preview").Logger())
		drivers = append(drivers, c.Hub)
	}

	station := o.Station
	if station == nil {
		station = wifi.NewCommandStation(cfg.WiFi.ConnectCmd, cfg.WiFi.DisconnectCmd, cfg.WiFi.StatusCmd, cfg.WiFi.ScanCmd)
	}
	c.WiFi = wifi.NewManager(station, wifi.NewCredentials(cfg.WiFi.CredentialsFile), c.Bus,
		log.With().Str("component", "wifi").Logger(), time.Duration(cfg.WiFi.ConnectTimeoutS)*time.Second)
	c.Portal = wifi.NewPortal(c.WiFi, log.With().Str("component", "portal").Logger())

	st := &score.State{}
	fetcher := o.Fetcher
	if fetcher == nil {
		fetcher = score.NewClient(10 * time.Second)
	}
	c.Poller = score.NewPoller(c.RT, fetcher, settings, o.Resetter, c.Bus, st, log.With().Str("component", "score").Logger())
	c.Poller.URL, c.Poller.Team, c.Poller.Version = cfg.URL, cfg.Team, cfg.FirmwareVersion

	eng, err := engine.New(engine.Options{
		Runtime:  c.RT,
		Config:   cfg,
		Driver:   metrics.Driver{Next: drivers},
		WiFi:     c.WiFi,
		Poller:   c.Poller,
		Score:    st,
		Settings: settings,
		Resetter: o.Resetter,
		Horn:     o.Horn,
		Bus:      c.Bus,
		Log:      log.With().Str("component", "engine").Logger(),
		Hooks: engine.Hooks{
			Heartbeat: func() {
				metrics.Iteration()
				if o.Heartbeat != nil {
					o.Heartbeat()
				}
			},
			Tick: metrics.Step,
		},
	})
	if err != nil {
		return nil, err
	}
	c.Engine = eng
	if c.Hub != nil {
		c.Hub.SetStatus(c.status)
	}

	c.Buttons = c.buttons(o.Pins)
	if o.Store != nil {
		c.Watcher = config.NewWatcher(o.Store.Path(), 500*time.Millisecond, log.With().Str("component", "config").Logger())
		c.Watcher.OnReload(c.reload)
	}
	return c, nil
}

func (c *Core) buttons(pins []button.Input) []*button.Button {
	debounce := time.Duration(c.cfg.DebounceMS) * time.Millisecond
	out := make([]*button.Button, 0, len(buttonRoles))
	for i, role := range buttonRoles {
		var pin button.Input = button.Released{}
		if i < len(pins) && pins[i] != nil {
			pin = pins[i]
		}
		role := role
		b := &button.Button{
			Name:   role,
			Pin:    pin,
			Detect: button.Detector{Debounce: debounce},
			OnShort: func(ctx context.Context) {
				if err := c.press(ctx, role); err != nil {
					c.log.Error().Err(err).Str("button", role).Msg("button action failed")
				}
			},
		}
		if role == BrightnessButton {
			b.Detect.LongPress = time.Duration(c.cfg.Hardware.LongPress) * time.Millisecond
			b.OnLong = func(ctx context.Context) {
				if err := c.Engine.ResetWiFi(ctx); err != nil {
					c.log.Error().Err(err).Msg("wifi reset failed")
				}
			}
		}
		out = append(out, b)
	}
	return out
}

// press runs a button action. The caller holds the baton.
func (c *Core) press(ctx context.Context, role string) error {
	switch role {
	case BrightnessButton:
		return c.Engine.CycleBrightness(ctx)
	case ColourButton:
		return c.Engine.CycleColour(ctx)
	case RoutineButton:
		return c.Engine.CycleRoutine(ctx)
	}
	return fmt.Errorf("unknown button %q", role)
}

// Press is a virtual button press from outside the runtime.
func (c *Core) Press(ctx context.Context, role string) error {
	var err error
	if derr := c.RT.Do(ctx, func() { err = c.press(ctx, role) }); derr != nil {
		return derr
	}
	return err
}

// SelfTest plays a wiring pattern from outside the runtime.
func (c *Core) SelfTest(ctx context.Context, pattern string) error {
	k, err := selftest.ParseKind(pattern)
	if err != nil {
		return err
	}
	if derr := c.RT.Do(ctx, func() { err = c.Engine.SelfTest(ctx, k) }); derr != nil {
		return derr
	}
	return err
}

func (c *Core) reload(cfg *config.Config) {
	err := c.RT.Do(context.Background(), func() {
		if err := c.Engine.ApplyConfig(cfg); err != nil {
			c.log.Warn().Err(err).Msg("settings reload rejected")
			return
		}
		c.Poller.URL, c.Poller.Team = cfg.URL, cfg.Team
	})
	if err != nil {
		c.log.Error().Err(err).Msg("settings reload failed")
	}
}

func (c *Core) status() map[string]any {
	out := map[string]any{"wifi": c.WiFi.IsConnected()}
	// the baton may be busy with a frame or a button action; don't stall /health
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = c.RT.Do(ctx, func() {
		iterations, faults := c.Engine.Stats()
		st := c.Engine.State()
		out["routine"] = c.Engine.Kind().String()
		out["colour_index"] = st.Colour
		out["iterations"] = iterations
		out["faults"] = faults
		out["score"] = c.Poller.State.Current
		out["game_state"] = string(c.Poller.Last.State)
	})
	return out
}

// connect joins a saved network, or opens the setup portal when none works.
func (c *Core) connect(ctx context.Context) {
	err := c.WiFi.Connect(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	c.log.Warn().Err(err).Str("addr", c.cfg.Portal.Addr).Msg("no wifi, starting setup portal")
	if err := c.Portal.Serve(ctx, c.cfg.Portal.Addr); err != nil {
		c.log.Error().Err(err).Msg("setup portal stopped")
		return
	}
	c.log.Info().Bool("wifi", c.WiFi.IsConnected()).Msg("setup portal closed")
}

// Run starts every task and blocks until ctx ends and they have stopped.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer metrics.Attach(c.Bus)()
	if c.Hub != nil {
		defer c.Hub.Attach(c.Bus)()
		go c.Hub.Run(ctx)
		go func() {
			if err := c.Hub.Serve(ctx, c.cfg.Preview.Addr, metrics.Handler()); err != nil {
				c.log.Error().Err(err).Msg("preview server stopped")
			}
		}()
	}

	if err := c.RT.Do(ctx, func() {
		if err := c.Engine.Connecting(ctx); err != nil {
			c.log.Warn().Err(err).Msg("connecting indicator")
		}
	}); err != nil {
		return err
	}
	go c.connect(ctx)
	go c.WiFi.Monitor(ctx, 5*time.Second)

	if c.Watcher != nil {
		if err := c.Watcher.Start(ctx); err != nil {
			c.log.Warn().Err(err).Msg("settings watcher not running")
		} else {
			defer c.Watcher.Stop()
		}
	}

	for _, b := range c.Buttons {
		b := b
		c.RT.Go(ctx, "button-"+b.Name, func(ctx context.Context) error {
			return button.Watch(ctx, c.RT, b, c.log.With().Str("component", "button").Logger())
		})
	}
	c.RT.Go(ctx, "scheduler", c.Engine.Run)

	<-ctx.Done()
	c.RT.Wait()
	return nil
}
