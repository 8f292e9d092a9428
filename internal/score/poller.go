package score

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/events"
)

// WarmupFetches successful fetches must happen before a score increase
// counts as a goal, so the first reading after boot never celebrates.
const WarmupFetches = 2

// State is the score as the scheduler sees it.
type State struct {
	Current  int
	Previous int
	Warmup   int
}

// ShouldCelebrate is the goal trigger.
func ShouldCelebrate(current, previous, warmup int) bool {
	return current > previous && warmup >= WarmupFetches
}

func (s *State) GoalScored() bool { return ShouldCelebrate(s.Current, s.Previous, s.Warmup) }

// Fetcher is the score feed.
type Fetcher interface {
	Fetch(ctx context.Context, url, team string, version int) (Result, error)
}

// Settings persists what the backend pushes.
type Settings interface {
	Update(fn func(*config.Config)) (*config.Config, error)
}

// Resetter restarts the device. Reset normally does not return.
type Resetter interface {
	Reset(reason string)
}

// Poller fetches the score on a cooperative task. Everything except the
// HTTP round trip runs holding the baton.
type Poller struct {
	URL     string
	Team    string
	Version int
	State   *State

	Last    Result
	LastErr error

	rt       *coop.Runtime
	fetch    Fetcher
	settings Settings
	reset    Resetter
	bus      *events.Bus
	log      zerolog.Logger
	started  bool
}

func NewPoller(rt *coop.Runtime, f Fetcher, s Settings, r Resetter, bus *events.Bus, st *State, log zerolog.Logger) *Poller {
	return &Poller{
		rt:       rt,
		fetch:    f,
		settings: s,
		reset:    r,
		bus:      bus,
		State:    st,
		log:      log,
	}
}

// Started reports whether Start has run.
func (p *Poller) Started() bool { return p.started }

// Start launches the polling task once; later calls do nothing and return
// false.
func (p *Poller) Start(ctx context.Context) bool {
	if p.started {
		return false
	}
	p.started = true
	p.log.Info().Str("url", p.URL).Str("team", p.Team).Msg("score polling started")
	p.rt.Go(ctx, "score", func(ctx context.Context) error {
		for {
			if err := p.rt.Sleep(ctx, p.PollOnce(ctx)); err != nil {
				return err
			}
		}
	})
	return true
}

// PollOnce fetches once, applies the result and returns the delay until the
// next fetch. The caller holds the baton.
func (p *Poller) PollOnce(ctx context.Context) time.Duration {
	url, team, version := p.URL, p.Team, p.Version
	var res Result
	err := p.rt.Block(ctx, func() error {
		var err error
		res, err = p.fetch.Fetch(ctx, url, team, version)
		return err
	})
	p.LastErr = err
	now := p.rt.Clock().Now()
	if err != nil {
		p.log.Warn().Err(err).Msg("score fetch failed")
		p.bus.Publish(events.ScoreUpdated{State: string(Off), Score: p.State.Current, Warmup: p.State.Warmup, Err: err.Error(), At: now})
		return Delay(Off)
	}
	p.Last = res

	p.State.Current = res.Score
	if p.State.Warmup < WarmupFetches {
		p.State.Warmup++
	}
	p.log.Debug().Str("team", res.Team).Str("state", string(res.State)).Int("score", res.Score).Msg("score fetched")
	p.bus.Publish(events.ScoreUpdated{State: string(res.State), Score: res.Score, Warmup: p.State.Warmup, At: now})

	if res.NewURL != "" && res.NewURL != p.URL {
		p.URL = res.NewURL
		p.persist(func(c *config.Config) { c.URL = res.NewURL }, "url")
	}
	if res.LatestVersion != p.Version {
		p.persist(func(c *config.Config) {
			c.FirmwareVersion = res.LatestVersion
			if res.DoublePressMS != nil {
				c.DoublePressMS = *res.DoublePressMS
			}
			if res.DebounceMS != nil {
				c.DebounceMS = *res.DebounceMS
			}
		}, "firmware_version")
		p.log.Warn().Int("have", p.Version).Int("latest", res.LatestVersion).Msg("firmware version changed, resetting")
		p.Version = res.LatestVersion
		if p.reset != nil {
			p.reset.Reset("firmware version changed")
		}
	}
	return Delay(res.State)
}

func (p *Poller) persist(fn func(*config.Config), key string) {
	if p.settings == nil {
		return
	}
	if _, err := p.settings.Update(fn); err != nil {
		p.log.Error().Err(err).Str("key", key).Msg("could not persist backend update")
		return
	}
	p.log.Info().Str("key", key).Msg("backend update persisted")
}
