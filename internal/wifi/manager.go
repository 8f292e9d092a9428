// Package wifi keeps the sign on a network: saved credentials, the radio
// backend and the captive portal used to add a network.
package wifi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/events"
)

var ErrNoCredentials = errors.New("no working credentials")

type Manager struct {
	station     Station
	creds       *Credentials
	bus         *events.Bus
	log         zerolog.Logger
	joinTimeout time.Duration

	mu        sync.Mutex // serialises radio operations
	ssid      string
	connected atomic.Bool
}

func NewManager(st Station, creds *Credentials, bus *events.Bus, log zerolog.Logger, joinTimeout time.Duration) *Manager {
	if joinTimeout <= 0 {
		joinTimeout = 5 * time.Second
	}
	return &Manager{station: st, creds: creds, bus: bus, log: log, joinTimeout: joinTimeout}
}

// IsConnected returns the last observed association state. It never blocks.
func (m *Manager) IsConnected() bool { return m.connected.Load() }

func (m *Manager) setConnected(ok bool, ssid string) {
	if m.connected.Swap(ok) == ok {
		return
	}
	m.bus.Publish(events.WiFiChanged{Connected: ok, SSID: ssid, At: time.Now()})
}

// Connect tries the saved profiles in order and stops at the first that
// joins.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok, err := m.station.Connected(ctx); err == nil && ok {
		m.setConnected(true, m.ssid)
		m.log.Info().Msg("already connected")
		return nil
	}
	profiles, err := m.creds.Read()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if m.join(ctx, p.SSID, p.Password) == nil {
			return nil
		}
	}
	m.log.Warn().Int("profiles", len(profiles)).Msg("no working credentials found")
	return ErrNoCredentials
}

func (m *Manager) join(ctx context.Context, ssid, password string) error {
	ctx, cancel := context.WithTimeout(ctx, m.joinTimeout)
	defer cancel()
	m.log.Info().Str("ssid", ssid).Msg("trying network")
	if err := m.station.Join(ctx, ssid, password); err != nil {
		m.log.Warn().Err(err).Str("ssid", ssid).Msg("join failed")
		_ = m.station.Leave(context.WithoutCancel(ctx))
		return err
	}
	m.ssid = ssid
	m.setConnected(true, ssid)
	m.log.Info().Str("ssid", ssid).Msg("connected")
	return nil
}

// Join tries one network and saves it when the join works.
func (m *Manager) Join(ctx context.Context, ssid, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.join(ctx, ssid, password); err != nil {
		return err
	}
	return m.creds.Write(ssid, password)
}

func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.station.Leave(ctx)
	m.ssid = ""
	m.setConnected(false, "")
	return err
}

// ResetCredentials leaves the network and forgets every saved profile.
func (m *Manager) ResetCredentials(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaveErr := m.station.Leave(ctx)
	m.ssid = ""
	m.setConnected(false, "")
	if err := m.creds.Delete(); err != nil {
		return err
	}
	m.log.Warn().Msg("wifi credentials deleted")
	return leaveErr
}

// Networks lists the SSIDs in range.
func (m *Manager) Networks(ctx context.Context) ([]string, error) {
	return m.station.Scan(ctx)
}

// Refresh asks the radio for its state and updates the cached value.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, err := m.station.Connected(ctx)
	if err != nil {
		return m.IsConnected(), err
	}
	m.setConnected(ok, m.ssid)
	return ok, nil
}

// Monitor refreshes the cached state every interval until ctx ends.
func (m *Manager) Monitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
				m.log.Debug().Err(err).Msg("wifi status")
			}
		}
	}
}
