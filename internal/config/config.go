// Package config holds the sign's persisted settings and the hardware,
// network and preview sections around them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

type Hardware struct {
	Driver    string   `yaml:"driver"`      // "nrzled" | "term" | "fake"
	SPIPort   string   `yaml:"spi_port"`    // "" picks the first registered port
	NRZFreqHz int      `yaml:"nrz_freq_hz"` // the SPI clock runs at 3x
	Buttons   []string `yaml:"buttons"`     // gpio names: brightness/reset, colour, routine
	LongPress int      `yaml:"long_press_ms"`

	// BudgetAmps caps the estimated strip current; 0 disables the limiter.
	BudgetAmps float64 `yaml:"budget_amps"`
}

type Preview struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type Portal struct {
	Addr       string `yaml:"addr"`
	APName     string `yaml:"ap_name"`
	APPassword string `yaml:"ap_password"`
}

type WiFi struct {
	Backend         string   `yaml:"backend"` // "command" | "sim"
	CredentialsFile string   `yaml:"credentials_file"`
	ConnectCmd      string   `yaml:"connect_cmd"`
	DisconnectCmd   string   `yaml:"disconnect_cmd"`
	StatusCmd       string   `yaml:"status_cmd"`
	ScanCmd         string   `yaml:"scan_cmd"`
	ConnectTimeoutS int      `yaml:"connect_timeout_s"`
	SimSSIDs        []string `yaml:"sim_ssids,omitempty"`
}

type Horn struct {
	Enabled    bool    `yaml:"enabled"`
	FreqHz     float64 `yaml:"freq_hz"`
	SampleRate int     `yaml:"sample_rate"`
}

type Config struct {
	Colour          int     `yaml:"colour"`
	ColourRoutine   int     `yaml:"colour_routine"`
	Brightness      float64 `yaml:"brightness"`
	Team            string  `yaml:"team"`
	Word            string  `yaml:"word"`
	URL             string  `yaml:"url"`
	FirmwareVersion int     `yaml:"firmware_version"`
	DebounceMS      int     `yaml:"debounce_ms"`
	DoublePressMS   int     `yaml:"double_press_interval"`
	MaxColour       int     `yaml:"max_colour"`
	NumPixels       int     `yaml:"num_pixels"`
	SkatePixels     int     `yaml:"skate_pixels"`

	Hardware Hardware          `yaml:"hardware"`
	Preview  Preview           `yaml:"preview"`
	Portal   Portal            `yaml:"portal"`
	WiFi     WiFi              `yaml:"wifi"`
	Colors   map[string]string `yaml:"colors,omitempty"`
	Horn     Horn              `yaml:"horn"`
}

// Defaults is what a sign boots with when it has no settings file.
func Defaults() *Config {
	return &Config{
		Colour:          0,
		ColourRoutine:   0,
		Brightness:      1,
		Team:            "Senators",
		Word:            "SENS",
		URL:             "http://192.168.2.101:8000/nhl-data/",
		FirmwareVersion: 1,
		DebounceMS:      50,
		DoublePressMS:   500,
		MaxColour:       3,
		NumPixels:       114,
		SkatePixels:     12,
		Hardware: Hardware{
			Driver:    "nrzled",
			NRZFreqHz: 800_000,
			Buttons:   []string{"GPIO7", "GPIO8", "GPIO9"},
			LongPress: 5000,
		},
		Preview: Preview{Addr: ":8090"},
		Portal: Portal{
			Addr:       ":8080",
			APName:     "LumaRink",
			APPassword: "LumaRink",
		},
		WiFi: WiFi{
			Backend:         "command",
			CredentialsFile: "wifi.dat",
			ConnectCmd:      "nmcli device wifi connect {ssid} password {password}",
			DisconnectCmd:   "nmcli networking off",
			StatusCmd:       "nmcli -t -f STATE general",
			ScanCmd:         "nmcli -t -f SSID device wifi list",
			ConnectTimeoutS: 5,
		},
		Horn: Horn{FreqHz: 440, SampleRate: 44100},
	}
}

// Validate checks the settings the animation engine depends on.
func (c *Config) Validate() error {
	var errs []string
	if c.Brightness <= 0 || c.Brightness > 1 {
		errs = append(errs, fmt.Sprintf("brightness %v not in (0,1]", c.Brightness))
	}
	if c.NumPixels <= 0 {
		errs = append(errs, fmt.Sprintf("num_pixels %d must be positive", c.NumPixels))
	}
	if c.SkatePixels < 0 || c.SkatePixels > c.NumPixels {
		errs = append(errs, fmt.Sprintf("skate_pixels %d not in [0,%d]", c.SkatePixels, c.NumPixels))
	}
	if c.MaxColour <= 0 {
		errs = append(errs, fmt.Sprintf("max_colour %d must be positive", c.MaxColour))
	}
	if c.Colour < 0 || (c.MaxColour > 0 && c.Colour >= c.MaxColour) {
		errs = append(errs, fmt.Sprintf("colour %d not in [0,%d)", c.Colour, c.MaxColour))
	}
	if c.ColourRoutine < 0 || c.ColourRoutine >= 5 {
		errs = append(errs, fmt.Sprintf("colour_routine %d not in [0,5)", c.ColourRoutine))
	}
	if f := c.Hardware.NRZFreqHz; f != 0 && f != 800_000 {
		errs = append(errs, fmt.Sprintf("hardware.nrz_freq_hz %d: nrzled only drives 800000", f))
	}
	if c.Hardware.BudgetAmps < 0 {
		errs = append(errs, "hardware.budget_amps must not be negative")
	}
	if c.DebounceMS < 0 {
		errs = append(errs, "debounce_ms must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Hardware.Buttons = append([]string(nil), c.Hardware.Buttons...)
	out.WiFi.SimSSIDs = append([]string(nil), c.WiFi.SimSSIDs...)
	if c.Colors != nil {
		out.Colors = make(map[string]string, len(c.Colors))
		for k, v := range c.Colors {
			out.Colors[k] = v
		}
	}
	return &out
}

// Parse decodes b over the defaults, so missing keys keep their default.
func Parse(b []byte) (*Config, error) {
	c := Defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads path. A missing file yields the defaults; an unreadable or
// invalid one yields the defaults together with the error.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), err
	}
	c, err := Parse(b)
	if err != nil {
		return Defaults(), fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Strict is Load without the fallback, for the file watcher.
func Strict(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}
