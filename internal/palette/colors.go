package palette

import (
	"fmt"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/lumarink/lumarink/internal/render"
)

// Size is the common slot count of the built-in modes.
const Size = 9

// Named colours used by the built-in modes.
var defaultColors = map[string]render.Color{
	"OFF":    {R: 0, G: 0, B: 0},
	"WHITE":  {R: 255, G: 255, B: 255},
	"RED":    {R: 255, G: 0, B: 0},
	"ORANGE": {R: 255, G: 80, B: 0},
	"YELLOW": {R: 255, G: 200, B: 0},
	"GREEN":  {R: 0, G: 255, B: 0},
	"BLUE":   {R: 0, G: 0, B: 255},
	"VIOLET": {R: 140, G: 0, B: 255},
	"LBLUE":  {R: 0, G: 160, B: 255},
	"PINK":   {R: 255, G: 40, B: 120},
	"GOLD":   {R: 255, G: 170, B: 20},
}

// Mode lists a palette by colour names: off, accent, then word colours.
type Mode struct {
	Name   string
	Off    string
	Accent string
	Words  []string
}

// Modes are selected by the colour setting (0..len-1).
var Modes = []Mode{
	{Name: "team", Off: "OFF", Accent: "WHITE", Words: []string{"RED", "BLUE", "WHITE"}},
	{Name: "rainbow", Off: "OFF", Accent: "WHITE", Words: []string{"RED", "ORANGE", "YELLOW", "GREEN", "BLUE", "VIOLET"}},
	{Name: "ice", Off: "OFF", Accent: "WHITE", Words: []string{"LBLUE", "PINK", "WHITE"}},
}

// Set resolves colour names for the built-in modes.
type Set struct {
	colors map[string]render.Color
}

// NewSet returns the default colours with overrides applied. Overrides map a
// colour name to a hex string such as "#ff8800".
func NewSet(overrides map[string]string) (*Set, error) {
	s := &Set{colors: make(map[string]render.Color, len(defaultColors))}
	for k, v := range defaultColors {
		s.colors[k] = v
	}
	names := make([]string, 0, len(overrides))
	for k := range overrides {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		c, err := ParseHex(overrides[name])
		if err != nil {
			return nil, fmt.Errorf("colour %q: %w", name, err)
		}
		s.colors[strings.ToUpper(name)] = c
	}
	return s, nil
}

// ParseHex parses "#rrggbb" or "#rgb".
func ParseHex(s string) (render.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return render.Color{}, err
	}
	r, g, b := c.RGB255()
	return render.Color{R: r, G: g, B: b}, nil
}

// Lookup returns a named colour.
func (s *Set) Lookup(name string) (render.Color, bool) {
	c, ok := s.colors[strings.ToUpper(name)]
	return c, ok
}

// Palette builds the palette for mode index i. Out-of-range indices wrap.
func (s *Set) Palette(i int) (Palette, error) {
	if len(Modes) == 0 {
		return nil, ErrNoWordColour
	}
	i %= len(Modes)
	if i < 0 {
		i += len(Modes)
	}
	m := Modes[i]
	off, ok := s.Lookup(m.Off)
	if !ok {
		return nil, fmt.Errorf("mode %s: unknown colour %q", m.Name, m.Off)
	}
	accent, ok := s.Lookup(m.Accent)
	if !ok {
		return nil, fmt.Errorf("mode %s: unknown colour %q", m.Name, m.Accent)
	}
	words := make([]render.Color, 0, len(m.Words))
	for _, w := range m.Words {
		c, ok := s.Lookup(w)
		if !ok {
			return nil, fmt.Errorf("mode %s: unknown colour %q", m.Name, w)
		}
		words = append(words, c)
	}
	p := New(off, accent, words, Size)
	return p, p.Validate()
}

// MustPalette is Palette for the built-in defaults, which cannot fail.
func MustPalette(i int) Palette {
	s, _ := NewSet(nil)
	p, err := s.Palette(i)
	if err != nil {
		panic(err)
	}
	return p
}
