package routine

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind selects one of the animation routines. The numbering matches the
// persisted colour_routine setting.
type Kind int

const (
	Flashing Kind = iota
	Fill
	Skate
	SkateRNG
	Fade

	// Count is the number of routines; the routine button cycles modulo Count.
	Count = 5
)

var kindNames = [Count]string{"flashing", "fill", "skate", "skate_rng", "fade"}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "routine(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) Valid() bool { return k >= 0 && k < Count }

// Next is the routine the cycle button selects after k.
func (k Kind) Next() Kind {
	n := (int(k) + 1) % Count
	if n < 0 {
		n += Count
	}
	return Kind(n)
}

// ParseKind accepts a routine name or its number.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && Kind(i).Valid() {
		return Kind(i), nil
	}
	return 0, fmt.Errorf("unknown routine %q", s)
}

// SharesCursors reports whether switching from one routine to the other can
// keep the running animation state.
func SharesCursors(from, to Kind) bool {
	return from == Skate && to == SkateRNG
}

// ReadsPaletteEachTick reports whether k picks up a new palette on its next
// tick without a reset.
func (k Kind) ReadsPaletteEachTick() bool {
	return k == Skate || k == SkateRNG
}
