package routine

import (
	"context"
	"time"

	"github.com/lumarink/lumarink/internal/render"
)

// RecordingSurface keeps a copy of every shown frame and the requested holds
// without waiting. The simulator and tests use it.
type RecordingSurface struct {
	Frames []render.Buffer
	Holds  []time.Duration
}

func (s *RecordingSurface) Show(_ context.Context, buf render.Buffer) error {
	s.Frames = append(s.Frames, buf.Clone())
	return nil
}

func (s *RecordingSurface) Hold(ctx context.Context, d time.Duration) error {
	s.Holds = append(s.Holds, d)
	return ctx.Err()
}

// Last returns the most recent frame, or nil.
func (s *RecordingSurface) Last() render.Buffer {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[len(s.Frames)-1]
}
