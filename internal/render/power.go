package render

// MilliampsPerChannel is the draw of one fully lit colour channel.
const MilliampsPerChannel = 20.0

// EstimateAmps estimates the strip current for buf, assuming draw scales
// linearly with channel value.
func EstimateAmps(buf Buffer) float64 {
	var sum float64
	for _, c := range buf {
		sum += float64(c.R) + float64(c.G) + float64(c.B)
	}
	return sum / 255.0 * MilliampsPerChannel / 1000.0
}

// LimiterKnee is the fraction of the budget where soft limiting begins.
const LimiterKnee = 0.9

// Limit scales buf into dst so the estimated draw stays under budget amps.
// Between the knee and the budget the scale ramps in gently; above it the
// frame is scaled to meet the budget exactly. A budget <= 0 copies buf as is.
func Limit(dst, buf Buffer, budget float64) {
	copy(dst, buf)
	total := EstimateAmps(buf)
	if budget <= 0 || total <= 0 {
		return
	}
	ratio := total / budget
	if ratio <= LimiterKnee {
		return
	}
	s := budget / total
	if ratio <= 1 {
		t := (ratio - LimiterKnee) / (1 - LimiterKnee)
		s = 1 - t*(1-s)
	}
	for i, c := range buf {
		dst[i] = Color{
			R: uint8(float64(c.R) * s),
			G: uint8(float64(c.G) * s),
			B: uint8(float64(c.B) * s),
		}
	}
}

// Limiter caps the current of frames passed to Next. The shared buffer is
// left untouched so previews still see the unscaled frame.
type Limiter struct {
	Next Driver
	Amps float64

	scratch Buffer
}

func (l *Limiter) Write(buf Buffer) error {
	if l.Amps <= 0 {
		return l.Next.Write(buf)
	}
	if len(l.scratch) != len(buf) {
		l.scratch = NewBuffer(len(buf))
	}
	Limit(l.scratch, buf, l.Amps)
	return l.Next.Write(l.scratch)
}
