// Package metrics exposes the sign's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/routine"
	"github.com/lumarink/lumarink/internal/score"
)

const namespace = "lumarink"

var (
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "frames_total",
		Help:      "Frames written to the LED driver",
	})

	estimatedAmps = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "estimated_amps",
		Help:      "Estimated current draw of the last frame",
	})

	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "iterations_total",
		Help:      "Scheduler iterations run",
	})

	loopFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "faults_total",
		Help:      "Scheduler iterations that failed",
	}, []string{"panic"})

	stepSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "routine",
		Name:      "step_seconds",
		Help:      "Routine tick duration including its hold",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"routine"})

	goalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "goals_total",
		Help:      "Goal celebrations shown",
	})

	scoreCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "current",
		Help:      "Last fetched score",
	})

	gameState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "game_state",
		Help:      "1 for the game state of the last fetch",
	}, []string{"state"})

	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "fetch_errors_total",
		Help:      "Score fetches that failed",
	})

	brightness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "settings",
		Name:      "brightness",
		Help:      "Configured brightness",
	})

	wifiConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "wifi",
		Name:      "connected",
		Help:      "1 while the station is associated",
	})
)

// Handler serves every registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Frame records a frame written to the strip.
func Frame(buf render.Buffer) {
	framesTotal.Inc()
	estimatedAmps.Set(render.EstimateAmps(buf))
}

// Iteration counts a scheduler iteration.
func Iteration() { iterationsTotal.Inc() }

// Step observes one routine tick.
func Step(kind routine.Kind, d time.Duration) {
	stepSeconds.WithLabelValues(kind.String()).Observe(d.Seconds())
}

// Attach keeps the event-driven metrics current. It returns the detach
// function.
func Attach(bus *events.Bus) func() {
	subs := []func(){
		bus.Subscribe(func(e events.LoopFault) {
			loopFaults.WithLabelValues(strconv.FormatBool(e.Panic)).Inc()
		}),
		bus.Subscribe(func(events.GoalCelebrated) { goalsTotal.Inc() }),
		bus.Subscribe(func(e events.ScoreUpdated) {
			if e.Err != "" {
				fetchErrors.Inc()
			}
			scoreCurrent.Set(float64(e.Score))
			for _, s := range score.States {
				v := 0.0
				if string(s) == e.State {
					v = 1
				}
				gameState.WithLabelValues(string(s)).Set(v)
			}
		}),
		bus.Subscribe(func(e events.SettingsChanged) { brightness.Set(e.Brightness) }),
		bus.Subscribe(func(e events.WiFiChanged) {
			v := 0.0
			if e.Connected {
				v = 1
			}
			wifiConnected.Set(v)
		}),
	}
	return func() {
		for _, unsub := range subs {
			unsub()
		}
	}
}

// Driver counts frames on their way to the next driver.
type Driver struct {
	Next render.Driver
}

func (d Driver) Write(buf render.Buffer) error {
	Frame(buf)
	if d.Next == nil {
		return nil
	}
	return d.Next.Write(buf)
}
