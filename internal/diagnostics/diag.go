// Package diagnostics turns engine events into operator-facing messages
// for the preview page.
package diagnostics

import (
	"fmt"

	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromEvent describes ev, or reports false for events not worth showing.
func FromEvent(ev events.Event) (Diagnostic, bool) {
	switch e := ev.(type) {
	case events.LoopFault:
		d := Diagnostic{
			Severity: Err,
			Code:     "SCHED.FAULT",
			Summary:  "Scheduler iteration failed",
			Detail:   e.Err,
			LikelyCauses: []string{
				"LED driver write failed",
				"settings store unavailable",
			},
		}
		if e.Panic {
			d.Code = "SCHED.PANIC"
			d.Summary = "Scheduler iteration panicked"
		}
		return d, true
	case events.ScoreUpdated:
		if e.Err == "" {
			return Diagnostic{}, false
		}
		return Diagnostic{
			Severity:       Warn,
			Code:           "SCORE.FETCH",
			Summary:        "Score fetch failed",
			Detail:         e.Err,
			LikelyCauses:   []string{"backend unreachable", "team not known to the backend"},
			SuggestedFixes: []string{"check the url setting", "check the team setting"},
		}, true
	case events.GoalCelebrated:
		return Diagnostic{
			Severity: Info,
			Code:     "SCORE.GOAL",
			Summary:  "Goal",
			Evidence: map[string]any{"previous": e.Previous, "current": e.Current},
		}, true
	case events.SettingsChanged:
		return Diagnostic{
			Severity: Info,
			Code:     "SETTINGS.CHANGED",
			Summary:  fmt.Sprintf("Settings changed by %s", e.Source),
			Evidence: map[string]any{
				"brightness": e.Brightness,
				"colour":     e.Colour,
				"routine":    e.Routine,
				"restart":    e.Restart,
			},
		}, true
	case events.WiFiChanged:
		d := Diagnostic{Severity: Info, Code: "WIFI.UP", Summary: "WiFi connected", Detail: e.SSID}
		if !e.Connected {
			d = Diagnostic{
				Severity:       Warn,
				Code:           "WIFI.DOWN",
				Summary:        "WiFi disconnected",
				SuggestedFixes: []string{"join a network through the setup portal"},
			}
		}
		return d, true
	}
	return Diagnostic{}, false
}

// Layout checks that word fits on the strip.
func Layout(l layout.Layout, word string, table glyph.Table) []Diagnostic {
	var out []Diagnostic
	if err := l.Validate(); err != nil {
		return append(out, Diagnostic{Severity: Err, Code: "LAYOUT.INVALID", Summary: "Pixel layout is invalid", Detail: err.Error()})
	}
	if unknown := table.Unknown(word); len(unknown) > 0 {
		out = append(out, Diagnostic{
			Severity: Warn,
			Code:     "LAYOUT.GLYPH",
			Summary:  "Word has characters without a glyph",
			Evidence: map[string]any{"word": word, "skipped": string(unknown)},
		})
	}
	letters := table.Word(word)
	if n := l.Dropped(letters); n > 0 {
		out = append(out, Diagnostic{
			Severity:       Warn,
			Code:           "LAYOUT.OVERFLOW",
			Summary:        "Word does not fit the strip",
			LikelyCauses:   []string{"num_pixels too small for the word", "skate_pixels too large"},
			SuggestedFixes: []string{fmt.Sprintf("use at most %d letters", l.Letters())},
			Evidence: map[string]any{
				"word":          word,
				"dropped_cells": n,
				"num_pixels":    l.Pixels,
				"skate_pixels":  l.Skate,
			},
		})
	}
	return out
}
