// Package score fetches the team's game state from the backend and keeps
// the running score the goal celebration is triggered from.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// ErrRemote covers every way the backend can fail a fetch.
var ErrRemote = errors.New("score feed")

type GameState string

const (
	Off  GameState = "OFF"
	Pre  GameState = "PRE"
	Live GameState = "LIVE"
	Crit GameState = "CRIT"
	Fut  GameState = "FUT"
)

// States lists every game state.
var States = []GameState{Off, Pre, Live, Crit, Fut}

// Active reports a game about to start or in progress.
func (s GameState) Active() bool { return s == Pre || s == Live || s == Crit }

// Delay is how long to wait before the next fetch.
func Delay(s GameState) time.Duration {
	switch {
	case s.Active():
		return 10 * time.Second
	case s == Fut:
		return 600 * time.Second
	}
	return 1800 * time.Second
}

func parseState(s string) GameState {
	switch g := GameState(s); g {
	case Pre, Live, Crit, Fut:
		return g
	}
	return Off
}

// Result is one parsed backend response.
type Result struct {
	Team          string
	State         GameState
	Score         int
	LatestVersion int
	NewURL        string

	// Tuning the backend may push alongside a version change.
	DoublePressMS *int
	DebounceMS    *int
}

type Client struct {
	HTTP *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

type request struct {
	Message string `json:"message"`
	Version int    `json:"version"`
}

// Fetch posts the team and firmware version to url and parses the reply.
func (c *Client) Fetch(ctx context.Context, url, team string, version int) (Result, error) {
	body, err := json.Marshal(request{Message: team, Version: version})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return Parse(data)
}

// Parse decodes a backend reply. Missing fields take the backend's
// defaults.
func Parse(data []byte) (Result, error) {
	if !gjson.ValidBytes(data) {
		return Result{}, fmt.Errorf("%w: malformed body", ErrRemote)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Result{}, fmt.Errorf("%w: body is not an object", ErrRemote)
	}
	if e := doc.Get("error"); e.Exists() {
		return Result{}, fmt.Errorf("%w: %s", ErrRemote, e.String())
	}

	r := Result{
		Team:          "Unknown",
		State:         Off,
		LatestVersion: 1,
	}
	if v := doc.Get("team_name"); v.Exists() {
		r.Team = v.String()
	}
	r.Score = int(doc.Get("score_game").Int())
	if v := doc.Get("game_state"); v.Exists() {
		r.State = parseState(v.String())
	}
	if v := doc.Get("latestVersion"); v.Exists() {
		r.LatestVersion = int(v.Int())
	}
	r.NewURL = doc.Get("new_url").String()
	if v := doc.Get("DOUBLE_PRESS_INTERVAL"); v.Exists() && v.Type != gjson.Null {
		n := int(v.Int())
		r.DoublePressMS = &n
	}
	if v := doc.Get("DEBOUNCE_MS"); v.Exists() && v.Type != gjson.Null {
		n := int(v.Int())
		r.DebounceMS = &n
	}
	return r, nil
}
