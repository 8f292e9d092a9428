package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"
)

var ErrJoinFailed = errors.New("could not join network")

// Station is the WiFi radio in client mode.
type Station interface {
	Join(ctx context.Context, ssid, password string) error
	Leave(ctx context.Context) error
	Connected(ctx context.Context) (bool, error)
	Scan(ctx context.Context) ([]string, error)
}

// CommandStation drives the radio through shell-free command templates such
// as "nmcli device wifi connect {ssid} password {password}". Templates are
// split into arguments first, so placeholders never need quoting.
type CommandStation struct {
	JoinCmd   string
	LeaveCmd  string
	StatusCmd string
	ScanCmd   string

	// run is exec by default; tests replace it.
	run func(ctx context.Context, argv []string) ([]byte, error)
}

func NewCommandStation(join, leave, status, scan string) *CommandStation {
	return &CommandStation{JoinCmd: join, LeaveCmd: leave, StatusCmd: status, ScanCmd: scan, run: execRun}
}

func execRun(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// expand splits tmpl and substitutes {key} placeholders argument by
// argument.
func expand(tmpl string, vars map[string]string) ([]string, error) {
	argv, err := shlex.Split(tmpl)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", tmpl, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command template is empty")
	}
	for i, a := range argv {
		for k, v := range vars {
			a = strings.ReplaceAll(a, "{"+k+"}", v)
		}
		argv[i] = a
	}
	return argv, nil
}

func (s *CommandStation) exec(ctx context.Context, tmpl string, vars map[string]string) ([]byte, error) {
	argv, err := expand(tmpl, vars)
	if err != nil {
		return nil, err
	}
	run := s.run
	if run == nil {
		run = execRun
	}
	return run(ctx, argv)
}

func (s *CommandStation) Join(ctx context.Context, ssid, password string) error {
	if _, err := s.exec(ctx, s.JoinCmd, map[string]string{"ssid": ssid, "password": password}); err != nil {
		return fmt.Errorf("%w %q: %v", ErrJoinFailed, ssid, err)
	}
	return nil
}

func (s *CommandStation) Leave(ctx context.Context) error {
	_, err := s.exec(ctx, s.LeaveCmd, nil)
	return err
}

// Connected reads the status command; any line starting with "connected"
// counts.
func (s *CommandStation) Connected(ctx context.Context) (bool, error) {
	out, err := s.exec(ctx, s.StatusCmd, nil)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "connected") {
			return true, nil
		}
	}
	return false, nil
}

// Scan lists visible SSIDs, one per output line, without duplicates.
func (s *CommandStation) Scan(ctx context.Context) ([]string, error) {
	out, err := s.exec(ctx, s.ScanCmd, nil)
	if err != nil {
		return nil, err
	}
	return uniqueLines(string(out)), nil
}

func uniqueLines(s string) []string {
	seen := map[string]bool{}
	var res []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		res = append(res, line)
	}
	return res
}

// SimStation is an in-memory radio for the simulator and tests.
type SimStation struct {
	mu       sync.Mutex
	networks map[string]string
	order    []string
	joined   string
}

// NewSimStation takes "ssid" or "ssid:password" entries.
func NewSimStation(networks ...string) *SimStation {
	s := &SimStation{networks: map[string]string{}}
	for _, n := range networks {
		ssid, pw, _ := strings.Cut(n, ":")
		if _, dup := s.networks[ssid]; !dup {
			s.order = append(s.order, ssid)
		}
		s.networks[ssid] = pw
	}
	return s
}

func (s *SimStation) Join(_ context.Context, ssid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pw, ok := s.networks[ssid]
	if !ok || pw != password {
		return fmt.Errorf("%w %q", ErrJoinFailed, ssid)
	}
	s.joined = ssid
	return nil
}

func (s *SimStation) Leave(context.Context) error {
	s.mu.Lock()
	s.joined = ""
	s.mu.Unlock()
	return nil
}

func (s *SimStation) Connected(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined != "", nil
}

func (s *SimStation) Scan(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}
