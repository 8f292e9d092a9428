package wifi

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Profile is one saved network.
type Profile struct {
	SSID     string
	Password string
}

// Credentials stores profiles one per line as "ssid;password", in the order
// they were first saved.
type Credentials struct {
	mu   sync.Mutex
	path string
}

func NewCredentials(path string) *Credentials { return &Credentials{path: path} }

// Read returns the saved profiles. A missing file is no profiles.
func (c *Credentials) Read() ([]Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *Credentials) read() ([]Profile, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Profile
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ssid, pw, ok := strings.Cut(strings.TrimSpace(sc.Text()), ";")
		if !ok || ssid == "" {
			continue
		}
		out = append(out, Profile{SSID: ssid, Password: pw})
	}
	return out, sc.Err()
}

// Write saves or replaces the profile for ssid.
func (c *Credentials) Write(ssid, password string) error {
	if strings.ContainsAny(ssid, ";\n") || strings.Contains(password, "\n") {
		return fmt.Errorf("credentials for %q cannot be stored", ssid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	profiles, err := c.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range profiles {
		if profiles[i].SSID == ssid {
			profiles[i].Password = password
			replaced = true
		}
	}
	if !replaced {
		profiles = append(profiles, Profile{SSID: ssid, Password: password})
	}
	var b strings.Builder
	for _, p := range profiles {
		fmt.Fprintf(&b, "%s;%s\n", p.SSID, p.Password)
	}
	return os.WriteFile(c.path, []byte(b.String()), 0o600)
}

// Delete removes the file. Deleting nothing is not an error.
func (c *Credentials) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
