package wifi

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var page = template.Must(template.New("portal").Parse(`<html><head><title>LumaRink WiFi</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:Arial,sans-serif;margin:0;padding:20px}h1{color:#333}form{max-width:300px}label{display:block;margin-top:10px}input,select{width:100%;padding:5px;margin-top:5px}input[type="submit"]{background-color:#4CAF50;color:white;border:none;padding:10px;cursor:pointer}</style>
</head><body><h1>LumaRink WiFi</h1>
{{- if .Done}}
{{- if .OK}}<p>Successfully connected to {{.SSID}}.</p>{{else}}<p>Failed to connect. Please try again.</p>{{end}}
{{- else}}
<form action="/" method="post">
<label for="ssid">SSID:</label>
{{- if .Networks}}
<select id="ssid" name="ssid">{{range .Networks}}<option value="{{.}}">{{.}}</option>{{end}}</select>
{{- else}}
<input type="text" id="ssid" name="ssid" required>
{{- end}}
<label for="password">Password:</label>
<input type="password" id="password" name="password" required>
<input type="submit" value="Connect"></form>
{{- end}}
</body></html>
`))

type pageData struct {
	Networks []string
	Done     bool
	OK       bool
	SSID     string
}

// Portal is the captive configuration page. It serves only until the sign
// is connected.
type Portal struct {
	mgr *Manager
	log zerolog.Logger

	mu   sync.Mutex
	stop context.CancelFunc
}

func NewPortal(mgr *Manager, log zerolog.Logger) *Portal {
	return &Portal{mgr: mgr, log: log}
}

func (p *Portal) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/", p.form)
	r.Post("/", p.configure)
	return r
}

func (p *Portal) networks(r *http.Request) []string {
	nets, err := p.mgr.Networks(r.Context())
	if err != nil {
		p.log.Warn().Err(err).Msg("scan failed")
	}
	return nets
}

func (p *Portal) form(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, pageData{Networks: p.networks(r)})
}

func (p *Portal) configure(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.render(w, http.StatusBadRequest, pageData{Done: true})
		return
	}
	ssid := r.PostFormValue("ssid")
	password := r.PostFormValue("password")
	if ssid == "" {
		p.render(w, http.StatusBadRequest, pageData{Done: true})
		return
	}
	err := p.mgr.Join(r.Context(), ssid, password)
	if err != nil {
		p.log.Warn().Err(err).Str("ssid", ssid).Msg("portal join failed")
	}
	p.render(w, http.StatusOK, pageData{Done: true, OK: err == nil, SSID: ssid})
	if err == nil {
		p.shutdown()
	}
}

// shutdown ends a running Serve. In-flight responses are still delivered.
func (p *Portal) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		p.stop()
	}
}

func (p *Portal) render(w http.ResponseWriter, status int, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Execute(w, d); err != nil {
		p.log.Error().Err(err).Msg("render portal page")
	}
}

// Serve runs the portal on addr until ctx ends or the sign connects.
func (p *Portal) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return p.serve(ctx, ln)
}

func (p *Portal) serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	p.stop = cancel
	p.mu.Unlock()

	srv := &http.Server{
		Handler:           p.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		p.waitConnected(ctx)
		shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdown)
	}()
	p.log.Info().Str("addr", ln.Addr().String()).Msg("captive portal listening")
	err := srv.Serve(ln)
	cancel()
	<-closed
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// waitConnected returns when ctx ends or the manager reports a connection.
func (p *Portal) waitConnected(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if p.mgr.IsConnected() {
				p.log.Info().Msg("wifi connected, closing setup portal")
				return
			}
		}
	}
}
