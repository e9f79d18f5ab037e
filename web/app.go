package web

import (
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bottlepy/bottle-inject/config"
	"github.com/bottlepy/bottle-inject/inject"
)

// App ties the resolution engine to an HTTP stack: a chi router whose
// handlers are injected per request, configuration loaded from the
// environment, and a zerolog logger. It embeds the engine, so registration
// happens directly on the app:
//
//	app := web.New()
//	app.AddValue("db", db)
//	app.Router.Get("/users/{id}", showUser)
//	app.Run()
//
// Every App owns its own engine; two Apps never share bindings.
type App struct {
	*inject.Injector

	Config *config.Config
	Log    zerolog.Logger
	Router *Router

	plugins []Plugin
	booted  bool
}

// New loads configuration, builds the logger and router, and registers the
// bindings every application starts with.
func New(envFiles ...string) *App {
	cfg := config.Load(envFiles...)

	app := &App{
		Injector: inject.New(),
		Config:   cfg,
		Log:      newLogger(cfg.Log),
	}
	app.Router = newRouter(app)

	// Core bindings. The request-scoped names are placeholders: the router
	// supplies live values during dispatch, and outside a request their
	// providers refuse with OutsideRequestError naming the canonical point.
	app.AddValue("app", app)
	app.AddValue("injector", app.Injector)
	app.AddValue("config", cfg, "conf")
	app.AddValue("log", app.Log, "logger")
	app.AddProvider("request", unavailable("request"), "req", "rq")
	app.AddProvider("response", unavailable("response"), "res", "rs")
	app.AddProvider("params", unavailable("params"))
	app.AddProvider("requestID", unavailable("requestID"))

	return app
}

// Run boots the application (if it has not been booted yet) and serves on
// APP_PORT until the listener fails.
func (a *App) Run() {
	if err := a.Boot(); err != nil {
		a.Log.Fatal().Err(err).Msg("boot failed")
	}
	addr := ":" + a.Config.App.Port
	a.Log.Info().
		Str("app", a.Config.App.Name).
		Str("env", a.Config.App.Env).
		Str("addr", addr).
		Msg("listening")
	if err := http.ListenAndServe(addr, a.Router); err != nil {
		a.Log.Fatal().Err(err).Msg("server error")
	}
}

// ── Plugins ──────────────────────────────────────────────────────────────────

// Plugin is the two-phase extension interface. Register binds services into
// the app's engine; Boot runs after every installed plugin has registered,
// so it may resolve what the others bound.
type Plugin interface {
	Register(app *App) error
	Boot(app *App) error
}

// BasePlugin provides no-op phases. Embed it and override what you need.
type BasePlugin struct{}

func (BasePlugin) Register(*App) error { return nil }
func (BasePlugin) Boot(*App) error     { return nil }

// Install registers plugins in order. When the app is already booted, each
// plugin boots as soon as it registers.
func (a *App) Install(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Register(a); err != nil {
			return err
		}
		a.plugins = append(a.plugins, p)
		if a.booted {
			if err := p.Boot(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// Boot runs the Boot phase on every installed plugin, once. Run calls it
// automatically; call it yourself when serving through your own listener.
func (a *App) Boot() error {
	if a.booted {
		return nil
	}
	a.booted = true
	for _, p := range a.plugins {
		if err := p.Boot(a); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot has run.
func (a *App) Booted() bool { return a.booted }

// ── Environment ──────────────────────────────────────────────────────────────

// Environment returns the APP_ENV value.
func (a *App) Environment() string { return a.Config.App.Env }
func (a *App) IsLocal() bool       { return a.Environment() == "local" }
func (a *App) IsProduction() bool  { return a.Environment() == "production" }
func (a *App) IsTesting() bool     { return a.Environment() == "testing" }
func (a *App) IsDebug() bool       { return a.Config.App.Debug }

// ── helpers ──────────────────────────────────────────────────────────────────

// newLogger builds the application logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// unavailable builds the placeholder provider bound to a request-scoped name.
func unavailable(name string) func() (any, error) {
	return func() (any, error) {
		return nil, OutsideRequestError{Name: name}
	}
}
