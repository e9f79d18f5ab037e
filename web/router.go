package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bottlepy/bottle-inject/inject"
)

// Router wraps chi.Router. Route handlers may be plain net/http handlers or
// any function with parameter blocks; the latter are bound to the app's
// engine when the route is registered and injected on every request.
type Router struct {
	app *App
	mux chi.Router
}

func newRouter(app *App) *Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger(app.Log))
	r.Use(middleware.Recoverer)
	return &Router{app: app, mux: r}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h any)    { r.mux.Get(pattern, r.bind(h)) }
func (r *Router) Post(pattern string, h any)   { r.mux.Post(pattern, r.bind(h)) }
func (r *Router) Put(pattern string, h any)    { r.mux.Put(pattern, r.bind(h)) }
func (r *Router) Patch(pattern string, h any)  { r.mux.Patch(pattern, r.bind(h)) }
func (r *Router) Delete(pattern string, h any) { r.mux.Delete(pattern, r.bind(h)) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h any) {
	hf := r.bind(h)
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, hf)
	}
}

// ── Handler binding ──────────────────────────────────────────────────────────

// bind adapts one route handler. Plain net/http shapes pass through
// untouched. Anything else must be a function; it is bound at registration
// time, so a malformed parameter block panics at startup instead of on the
// first request, and it is called per request with the request-scoped values
// supplied by name.
func (r *Router) bind(h any) http.HandlerFunc {
	switch hf := h.(type) {
	case http.HandlerFunc:
		return hf
	case func(http.ResponseWriter, *http.Request):
		return hf
	case http.Handler:
		return hf.ServeHTTP
	}

	bound := r.app.Bind(h)
	return func(w http.ResponseWriter, req *http.Request) {
		results, err := bound.Call(requestSupply(w, req))
		if err != nil {
			r.app.fail(w, req, err)
			return
		}
		r.app.render(w, results)
	}
}

// requestSupply carries the live request-scoped values under every name the
// app binds them to, aliases included.
func requestSupply(w http.ResponseWriter, req *http.Request) inject.Supply {
	return inject.Supply{
		"request": req, "req": req, "rq": req,
		"response": w, "res": w, "rs": w,
		"params":    routeParams(req),
		"requestID": RequestIDFrom(req),
	}
}

// render writes an injected handler's return value. Handlers that write to
// the response themselves return nothing, or nil. A string becomes
// text/plain, []byte is written raw, and any other value is encoded as JSON.
func (a *App) render(w http.ResponseWriter, results []any) {
	if len(results) == 0 {
		return
	}
	switch body := results[0].(type) {
	case nil:
		return
	case string:
		Text(w, http.StatusOK, body)
	case []byte:
		_, _ = w.Write(body)
	default:
		JSON(w, http.StatusOK, body)
	}
}

// fail reports a failed dispatch: the error is logged with request context,
// and the client gets a 500 envelope, carrying the error text when the app
// runs in debug mode.
func (a *App) fail(w http.ResponseWriter, req *http.Request, err error) {
	a.Log.Error().
		Err(err).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("handler failed")
	if a.Config.App.Debug {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	ServerError(w)
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing this router's pattern space.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{app: r.app, mux: mx})
	})
}

// Prefix creates a sub-router mounted under a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{app: r.app, mux: mx})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Resource routes ──────────────────────────────────────────────────────────

// ResourceController handles the standard RESTful routes for a resource.
//
//	GET    /photos           → c.Index
//	POST   /photos           → c.Store
//	GET    /photos/{id}      → c.Show
//	PUT    /photos/{id}      → c.Update
//	DELETE /photos/{id}      → c.Destroy
type ResourceController interface {
	Index(w http.ResponseWriter, r *http.Request)
	Store(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

func (r *Router) Resource(pattern string, c ResourceController) {
	r.mux.Get(pattern, c.Index)
	r.mux.Post(pattern, c.Store)
	r.mux.Get(pattern+"/{id}", c.Show)
	r.mux.Put(pattern+"/{id}", c.Update)
	r.mux.Patch(pattern+"/{id}", c.Update)
	r.mux.Delete(pattern+"/{id}", c.Destroy)
}

// ── Static files ─────────────────────────────────────────────────────────────

// Static serves a filesystem at the given prefix.
// e.g. router.Static("/public", "./public")
func (r *Router) Static(prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.mux.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}

// ── Params ───────────────────────────────────────────────────────────────────

// Params holds the route's URL parameters. During dispatch it is injectable
// under the point name "params".
type Params map[string]string

// Get returns the named parameter, or "".
func (p Params) Get(key string) string { return p[key] }

// Param extracts a URL parameter from a raw request.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func routeParams(req *http.Request) Params {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		return Params{}
	}
	params := make(Params, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return params
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to
// http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
