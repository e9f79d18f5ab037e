// Package web ties the injection engine to an HTTP application: a chi
// router that injects handler parameter blocks on every request,
// configuration from the environment, zerolog request logging, and a
// two-phase plugin system.
//
// # Bootstrap
//
//	app := web.New() // loads .env automatically
//	app.AddValue("greeting", "hello")
//
//	app.Router.Get("/hello/{name}", func(d struct {
//	    inject.In
//	    Greeting string     `inject:"greeting"`
//	    Params   web.Params `inject:"params"`
//	}) string {
//	    return d.Greeting + ", " + d.Params.Get("name")
//	})
//
//	app.Run()
//
// Plain func(http.ResponseWriter, *http.Request) handlers are registered
// untouched, so the two styles mix freely on one router.
//
// # Request-scoped points
//
// During dispatch the router supplies live values for four point names:
//
//   - "request"   → *http.Request        (aliases "req", "rq")
//   - "response"  → http.ResponseWriter  (aliases "res", "rs")
//   - "params"    → web.Params (route URL parameters)
//   - "requestID" → string (the X-Request-Id header value)
//
// Resolving any of them outside a request fails with OutsideRequestError.
//
// # Handler results
//
// A handler may write through an injected "response" and return nothing.
// Otherwise its first return value is rendered: a string as text/plain,
// []byte raw, anything else as JSON. A non-nil trailing error becomes a 500
// envelope and an error log entry; in debug mode the error text reaches the
// client.
//
// # Plugins
//
//	type CachePlugin struct{ web.BasePlugin }
//
//	func (CachePlugin) Register(app *web.App) error {
//	    app.AddValue("cache", cache.New())
//	    return nil
//	}
//
//	app.Install(CachePlugin{})
//
// Register binds services; Boot runs once every installed plugin has
// registered, so it may resolve what the others bound.
package web
