// Package inject is a name-based dependency resolution engine: it inspects a
// callable's parameter blocks, figures out which fields should come from a
// registry of named providers rather than from the caller, and invokes the
// callable with those fields filled in.
//
// Dependencies are declared structurally. A function takes a struct
// parameter embedding inject.In; every exported field of that struct is an
// injection point, named after the field or after an explicit tag:
//
//	type deps struct {
//	    inject.In
//	    Config *config.Config                     // point "config"
//	    Events chan string     `inject:"events"`  // point "events"
//	}
//
//	func notify(d deps, msg string) error { ... }
//
// Wiring happens on an engine instance:
//
//	inj := inject.New()
//	inj.AddValue("config", cfg)
//	inj.AddProvider("events", func() chan string { return bus.Subscribe() })
//
//	results, err := inj.CallInject(notify, "deploy finished")
//
// or ahead of time, producing a callable of the same type that injects on
// every invocation:
//
//	wrapped := inject.WrapAs(inj, notify)
//	err := wrapped(deps{}, "deploy finished")
//
// Resolution is by name only; there is no type graph, no lifetimes, and no
// cycle detection (a resolver that transitively needs its own name recurses
// until the stack runs out). Values registered with AddValue are singletons;
// providers registered with AddProvider run once per injection per call;
// resolvers registered with AddResolver additionally receive the point's
// parameters and config and can declare injected dependencies of their own.
//
// The dependency list of each callable is resolved once and memoized.
// Registering or removing any name drops the whole cache, so resolution
// always reflects the current registry. Steady-state calls take no locks and
// are safe for any number of concurrent goroutines; registration is meant
// for startup and is serialized internally.
package inject
