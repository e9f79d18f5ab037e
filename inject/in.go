package inject

// In marks a struct as a parameter block. Embed it in a function parameter's
// struct type to make that parameter's fields eligible for injection:
//
//	type deps struct {
//	    inject.In
//	    DB     *sql.DB                          // implicit point "db"
//	    Cache  *redis.Client `inject:"cache"`   // explicit point "cache"
//	    Window int           `inject:"window,size=100"`
//	    Debug  bool          `inject:"-"`       // never injected
//	}
//
//	func handler(d deps) error { ... }
//
// Field rules, applied by inspection:
//   - exported fields without a tag become implicit points named after the
//     field, with the leading upper-case runes lowered ("Request" becomes
//     "request", "UserDB" becomes "userDB", "DB" becomes "db")
//   - an `inject:"name"` tag declares an explicit point; items after the
//     name are positional resolver parameters, key=value items are resolver
//     config
//   - `inject:"-"` excludes the field entirely
//   - `optional:"true"` keeps the field a point but tolerates the name being
//     unbound; the field is left at its zero value instead of failing
//     resolution
//   - unexported fields and the embedded marker itself are never injected
//
// Parameters whose type does not embed In are caller-supplied and never
// touched by the engine.
type In struct{}

// Declarer lets a parameter block declare explicit points for its fields
// programmatically, with typed resolver arguments that struct tags cannot
// express. Keys are field names; a declared point overrides whatever the
// field's tag says, the way a type annotation outranks a default value.
//
//	func (deps) InjectionPoints() map[string]inject.Point {
//	    return map[string]inject.Point{
//	        "Counter": inject.NewPoint("c", inject.WithConfig("increment", 10)),
//	    }
//	}
type Declarer interface {
	InjectionPoints() map[string]Point
}

// Provider is the canonical shape a resolved dependency is stored as: a
// zero-argument callable producing the value to inject. It runs once per
// injection point per call of the target callable; any caching is the
// provider's own business.
type Provider func() (any, error)

// ResolverArgs carries an injection point's arguments into a parameterized
// resolver. A resolver that takes a ResolverArgs parameter receives the
// point's parameters and config there; when the point carries none the
// engine passes the zero value.
type ResolverArgs struct {
	Params Params
	Config Config
}

// Empty reports whether the point carried no arguments at all.
func (a ResolverArgs) Empty() bool {
	return len(a.Params) == 0 && len(a.Config) == 0
}

// Supply carries per-call named values into CallInject or BoundFunc.Call.
// Entries override the registered provider for any point with a matching
// dependency name, for the duration of that one call; entries matching no
// point are ignored. The web layer threads the live request and response
// through exactly this.
type Supply map[string]any

// Unwrapper is implemented by callables that stand in for another callable.
// Inspection and invocation follow Unwrap to a fixed point, so decorating a
// function never hides its injection points.
type Unwrapper interface {
	Unwrap() any
}
