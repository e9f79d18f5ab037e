package inject

import (
	"reflect"
	"sort"
)

// binding is one registry entry. Aliases get their own entry pointing at the
// same resolver, so removing an alias never disturbs its siblings.
type binding struct {
	name     string
	resolver any
}

// ── Registration ──────────────────────────────────────────────────────────────

// AddResolver binds resolver to name and every alias, silently overwriting
// prior bindings, and invalidates all cached resolutions.
//
// A resolver is any function producing a provider. It may take an
// inject.ResolverArgs parameter to receive the injection point's arguments,
// and any number of parameter blocks of its own, resolved recursively when
// the resolver runs. Its result may in turn be any function; providers with
// parameter blocks have them resolved on every call.
func (inj *Injector) AddResolver(name string, resolver any, aliases ...string) {
	mustBeFunc("AddResolver", resolver)
	inj.mu.Lock()
	defer inj.mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		inj.resolvers[n] = binding{name: n, resolver: resolver}
	}
	inj.invalidate()
}

// AddProvider binds provider to name and every alias. The binding accepts no
// injection-point arguments: a point that carries parameters or config fails
// resolution with InvalidConfigurationError.
func (inj *Injector) AddProvider(name string, provider any, aliases ...string) {
	mustBeFunc("AddProvider", provider)
	inj.mu.Lock()
	defer inj.mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		inj.resolvers[n] = binding{name: n, resolver: makeNullResolver(n, provider)}
	}
	inj.invalidate()
}

// AddValue binds a constant to name and every alias. Every resolution
// receives the identical value, which makes it the singleton registration
// form.
func (inj *Injector) AddValue(name string, value any, aliases ...string) {
	inj.AddProvider(name, func() any { return value }, aliases...)
}

// Remove deletes the binding for name and invalidates all cached
// resolutions. Removing a name with no binding returns UnknownRemovalError;
// there is no silent no-op. Aliases are independent entries, so removing one
// leaves the others bound.
func (inj *Injector) Remove(name string) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if _, ok := inj.resolvers[name]; !ok {
		return UnknownRemovalError{Name: name}
	}
	delete(inj.resolvers, name)
	inj.invalidate()
	return nil
}

// Names returns every bound name, aliases included, sorted.
func (inj *Injector) Names() []string {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	names := make([]string, 0, len(inj.resolvers))
	for n := range inj.resolvers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// lookup fetches the binding for name.
func (inj *Injector) lookup(name string) (binding, bool) {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	b, ok := inj.resolvers[name]
	return b, ok
}

// makeNullResolver adapts a plain provider into the uniform resolver shape:
// called without arguments it hands the provider back untouched, called with
// any it refuses, naming the bound point.
func makeNullResolver(name string, provider any) func(ResolverArgs) (any, error) {
	return func(args ResolverArgs) (any, error) {
		if !args.Empty() {
			return nil, InvalidConfigurationError{Name: name}
		}
		return provider, nil
	}
}

func mustBeFunc(op string, fn any) {
	if fn == nil {
		panic("inject: " + op + " needs a function, got nil")
	}
	if reflect.TypeOf(fn).Kind() != reflect.Func {
		panic("inject: " + op + " needs a function, got " + reflect.TypeOf(fn).String())
	}
}
