package inject

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// Injector is the resolution engine: a registry of named resolvers plus a
// per-callable resolution cache. One instance is built at startup, mutated
// while wiring the application, and then shared read-only by any number of
// concurrent callers; there is no package-level default instance.
type Injector struct {
	mu        sync.RWMutex
	resolvers map[string]binding

	// cache maps callable identity to its *resolution. Registry mutations
	// swap in a fresh map, which both clears every entry at once and acts as
	// the visibility barrier toward later resolutions. In-flight calls that
	// already loaded the old map finish against pre-mutation providers.
	cache atomic.Pointer[sync.Map]
}

// New returns an empty engine.
func New() *Injector {
	inj := &Injector{resolvers: make(map[string]binding)}
	inj.cache.Store(new(sync.Map))
	return inj
}

// invalidate drops every cached resolution. Callers hold mu.
func (inj *Injector) invalidate() {
	inj.cache.Store(new(sync.Map))
}

// Dependency is one entry of a callable's resolved dependency list.
type Dependency struct {
	// Param is the block field the value lands in.
	Param string

	// Point is the injection point the field declared.
	Point Point

	// Provider produces the value, once per call.
	Provider Provider
}

// callableKey identifies a callable in the cache. The code pointer alone is
// not unique across closures and made functions, so the reflect type rides
// along; two callables sharing both resolve identically anyway.
type callableKey struct {
	ptr uintptr
	typ reflect.Type
}

// fieldFill is a primed injectable field. provider is nil for an optional
// point whose name had no binding at cache-population time.
type fieldFill struct {
	fieldSpec
	provider Provider
}

// blockFill is the fill plan for one parameter block.
type blockFill struct {
	param  int
	typ    reflect.Type
	fields []fieldFill
}

// resolution is one cache entry: everything needed to call one callable.
// Entries are immutable once installed.
type resolution struct {
	spec  *funcSpec
	deps  []Dependency
	fills []blockFill
}

// ── Resolution ────────────────────────────────────────────────────────────────

// ResolveDependencies returns the callable's ordered dependency list, one
// entry per resolvable injection point. The first call per callable inspects
// it and invokes the resolver of every point once; later calls return the
// memoized list until a registry mutation clears it.
func (inj *Injector) ResolveDependencies(fn any) ([]Dependency, error) {
	res, err := inj.resolve(fn)
	if err != nil {
		return nil, err
	}
	deps := make([]Dependency, len(res.deps))
	copy(deps, res.deps)
	return deps, nil
}

func (inj *Injector) resolve(fn any) (*resolution, error) {
	fn = unwrap(fn)
	spec := specOf(fn)
	key := callableKey{ptr: reflect.ValueOf(fn).Pointer(), typ: spec.fnType}

	cache := inj.cache.Load()
	if hit, ok := cache.Load(key); ok {
		return hit.(*resolution), nil
	}

	// Miss: compute the full plan before installing anything, so a failed
	// prime never leaves a partial entry behind. Racing goroutines compute
	// equal plans and LoadOrStore keeps whichever lands first.
	res := &resolution{spec: spec}
	for _, block := range spec.blocks {
		bf := blockFill{param: block.param, typ: block.typ}
		for _, field := range block.fields {
			provider, err := inj.prime(field.point)
			if err != nil {
				if field.point.optional && isUnresolved(err, field.point.name) {
					bf.fields = append(bf.fields, fieldFill{fieldSpec: field})
					continue
				}
				return nil, err
			}
			bf.fields = append(bf.fields, fieldFill{fieldSpec: field, provider: provider})
			res.deps = append(res.deps, Dependency{Param: field.name, Point: field.point, Provider: provider})
		}
		res.fills = append(res.fills, bf)
	}
	installed, _ := cache.LoadOrStore(key, res)
	return installed.(*resolution), nil
}

func isUnresolved(err error, name string) bool {
	var unresolved UnresolvedDependencyError
	return errors.As(err, &unresolved) && unresolved.Name == name
}

// prime turns one injection point into a ready provider: look the name up,
// run its resolver through the injection path (so the resolver's own blocks
// resolve recursively), and adapt whatever callable comes back. A resolver
// that reaches its own name recurses without termination; no cycle guard.
func (inj *Injector) prime(point Point) (Provider, error) {
	b, ok := inj.lookup(point.name)
	if !ok {
		return nil, UnresolvedDependencyError{Name: point.name}
	}
	var args []any
	if len(point.params) > 0 || len(point.config) > 0 {
		args = append(args, ResolverArgs{Params: point.params, Config: point.config})
	}
	results, err := inj.call(b.resolver, args...)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == nil {
		return nil, NotAProviderError{Name: point.name}
	}
	raw := results[0]
	if reflect.TypeOf(raw).Kind() != reflect.Func {
		return nil, NotAProviderError{Name: point.name, Got: reflect.TypeOf(raw)}
	}
	return inj.asProvider(raw), nil
}

// asProvider adapts a resolver's result to the canonical provider shape.
// Common zero-argument shapes are taken directly; anything else goes through
// the injection path per call, which is what lets a provider declare
// parameter blocks of its own. It is always invoked with zero explicit
// arguments, so non-block parameters fail the call.
func (inj *Injector) asProvider(fn any) Provider {
	switch p := fn.(type) {
	case Provider:
		return p
	case func() (any, error):
		return p
	case func() any:
		return func() (any, error) { return p(), nil }
	}
	return func() (any, error) {
		results, err := inj.call(fn)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results[0], nil
	}
}

// ── Invocation ────────────────────────────────────────────────────────────────

// CallInject invokes fn with its parameter blocks filled from the registry.
//
// Supplied arguments are matched left-to-right to the first parameter they
// are assignable to; an inject.Supply argument instead carries per-call
// named values that override providers by point name. Caller-supplied block
// fields that are non-zero are never overwritten. Unmatched arguments and
// parameters left without a value are errors.
//
// The callable's results come back as a slice; a trailing error result is
// split off and returned as the error, joining any resolution failure.
func (inj *Injector) CallInject(fn any, args ...any) ([]any, error) {
	return inj.call(fn, args...)
}

func (inj *Injector) call(fn any, args ...any) ([]any, error) {
	fn = unwrap(fn)
	res, err := inj.resolve(fn)
	if err != nil {
		return nil, err
	}

	var supply Supply
	positional := args[:0:0]
	for _, a := range args {
		if s, ok := a.(Supply); ok {
			if supply == nil {
				supply = make(Supply, len(s))
			}
			for k, v := range s {
				supply[k] = v
			}
			continue
		}
		positional = append(positional, a)
	}

	t := res.spec.fnType
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	in := make([]reflect.Value, fixed)
	filled := make([]bool, fixed)
	var variadic []reflect.Value

	for ai, a := range positional {
		av := reflect.ValueOf(a)
		matched := false
		for i := 0; i < fixed && !matched; i++ {
			if filled[i] {
				continue
			}
			if ok, zero := fits(av, a, t.In(i)); ok {
				if zero {
					in[i] = reflect.Zero(t.In(i))
				} else {
					in[i] = av
				}
				filled[i] = true
				matched = true
			}
		}
		if !matched && t.IsVariadic() {
			et := t.In(t.NumIn() - 1).Elem()
			if ok, zero := fits(av, a, et); ok {
				if zero {
					variadic = append(variadic, reflect.Zero(et))
				} else {
					variadic = append(variadic, av)
				}
				matched = true
			}
		}
		if !matched {
			return nil, UnmatchedArgumentError{Index: ai, Got: typeOf(a)}
		}
	}

	// Parameter blocks: start from the caller's value when one was supplied,
	// otherwise from zero, and fill only fields still at their zero value.
	for _, bf := range res.fills {
		block := reflect.New(bf.typ).Elem()
		if filled[bf.param] {
			block.Set(in[bf.param])
		}
		if err := inj.fillBlock(block, bf, supply); err != nil {
			return nil, err
		}
		in[bf.param] = block
		filled[bf.param] = true
	}

	for i := 0; i < fixed; i++ {
		if filled[i] {
			continue
		}
		if t.In(i) == argsType {
			in[i] = reflect.Zero(argsType)
			continue
		}
		return nil, MissingArgumentError{Index: i, Type: t.In(i)}
	}

	out := reflect.ValueOf(fn).Call(append(in, variadic...))
	return splitResults(t, out)
}

// fillBlock resolves every zero field of one block, honoring per-call
// supplied values over providers and skipping optional points that stayed
// unbound.
func (inj *Injector) fillBlock(block reflect.Value, bf blockFill, supply Supply) error {
	for _, ff := range bf.fields {
		fv := block.FieldByIndex(ff.index)
		if !fv.IsZero() {
			continue
		}
		if supplied, ok := supply[ff.point.name]; ok {
			if err := setField(fv, supplied, ff); err != nil {
				return err
			}
			continue
		}
		if ff.provider == nil {
			continue
		}
		value, err := ff.provider()
		if err != nil {
			return err
		}
		if err := setField(fv, value, ff); err != nil {
			return err
		}
	}
	return nil
}

func setField(fv reflect.Value, value any, ff fieldFill) error {
	if value == nil {
		switch fv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			fv.SetZero()
			return nil
		}
		return ValueTypeError{Name: ff.point.name, Field: ff.name, Want: fv.Type()}
	}
	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(fv.Type()) {
		return ValueTypeError{Name: ff.point.name, Field: ff.name, Got: vv.Type(), Want: fv.Type()}
	}
	fv.Set(vv)
	return nil
}

// fits reports whether the argument can serve a parameter of type pt; zero
// is true when a nil argument should become the type's zero value.
func fits(av reflect.Value, a any, pt reflect.Type) (ok, zero bool) {
	if a == nil {
		switch pt.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return true, true
		}
		return false, false
	}
	return av.Type().AssignableTo(pt), false
}

func splitResults(t reflect.Type, out []reflect.Value) ([]any, error) {
	n := t.NumOut()
	results := make([]any, 0, n)
	var callErr error
	for i := 0; i < n; i++ {
		if i == n-1 && t.Out(i) == errorType {
			if !out[i].IsNil() {
				callErr = out[i].Interface().(error)
			}
			continue
		}
		results = append(results, out[i].Interface())
	}
	return results, callErr
}

func typeOf(a any) reflect.Type {
	if a == nil {
		return nil
	}
	return reflect.TypeOf(a)
}

// ── Wrapping ──────────────────────────────────────────────────────────────────

// BoundFunc ties a callable to the engine that will inject it. It is the
// provenance-carrying form of Wrap: the owning engine stays discoverable and
// the original callable is reachable through Unwrap, so inspection sees
// through it.
type BoundFunc struct {
	inj *Injector
	fn  any
}

// Bind associates fn with the engine without changing it. Resolution still
// happens lazily on first call, cache-backed afterwards. Bind panics when fn
// is not a function.
func (inj *Injector) Bind(fn any) *BoundFunc {
	fn = unwrap(fn)
	specOf(fn)
	return &BoundFunc{inj: inj, fn: fn}
}

// Call invokes the callable through the injection path.
func (b *BoundFunc) Call(args ...any) ([]any, error) {
	return b.inj.call(b.fn, args...)
}

// Unwrap returns the original callable.
func (b *BoundFunc) Unwrap() any { return b.fn }

// Injector returns the engine the callable is bound to.
func (b *BoundFunc) Injector() *Injector { return b.inj }

// Wrap returns a callable of the identical type that injects its parameter
// blocks on every invocation. A callable with no injection points is
// returned unchanged. Caller-supplied non-zero block fields stay untouched,
// so wrapping twice, or calling a wrapped callable through CallInject, still
// injects each point exactly once.
//
// Resolution or provider failures surface in the callable's trailing error
// result when it declares one; otherwise they panic, since the wrapper has
// no other channel.
func (inj *Injector) Wrap(fn any) any {
	fn = unwrap(fn)
	spec := specOf(fn)
	if !spec.points() {
		return fn
	}
	v := reflect.ValueOf(fn)
	t := spec.fnType
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		res, err := inj.resolve(fn)
		if err != nil {
			return wrappedFailure(t, err)
		}
		for _, bf := range res.fills {
			block := reflect.New(bf.typ).Elem()
			block.Set(in[bf.param])
			if err := inj.fillBlock(block, bf, nil); err != nil {
				return wrappedFailure(t, err)
			}
			in[bf.param] = block
		}
		if t.IsVariadic() {
			return v.CallSlice(in)
		}
		return v.Call(in)
	}).Interface()
}

// WrapAs is the type-preserving form of Wrap.
func WrapAs[F any](inj *Injector, fn F) F {
	return inj.Wrap(fn).(F)
}

// wrappedFailure routes an injection failure out of a wrapped call: through
// the trailing error result when the signature has one, as a panic when it
// does not.
func wrappedFailure(t reflect.Type, err error) []reflect.Value {
	n := t.NumOut()
	if n == 0 || t.Out(n-1) != errorType {
		panic(err)
	}
	out := make([]reflect.Value, n)
	for i := 0; i < n-1; i++ {
		out[i] = reflect.Zero(t.Out(i))
	}
	out[n-1] = reflect.ValueOf(err)
	return out
}

// Value resolves a single name immediately: the resolver runs once, the
// provider runs once, nothing is cached. The result must be assignable to T.
func Value[T any](inj *Injector, name string) (T, error) {
	var zero T
	provider, err := inj.prime(Point{name: name})
	if err != nil {
		return zero, err
	}
	raw, err := provider()
	if err != nil {
		return zero, err
	}
	value, ok := raw.(T)
	if !ok {
		return zero, ValueTypeError{Name: name, Got: typeOf(raw), Want: reflect.TypeOf((*T)(nil)).Elem()}
	}
	return value, nil
}

// MustValue is Value, panicking on failure. Intended for wiring code where a
// missing binding is a programming error.
func MustValue[T any](inj *Injector, name string) T {
	value, err := Value[T](inj, name)
	if err != nil {
		panic(err)
	}
	return value
}
