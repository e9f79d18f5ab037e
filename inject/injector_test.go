package inject_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottlepy/bottle-inject/inject"
)

// counter is the shared fixture most invocation tests pass around.
type counter struct {
	n int
}

// ── Value and provider semantics ──────────────────────────────────────────────

func TestCallInject_ValueIdentity(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	shared := &counter{}
	inj.AddValue("c", shared)

	var got *counter
	_, err := inj.CallInject(func(d struct {
		inject.In
		C *counter
	}) {
		got = d.C
	})

	require.NoError(t, err)
	assert.Same(t, shared, got, "a value binding hands out the identical value")
}

// twoPoints declares the same dependency twice, once implicitly and once
// explicitly, so provider-per-point counting is observable.
type twoPoints struct {
	inject.In
	C     *counter
	Other *counter `inject:"c"`
}

func TestCallInject_ProviderOncePerPointPerCall(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	shared := &counter{}
	providerCalls := 0
	inj.AddProvider("c", func() *counter {
		providerCalls++
		return shared
	})

	handler := func(d twoPoints) {
		assert.Same(t, d.C, d.Other)
		d.C.n++
	}

	_, err := inj.CallInject(handler)
	require.NoError(t, err)
	_, err = inj.CallInject(handler)
	require.NoError(t, err)

	assert.Equal(t, 4, providerCalls, "two points, two calls")
	assert.Equal(t, 2, shared.n)
}

// ── Resolver semantics ────────────────────────────────────────────────────────

// countingResolver tracks resolver and provider activity across points.
type countingResolver struct {
	mu            sync.Mutex
	resolverCalls int
	counters      map[string]int
}

func (r *countingResolver) resolve(args inject.ResolverArgs) inject.Provider {
	r.mu.Lock()
	r.resolverCalls++
	r.mu.Unlock()
	key := args.Params.String(0, "provider_called")
	inc := args.Config.Int("increment", 1)
	return func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.counters[key] += inc
		return r.counters[key], nil
	}
}

type resolvedPair struct {
	inject.In
	Plain   int `inject:"c"`
	Special int `inject:"c,special_called,increment=10"`
}

func TestResolver_CachedPerPoint(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	r := &countingResolver{counters: map[string]int{}}
	inj.AddResolver("c", r.resolve)

	handler := func(d resolvedPair) (int, int) { return d.Plain, d.Special }

	results, err := inj.CallInject(handler)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 10}, results)

	results, err = inj.CallInject(handler)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 20}, results)

	assert.Equal(t, 2, r.resolverCalls, "one resolver run per distinct point, memoized across calls")
	assert.Equal(t, map[string]int{"provider_called": 2, "special_called": 20}, r.counters)
}

func TestResolver_MutationInvalidatesCache(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	r := &countingResolver{counters: map[string]int{}}
	inj.AddResolver("c", r.resolve)

	handler := func(d resolvedPair) {}

	_, err := inj.CallInject(handler)
	require.NoError(t, err)
	assert.Equal(t, 2, r.resolverCalls)

	inj.AddValue("unrelated", 1)

	_, err = inj.CallInject(handler)
	require.NoError(t, err)
	assert.Equal(t, 4, r.resolverCalls, "any registry mutation drops every cached resolution")
}

func TestResolver_OwnDependencies(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("dsn", "postgres://local")
	inj.AddResolver("conn", func(d struct {
		inject.In
		DSN string
	}) func() any {
		conn := d.DSN + "#0"
		return func() any { return conn }
	})

	var got string
	_, err := inj.CallInject(func(d struct {
		inject.In
		Conn string
	}) {
		got = d.Conn
	})

	require.NoError(t, err)
	assert.Equal(t, "postgres://local#0", got)
}

func TestProvider_OwnDependencies(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("base", 21)
	inj.AddProvider("derived", func(d struct {
		inject.In
		Base int
	}) int {
		return d.Base * 2
	})

	read := func(d struct {
		inject.In
		Derived int
	}) int {
		return d.Derived
	}

	results, err := inj.CallInject(read)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, results)

	// Rebinding the transitive dependency must reach the derived value on
	// the next call, through the coarse cache invalidation.
	inj.AddValue("base", 5)
	results, err = inj.CallInject(read)
	require.NoError(t, err)
	assert.Equal(t, []any{10}, results)
}

// ── Explicit-argument precedence ──────────────────────────────────────────────

func TestCallInject_SuppliedFieldWins(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	providerCalls := 0
	inj.AddProvider("c", func() *counter {
		providerCalls++
		return &counter{}
	})

	mine := &counter{n: 99}
	var got *counter
	_, err := inj.CallInject(func(d struct {
		inject.In
		C *counter
	}) {
		got = d.C
	}, struct {
		inject.In
		C *counter
	}{C: mine})

	require.NoError(t, err)
	assert.Same(t, mine, got)
	assert.Zero(t, providerCalls, "a caller-supplied field suppresses its provider")
}

func TestCallInject_SupplyWinsByPointName(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	providerCalls := 0
	inj.AddProvider("c", func() int {
		providerCalls++
		return -1
	})

	results, err := inj.CallInject(func(d twoPointInts) (int, int) {
		return d.A, d.B
	}, inject.Supply{"c": 7, "ignored": true})

	require.NoError(t, err)
	assert.Equal(t, []any{7, 7}, results, "every point named c is overridden")
	assert.Zero(t, providerCalls)
}

type twoPointInts struct {
	inject.In
	A int `inject:"c"`
	B int `inject:"c"`
}

func TestCallInject_PositionalArguments(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("prefix", ">> ")

	join := func(d struct {
		inject.In
		Prefix string
	}, label string, times int) string {
		out := d.Prefix + label
		for i := 1; i < times; i++ {
			out += label
		}
		return out
	}

	results, err := inj.CallInject(join, "ha", 2)
	require.NoError(t, err)
	assert.Equal(t, []any{">> haha"}, results)
}

func TestCallInject_ArgumentErrors(t *testing.T) {
	t.Parallel()

	inj := inject.New()

	_, err := inj.CallInject(func(label string) {})
	var missing inject.MissingArgumentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 0, missing.Index)
	assert.Equal(t, "inject: no argument supplied for parameter 0 (string)", err.Error())

	_, err = inj.CallInject(func(label string) {}, "ok", 3.14)
	var unmatched inject.UnmatchedArgumentError
	require.ErrorAs(t, err, &unmatched)
	assert.Equal(t, 1, unmatched.Index)
}

func TestCallInject_TrailingErrorSplit(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	boom := errors.New("boom")

	results, err := inj.CallInject(func() (string, error) { return "partial", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []any{"partial"}, results)

	results, err = inj.CallInject(func() (string, error) { return "full", nil })
	require.NoError(t, err)
	assert.Equal(t, []any{"full"}, results)
}

// ── Error taxonomy ────────────────────────────────────────────────────────────

func TestResolution_UnresolvedDependency(t *testing.T) {
	t.Parallel()

	inj := inject.New()

	_, err := inj.CallInject(func(d struct {
		inject.In
		DB string
	}) {
	})

	var unresolved inject.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "db", unresolved.Name)
	assert.Equal(t, `inject: unresolved injection point "db"`, err.Error())
}

func TestResolution_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("v", 1)

	_, err := inj.CallInject(func(d struct {
		inject.In
		V int `inject:"v,extra"`
	}) {
	})

	var invalid inject.InvalidConfigurationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t,
		`inject: the provider for "v" does not accept configuration (it is not a resolver)`,
		err.Error())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("n", 1)

	handler := func(d struct {
		inject.In
		N int
	}) {
	}

	_, err := inj.CallInject(handler)
	require.NoError(t, err)

	require.NoError(t, inj.Remove("n"))

	_, err = inj.CallInject(handler)
	var unresolved inject.UnresolvedDependencyError
	assert.ErrorAs(t, err, &unresolved)

	err = inj.Remove("never-bound")
	var unknown inject.UnknownRemovalError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, `inject: cannot remove unknown injection point "never-bound"`, err.Error())
}

func TestResolution_NotAProvider(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddResolver("c", func() any { return 42 })

	_, err := inj.CallInject(func(d struct {
		inject.In
		C int
	}) {
	})

	var notProvider inject.NotAProviderError
	require.ErrorAs(t, err, &notProvider)
	assert.Equal(t, "c", notProvider.Name)
}

func TestResolution_ValueTypeMismatch(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("c", "a string")

	_, err := inj.CallInject(func(d struct {
		inject.In
		C int
	}) {
	})

	var mismatch inject.ValueTypeError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "c", mismatch.Name)
	assert.Equal(t, "C", mismatch.Field)
}

// ── Aliases ───────────────────────────────────────────────────────────────────

func TestAliases_IndependentBindings(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	r := &countingResolver{counters: map[string]int{}}
	inj.AddResolver("request", r.resolve, "req", "rq")

	assert.Equal(t, []string{"req", "request", "rq"}, inj.Names())

	handler := func(d struct {
		inject.In
		Request int
		Req     int
		Rq      int
	}) {
	}

	_, err := inj.CallInject(handler)
	require.NoError(t, err)
	assert.Equal(t, 3, r.resolverCalls, "each alias primes its own resolver run")

	// Removing one alias leaves the siblings bound.
	require.NoError(t, inj.Remove("rq"))
	assert.Equal(t, []string{"req", "request"}, inj.Names())

	_, err = inj.CallInject(func(d struct {
		inject.In
		Req int
	}) {
	})
	assert.NoError(t, err)
}

// ── Optional points ───────────────────────────────────────────────────────────

func TestOptionalPoint(t *testing.T) {
	t.Parallel()

	inj := inject.New()

	read := func(d struct {
		inject.In
		Flag string `optional:"true"`
	}) string {
		return d.Flag
	}

	results, err := inj.CallInject(read)
	require.NoError(t, err)
	assert.Equal(t, []any{""}, results, "unbound optional points stay zero")

	inj.AddValue("flag", "on")
	results, err = inj.CallInject(read)
	require.NoError(t, err)
	assert.Equal(t, []any{"on"}, results, "binding the name picks it up after invalidation")
}

// ── Wrapping ──────────────────────────────────────────────────────────────────

func TestWrap_IdentityWithoutPoints(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	plain := func(a, b int) int { return a + b }

	wrapped := inj.Wrap(plain)

	assert.Equal(t,
		reflect.ValueOf(plain).Pointer(),
		reflect.ValueOf(wrapped).Pointer(),
		"no points, no wrapper")

	sum := wrapped.(func(a, b int) int)(2, 3)
	assert.Equal(t, 5, sum)
}

func TestWrap_InjectsPerCall(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	shared := &counter{}
	providerCalls := 0
	inj.AddProvider("c", func() *counter {
		providerCalls++
		return shared
	})

	bump := inject.WrapAs(inj, func(d struct {
		inject.In
		C *counter
	}, by int) int {
		d.C.n += by
		return d.C.n
	})

	assert.Equal(t, 3, bump(struct {
		inject.In
		C *counter
	}{}, 3))
	assert.Equal(t, 5, bump(struct {
		inject.In
		C *counter
	}{}, 2))
	assert.Equal(t, 2, providerCalls, "one provider run per call")

	// A caller-filled block is honored, not overwritten.
	own := &counter{n: 100}
	assert.Equal(t, 101, bump(struct {
		inject.In
		C *counter
	}{C: own}, 1))
	assert.Equal(t, 2, providerCalls)
}

func TestWrap_DoubleInjectionSafe(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	providerCalls := 0
	inj.AddProvider("c", func() *counter {
		providerCalls++
		return &counter{}
	})

	handler := func(d struct {
		inject.In
		C *counter
	}) {
	}
	wrapped := inj.Wrap(handler)

	_, err := inj.CallInject(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 1, providerCalls, "outer injection fills the block, the wrapper leaves it alone")
}

func TestWrap_ErrorChannel(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("n", 1)

	withErr := inject.WrapAs(inj, func(d oneInt) (int, error) { return d.N, nil })
	n, err := withErr(oneInt{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, inj.Remove("n"))

	_, err = withErr(oneInt{})
	var unresolved inject.UnresolvedDependencyError
	assert.ErrorAs(t, err, &unresolved, "resolution failures use the wrapped signature's error result")

	noErr := inject.WrapAs(inj, func(d oneInt) int { return d.N })
	assert.Panics(t, func() { noErr(oneInt{}) }, "no error result leaves only a panic")
}

type oneInt struct {
	inject.In
	N int
}

func TestBind_ProvenanceAndCall(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("n", 41)

	fn := func(d oneInt) int { return d.N + 1 }
	bound := inj.Bind(fn)

	assert.Same(t, inj, bound.Injector())
	assert.NotNil(t, bound.Unwrap())

	results, err := bound.Call()
	require.NoError(t, err)
	assert.Equal(t, []any{42}, results)

	// Binding a bound callable rebinds the original, not the wrapper.
	rebound := inj.Bind(bound)
	results, err = rebound.Call()
	require.NoError(t, err)
	assert.Equal(t, []any{42}, results)
}

// ── Introspection ─────────────────────────────────────────────────────────────

func TestResolveDependencies(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	r := &countingResolver{counters: map[string]int{}}
	inj.AddResolver("c", r.resolve)

	handler := func(d resolvedPair) {}

	deps, err := inj.ResolveDependencies(handler)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "Plain", deps[0].Param)
	assert.Equal(t, "Special", deps[1].Param)
	assert.Equal(t, "c", deps[0].Point.Name())
	assert.NotNil(t, deps[0].Provider)

	again, err := inj.ResolveDependencies(handler)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, 2, r.resolverCalls, "second resolution is a cache hit")
}

func TestValueHelpers(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	inj.AddValue("dsn", "postgres://local")

	got, err := inject.Value[string](inj, "dsn")
	require.NoError(t, err)
	assert.Equal(t, "postgres://local", got)

	assert.Equal(t, "postgres://local", inject.MustValue[string](inj, "dsn"))

	_, err = inject.Value[int](inj, "dsn")
	var mismatch inject.ValueTypeError
	assert.ErrorAs(t, err, &mismatch)

	_, err = inject.Value[string](inj, "missing")
	var unresolved inject.UnresolvedDependencyError
	assert.ErrorAs(t, err, &unresolved)

	assert.Panics(t, func() { inject.MustValue[string](inj, "missing") })
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestConcurrentResolutionAndCalls(t *testing.T) {
	t.Parallel()

	inj := inject.New()
	r := &countingResolver{counters: map[string]int{}}
	inj.AddResolver("c", r.resolve)
	inj.AddValue("dsn", "x")

	handler := func(d struct {
		inject.In
		Plain int    `inject:"c"`
		DSN   string
	}) string {
		return d.DSN
	}

	const goroutines = 16
	errs := make(chan error, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := inj.CallInject(handler); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}
