package inject

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ── Resolver arguments ────────────────────────────────────────────────────────

// Params holds the positional arguments a Point carries for its resolver.
// Arguments parsed from struct tags are strings; arguments declared through
// NewPoint or a Declarer keep their original types.
type Params []any

// String returns the i'th parameter rendered as a string, or def when the
// index is out of range.
func (p Params) String(i int, def string) string {
	if i < 0 || i >= len(p) {
		return def
	}
	if s, ok := p[i].(string); ok {
		return s
	}
	return fmt.Sprint(p[i])
}

// Config holds the keyword arguments a Point carries for its resolver.
// Values parsed from struct tags are strings; the accessors convert on the
// way out so resolvers stay agnostic to how the point was declared.
type Config map[string]any

// String returns the value under key as a string, or def when absent.
func (c Config) String(key, def string) string {
	v, ok := c[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value under key as an int, or def when absent or not
// convertible.
func (c Config) Int(key string, def int) int {
	v, ok := c[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// Bool returns the value under key as a bool, or def when absent or not
// convertible.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// Float returns the value under key as a float64, or def when absent or not
// convertible.
func (c Config) Float(key string, def float64) float64 {
	v, ok := c[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}
	return def
}

// ── Point ─────────────────────────────────────────────────────────────────────

// Point describes a single injection point: the name of the dependency to
// inject plus optional arguments for its resolver. Points are immutable value
// descriptors; the inspector produces a fresh one per field per inspection.
type Point struct {
	name     string
	params   Params
	config   Config
	implicit bool
	optional bool
}

// NewPoint builds an explicit Point for the named dependency.
func NewPoint(name string, opts ...PointOption) Point {
	p := Point{name: name}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// PointOption configures a Point under construction.
type PointOption func(*Point)

// WithParams appends positional resolver arguments.
func WithParams(params ...any) PointOption {
	return func(p *Point) {
		p.params = append(p.params, params...)
	}
}

// WithConfig sets one keyword resolver argument.
func WithConfig(key string, value any) PointOption {
	return func(p *Point) {
		if p.config == nil {
			p.config = Config{}
		}
		p.config[key] = value
	}
}

// Optional marks the point as tolerated-absent: resolution skips it instead
// of failing when the name has no binding.
func Optional() PointOption {
	return func(p *Point) {
		p.optional = true
	}
}

// Name returns the dependency name the point asks for.
func (p Point) Name() string { return p.name }

// Parameters returns the positional resolver arguments.
func (p Point) Parameters() Params { return p.params }

// Config returns the keyword resolver arguments.
func (p Point) Config() Config { return p.config }

// Implicit reports whether the point was inferred from a bare field rather
// than declared through a tag, a Declarer, or NewPoint.
func (p Point) Implicit() bool { return p.implicit }

// Optional reports whether resolution tolerates the name being unbound.
func (p Point) Optional() bool { return p.optional }

// Equal reports whether two points ask for the same dependency with the same
// resolver arguments. Name, parameters, and config take part in the
// comparison; implicit and optional do not, so an inferred point and an
// independently constructed explicit one compare equal when they request the
// same thing.
func (p Point) Equal(o Point) bool {
	if p.name != o.name || len(p.params) != len(o.params) || len(p.config) != len(o.config) {
		return false
	}
	if len(p.params) > 0 && !reflect.DeepEqual(p.params, o.params) {
		return false
	}
	if len(p.config) > 0 && !reflect.DeepEqual(p.config, o.config) {
		return false
	}
	return true
}

// String renders the point in declaration form, for logs and errors.
func (p Point) String() string {
	var b strings.Builder
	b.WriteString("inject(")
	b.WriteString(strconv.Quote(p.name))
	for _, param := range p.params {
		b.WriteString(", ")
		fmt.Fprintf(&b, "%v", param)
	}
	keys := make([]string, 0, len(p.config))
	for k := range p.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(", ")
		fmt.Fprintf(&b, "%s=%v", k, p.config[k])
	}
	b.WriteString(")")
	return b.String()
}

// parsePointTag turns an `inject:"..."` tag into an explicit Point.
//
// Grammar: the first comma-separated item is the dependency name, every
// following bare item is a positional parameter, and every key=value item is
// a config entry. All tag-sourced arguments are strings.
func parsePointTag(owner reflect.Type, field, tag string) Point {
	items := strings.Split(tag, ",")
	if items[0] == "" {
		panic("inject: empty injection point name in tag on " + owner.String() + "." + field)
	}
	p := Point{name: items[0]}
	for _, item := range items[1:] {
		if key, value, found := strings.Cut(item, "="); found {
			if p.config == nil {
				p.config = Config{}
			}
			p.config[key] = value
			continue
		}
		p.params = append(p.params, item)
	}
	return p
}
