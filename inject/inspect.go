package inject

import (
	"reflect"
	"sync"
	"unicode"
)

var (
	inType       = reflect.TypeOf(In{})
	argsType     = reflect.TypeOf(ResolverArgs{})
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	declarerType = reflect.TypeOf((*Declarer)(nil)).Elem()
)

// funcSpecs memoizes the structural scan per function type. The scan is a
// pure function of the type, so the cache is never invalidated; concurrent
// populators compute equal specs and LoadOrStore keeps the first.
var funcSpecs sync.Map // reflect.Type -> *funcSpec

// fieldSpec is one injectable field inside a parameter block.
type fieldSpec struct {
	index []int
	name  string
	point Point
}

// paramBlock is one function parameter whose struct type embeds In.
type paramBlock struct {
	param  int
	typ    reflect.Type
	fields []fieldSpec
}

// funcSpec is the structural shape of one function type: which parameters
// are injectable blocks and which fields they expose.
type funcSpec struct {
	fnType reflect.Type
	blocks []paramBlock
}

// points reports whether the function declares any injection point at all.
func (s *funcSpec) points() bool {
	for _, b := range s.blocks {
		if len(b.fields) > 0 {
			return true
		}
	}
	return false
}

// ── Inspection ────────────────────────────────────────────────────────────────

// Inspect derives the injection points of a callable: a mapping of field name
// to Point, one entry per injectable field across the callable's parameter
// blocks, nothing for anything else. Decoration layers are unwrapped first,
// so inspecting a bound or wrapped callable reports the underlying one.
//
// Inspect panics when fn is not a function; malformed inject tags panic too.
func (inj *Injector) Inspect(fn any) map[string]Point {
	spec := specOf(fn)
	points := make(map[string]Point)
	for _, block := range spec.blocks {
		for _, field := range block.fields {
			points[field.name] = field.point
		}
	}
	return points
}

// specOf unwraps fn and returns the memoized structural scan of its type.
func specOf(fn any) *funcSpec {
	fn = unwrap(fn)
	if fn == nil {
		panic("inject: cannot inspect nil")
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		panic("inject: cannot inspect " + t.String() + ", it is not a function")
	}
	if cached, ok := funcSpecs.Load(t); ok {
		return cached.(*funcSpec)
	}
	spec := scanFunc(t)
	actual, _ := funcSpecs.LoadOrStore(t, spec)
	return actual.(*funcSpec)
}

// unwrap follows original-callable references to a fixed point.
func unwrap(fn any) any {
	for {
		w, ok := fn.(Unwrapper)
		if !ok {
			return fn
		}
		inner := w.Unwrap()
		if inner == nil {
			return fn
		}
		fn = inner
	}
}

func scanFunc(t reflect.Type) *funcSpec {
	spec := &funcSpec{fnType: t}
	for i := 0; i < t.NumIn(); i++ {
		if t.IsVariadic() && i == t.NumIn()-1 {
			continue
		}
		pt := t.In(i)
		if !embedsIn(pt) {
			continue
		}
		spec.blocks = append(spec.blocks, paramBlock{
			param:  i,
			typ:    pt,
			fields: scanBlock(pt),
		})
	}
	return spec
}

// embedsIn reports whether t is a struct type carrying the In marker as an
// embedded field. Blocks are used by value; a pointer to a block is not a
// block.
func embedsIn(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == inType {
			return true
		}
	}
	return false
}

// scanBlock derives the injectable fields of a block type. Tag-declared
// points are computed first, then a Declarer implementation overrides them
// per field.
func scanBlock(t reflect.Type) []fieldSpec {
	var fields []fieldSpec
	excluded := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && (f.Type == inType || f.Type == reflect.PointerTo(inType)) {
			continue
		}
		if !f.IsExported() {
			continue
		}
		tag, tagged := f.Tag.Lookup("inject")
		if tag == "-" {
			excluded[f.Name] = true
			continue
		}
		var point Point
		if tagged {
			point = parsePointTag(t, f.Name, tag)
		} else {
			point = Point{name: implicitName(f.Name), implicit: true}
		}
		if f.Tag.Get("optional") == "true" {
			point.optional = true
		}
		fields = append(fields, fieldSpec{index: f.Index, name: f.Name, point: point})
	}
	var declared map[string]Point
	switch {
	case t.Implements(declarerType):
		declared = reflect.New(t).Elem().Interface().(Declarer).InjectionPoints()
	case reflect.PointerTo(t).Implements(declarerType):
		declared = reflect.New(t).Interface().(Declarer).InjectionPoints()
	default:
		return fields
	}
	for name, point := range declared {
		if excluded[name] {
			panic("inject: InjectionPoints on " + t.String() + " declares excluded field " + name)
		}
		found := false
		for i := range fields {
			if fields[i].name == name {
				optional := fields[i].point.optional
				fields[i].point = point
				if optional {
					fields[i].point.optional = true
				}
				found = true
				break
			}
		}
		if !found {
			panic("inject: InjectionPoints on " + t.String() + " declares unknown field " + name)
		}
	}
	return fields
}

// implicitName maps a field name to its dependency name: leading upper-case
// runes are lowered, keeping the last one as a word start when a lower-case
// rune follows ("Request" to "request", "UserDB" to "userDB", "DB" to "db",
// "HTTPClient" to "httpClient").
func implicitName(field string) string {
	runes := []rune(field)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return field
	case upper == len(runes):
		for i := range runes {
			runes[i] = unicode.ToLower(runes[i])
		}
	case upper == 1:
		runes[0] = unicode.ToLower(runes[0])
	default:
		for i := 0; i < upper-1; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return string(runes)
}
