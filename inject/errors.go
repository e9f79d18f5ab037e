package inject

import (
	"reflect"
	"strconv"
)

// UnresolvedDependencyError is returned when an injection point names a
// binding that does not exist in the registry at resolution time.
type UnresolvedDependencyError struct{ Name string }

// Error implements the error interface.
func (e UnresolvedDependencyError) Error() string {
	// Example: inject: unresolved injection point "db"
	return "inject: unresolved injection point " + strconv.Quote(e.Name)
}

// InvalidConfigurationError is returned when parameters or config are supplied
// to an injection point whose binding is a constant value or provider, which
// accepts none.
type InvalidConfigurationError struct{ Name string }

// Error implements the error interface.
func (e InvalidConfigurationError) Error() string {
	// Example: inject: the provider for "db" does not accept configuration (it is not a resolver)
	return "inject: the provider for " + strconv.Quote(e.Name) +
		" does not accept configuration (it is not a resolver)"
}

// UnknownRemovalError is returned by Remove when the name has no binding.
type UnknownRemovalError struct{ Name string }

// Error implements the error interface.
func (e UnknownRemovalError) Error() string {
	// Example: inject: cannot remove unknown injection point "db"
	return "inject: cannot remove unknown injection point " + strconv.Quote(e.Name)
}

// NotAProviderError is returned when a resolver's result is not a callable
// provider.
type NotAProviderError struct {
	// Name is the injection point whose resolver misbehaved.
	Name string

	// Got is the type the resolver actually returned.
	Got reflect.Type
}

// Error implements the error interface.
func (e NotAProviderError) Error() string {
	// Example: inject: the resolver for "db" returned int, not a callable provider
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	return "inject: the resolver for " + strconv.Quote(e.Name) +
		" returned " + got + ", not a callable provider"
}

// ValueTypeError is returned when an injected value is not assignable to the
// field declared for it.
type ValueTypeError struct {
	// Name is the injection point that produced the value.
	Name string

	// Field is the declared parameter name.
	Field string

	// Got is the type of the produced value.
	Got reflect.Type

	// Want is the declared field type.
	Want reflect.Type
}

// Error implements the error interface.
func (e ValueTypeError) Error() string {
	// Example: inject: value for "db" is *sql.DB, not *pgx.Conn (field Conn)
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	msg := "inject: value for " + strconv.Quote(e.Name) + " is " + got +
		", not " + e.Want.String()
	if e.Field != "" {
		msg += " (field " + e.Field + ")"
	}
	return msg
}

// MissingArgumentError is returned when a parameter that is not a parameter
// block had no argument supplied for it.
type MissingArgumentError struct {
	// Index is the zero-based position of the parameter.
	Index int

	// Type is the parameter's declared type.
	Type reflect.Type
}

// Error implements the error interface.
func (e MissingArgumentError) Error() string {
	// Example: inject: no argument supplied for parameter 1 (string)
	return "inject: no argument supplied for parameter " + strconv.Itoa(e.Index) +
		" (" + e.Type.String() + ")"
}

// UnmatchedArgumentError is returned when a supplied argument is assignable to
// no remaining parameter of the callable.
type UnmatchedArgumentError struct {
	// Index is the zero-based position of the argument in the supplied list.
	Index int

	// Got is the argument's type.
	Got reflect.Type
}

// Error implements the error interface.
func (e UnmatchedArgumentError) Error() string {
	// Example: inject: argument 0 (string) matches no parameter
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	return "inject: argument " + strconv.Itoa(e.Index) + " (" + got + ") matches no parameter"
}
