package web

import "strconv"

// OutsideRequestError is returned when a request-scoped injection point
// ("request", "response", "params" or "requestID") is resolved while no
// request is being dispatched.
//
//	_, err := app.CallInject(func(d struct {
//	    inject.In
//	    Req *http.Request `inject:"request"`
//	}) {})
//	// web: "request" is only available while dispatching a request
type OutsideRequestError struct {
	// Name is the request-scoped point that was resolved.
	Name string
}

// Error implements the error interface.
func (e OutsideRequestError) Error() string {
	return "web: " + strconv.Quote(e.Name) + " is only available while dispatching a request"
}
