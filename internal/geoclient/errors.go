package geoclient

import "fmt"

// NetworkError covers transport failures and non-2xx responses from the geo
// services. Steady-state callers treat it as "not deviated" (fail-open).
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("geo %s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("geo %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means the decode endpoint answered but produced no usable
// coordinate list.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "decode polyline: " + e.Reason }

// RoutingError means the routing service answered without a route.
type RoutingError struct {
	Reason string
}

func (e *RoutingError) Error() string { return "request route: " + e.Reason }
