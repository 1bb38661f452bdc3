// Package apperr implements the error-kind taxonomy of spec.md §7 as
// sentinel errors checked with errors.Is, in the style of the {code,
// message, data} envelope used by orion-prototipe's control handler.
package apperr

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", ErrX) at the point of
// detection; callers discriminate with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("resource not found")
	ErrConflict      = errors.New("conflict")
	ErrCapacity      = errors.New("capacity exceeded")
)

// HTTPStatus maps a wrapped error to the status code §6 specifies for
// each route. Falls back to 500 for unrecognized errors (driver /
// malformed-output / internal-state kinds are never surfaced to HTTP
// callers per §7's propagation policy).
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, ErrConfiguration):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	default:
		return 500
	}
}
