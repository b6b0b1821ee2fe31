package core

import "errors"

// Gateway-side failures. None of them is fatal: each is scoped to one
// join, one relay, or one endpoint and is reported back to the caller
// as an error event only.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidTarget  = errors.New("cannot send to self")
	ErrTargetNotFound = errors.New("target peer not found")
	ErrNotInSameRoom  = errors.New("peers are not in the same room")
)

// Client-side failures.
var (
	ErrPermissionDenied  = errors.New("media permission denied")
	ErrDeviceUnavailable = errors.New("media device unavailable")
	ErrNegotiationFailed = errors.New("peer negotiation failed")
)

// IsMediaAcquisition reports whether err is one of the acquisition
// failure classes. The call proceeds without the affected media kind.
func IsMediaAcquisition(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable)
}
