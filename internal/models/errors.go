package models

import "errors"

// Classified wake failures. Stages wrap these with %w; use errors.Is to match.
var (
	ErrInvalidAddressFormat      = errors.New("invalid address format")
	ErrAddressNotInNeighborTable = errors.New("address not in neighbor table")
	ErrMACAddressUnresolved      = errors.New("MAC address unresolved")
	ErrTransmit                  = errors.New("magic packet transmit failed")
	ErrResolutionTimeout         = errors.New("timed out waiting for address resolution")
	ErrReachabilityTimeout       = errors.New("timed out waiting for host to become reachable")
)
