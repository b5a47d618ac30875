package main

import (
	"errors"

	"github.com/fgeck/gowol-homelab/internal/models"
)

// Process exit codes.
const (
	exitOK                  = 0
	exitGeneric             = 1
	exitInvalidAddress      = 2
	exitNotInNeighborTable  = 3
	exitMACUnresolved       = 4
	exitTransmit            = 5
	exitResolutionTimeout   = 6
	exitReachabilityTimeout = 7
)

var exitCodes = []struct {
	err  error
	code int
}{
	{models.ErrInvalidAddressFormat, exitInvalidAddress},
	{models.ErrAddressNotInNeighborTable, exitNotInNeighborTable},
	{models.ErrMACAddressUnresolved, exitMACUnresolved},
	{models.ErrTransmit, exitTransmit},
	{models.ErrResolutionTimeout, exitResolutionTimeout},
	{models.ErrReachabilityTimeout, exitReachabilityTimeout},
}

// exitCode maps err to the process exit code of its failure kind.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	for _, c := range exitCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return exitGeneric
}
