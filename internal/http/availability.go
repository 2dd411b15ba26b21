package http

import (
	"fmt"

	"go.uber.org/atomic"
)

// Availability caches the outcome of a transport capability probe for the
// lifetime of the process. The zero value with a Probe set is ready to use.
type Availability struct {
	Name  string
	Probe func() error

	checked atomic.Bool
	err     atomic.Error
}

// Check runs the probe on first use and returns its cached outcome, wrapped in
// ErrProviderUnavailable on failure. Concurrent first calls may each run the probe.
func (a *Availability) Check() error {
	if !a.checked.Load() {
		var err error
		if a.Probe != nil {
			err = a.Probe()
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, a.Name, err)
		}
		a.err.Store(err)
		a.checked.Store(true)
	}
	return a.err.Load()
}

// Reset forgets the cached outcome so the next Check probes again. Tests only.
func (a *Availability) Reset() {
	a.checked.Store(false)
	a.err.Store(nil)
}
