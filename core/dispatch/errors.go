package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/roamnet/core/model"
)

var (
	// ErrInvalidArgument is returned when a request fails validation. No
	// backend is contacted in that case.
	ErrInvalidArgument = errors.New("dispatch: invalid argument")
	// ErrQueueFull is returned by EnqueueChargeDetailRecord when the CDR
	// queue has no free slot.
	ErrQueueFull = errors.New("dispatch: cdr queue full")
)

// noPositiveAuth is the message of the Error synthesized when every
// authorization candidate was exhausted.
const noPositiveAuth = "no authorization service returned a positive result"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func validateTarget(ref model.EntityRef) error {
	if !ref.Tier.Dispatchable() {
		return invalid("target %q must address an evse, station or pool", ref.String())
	}
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}
