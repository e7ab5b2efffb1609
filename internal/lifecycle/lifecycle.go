// Package lifecycle implements the policies that drive a listing through its
// lifecycle: Repricer, ZombieKiller, Resurrector, AutoRelister, SmartQueue,
// PhotoShuffler, and StorePulse.
//
// Every policy reads and writes through a store.Session owned by the caller
// and issues marketplace calls through the gateway. Per-listing failures
// inside a scan are counted into the report and the scan continues; errors
// on the initial query or outside the loop abort the policy.
package lifecycle

import (
	"fmt"

	"flipflow/pkg/types"
)

// StateTransitionError reports a lifecycle transition outside the status DAG.
type StateTransitionError struct {
	ListingID int64
	From      types.ListingStatus
	To        types.ListingStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("listing %d: illegal transition %s -> %s", e.ListingID, e.From, e.To)
}

// ErrListingNotFound is wrapped into not-found failures from policies.
type ErrListingNotFound struct {
	ListingID int64
}

func (e *ErrListingNotFound) Error() string {
	return fmt.Sprintf("listing %d not found", e.ListingID)
}

// rotatePhotos swaps the first two photos so the listing leads with a fresh
// main image. Lists shorter than two entries are returned as-is.
func rotatePhotos(photos []string) []string {
	if len(photos) < 2 {
		return photos
	}
	rotated := append([]string(nil), photos...)
	rotated[0], rotated[1] = rotated[1], rotated[0]
	return rotated
}
