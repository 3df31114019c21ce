package topology

import (
	"fmt"

	"github.com/kilianp07/roamnet/core/model"
)

// SetReservation marks evse as held by id. An empty id clears the marker.
func (n *Network) SetReservation(evse model.EntityRef, id model.ReservationID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, err := n.evse(evse)
	if err != nil {
		return err
	}
	nd.reservation = id
	return nil
}

// SetSession marks evse as charging within session id.
func (n *Network) SetSession(evse model.EntityRef, id model.SessionID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, err := n.evse(evse)
	if err != nil {
		return err
	}
	nd.session = id
	return nil
}

// ClearReservation removes the reservation marker of evse if it still
// points at id. It reports whether a marker was cleared.
func (n *Network) ClearReservation(evse model.EntityRef, id model.ReservationID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, err := n.evse(evse)
	if err != nil || nd.reservation == "" || (id != "" && nd.reservation != id) {
		return false
	}
	nd.reservation = ""
	return true
}

// ClearSession removes the session marker of evse if it still points at
// id. Clearing twice reports false the second time.
func (n *Network) ClearSession(evse model.EntityRef, id model.SessionID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, err := n.evse(evse)
	if err != nil || nd.session == "" || (id != "" && nd.session != id) {
		return false
	}
	nd.session = ""
	return true
}

// Markers returns the active reservation and session of evse.
func (n *Network) Markers(evse model.EntityRef) (model.ReservationID, model.SessionID, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nd, err := n.evse(evse)
	if err != nil {
		return "", "", false
	}
	return nd.reservation, nd.session, true
}

// evse must be called with n.mu held.
func (n *Network) evse(ref model.EntityRef) (*node, error) {
	if ref.Tier != model.TierEVSE {
		return nil, fmt.Errorf("%w: %s is not an evse", model.ErrInvalidEntityRef, ref)
	}
	nd, ok := n.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nd, nil
}
