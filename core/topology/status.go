package topology

import (
	"fmt"
	"time"

	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/status"
)

// SetStatus records the operational status of ref and bubbles it upward.
// The recorded transitions are returned bottom-up; an unchanged value
// yields none.
func (n *Network) SetStatus(ref model.EntityRef, v model.Status, ts time.Time) ([]status.Change[model.Status], error) {
	if !n.Contains(ref) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if ts.IsZero() {
		ts = n.clock()
	}
	return n.status.Insert(ref, v, ts), nil
}

// SetAdminStatus records the administrative status of ref.
func (n *Network) SetAdminStatus(ref model.EntityRef, v model.AdminStatus, ts time.Time) ([]status.Change[model.AdminStatus], error) {
	if !n.Contains(ref) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if ts.IsZero() {
		ts = n.clock()
	}
	return n.admin.Insert(ref, v, ts), nil
}

// Status returns the current status of ref.
func (n *Network) Status(ref model.EntityRef) (model.Status, bool) {
	e, ok := n.status.Current(ref)
	return e.Value, ok
}

// AdminStatus returns the current admin status of ref.
func (n *Network) AdminStatus(ref model.EntityRef) (model.AdminStatus, bool) {
	e, ok := n.admin.Current(ref)
	return e.Value, ok
}

// StatusHistory returns the status history of ref, most recent first.
func (n *Network) StatusHistory(ref model.EntityRef) []status.Entry[model.Status] {
	return n.status.History(ref)
}

// AdminStatusHistory returns the admin status history of ref.
func (n *Network) AdminStatusHistory(ref model.EntityRef) []status.Entry[model.AdminStatus] {
	return n.admin.History(ref)
}

// OnStatusChange registers an observer for status transitions on any tier.
func (n *Network) OnStatusChange(name string, fn func(status.Change[model.Status])) func() {
	return n.status.OnChange(name, fn)
}

// OnAdminStatusChange registers an observer for admin status transitions.
func (n *Network) OnAdminStatusChange(name string, fn func(status.Change[model.AdminStatus])) func() {
	return n.admin.OnChange(name, fn)
}

// SetStatusAggregator overrides how a tier derives its status from its
// children. nil disables aggregation for the tier.
func (n *Network) SetStatusAggregator(tier model.Tier, fn status.AggregateFunc[model.Status]) {
	n.status.SetAggregator(tier, fn)
}

// SetAdminStatusAggregator overrides the admin status aggregation of a tier.
func (n *Network) SetAdminStatusAggregator(tier model.Tier, fn status.AggregateFunc[model.AdminStatus]) {
	n.admin.SetAggregator(tier, fn)
}
