package dispatch

import (
	"context"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/notify"
	"github.com/kilianp07/roamnet/core/status"
	"github.com/kilianp07/roamnet/core/topology"
)

// AddDataSync registers an extra target for status and topology deltas,
// next to the roaming providers which always receive them.
func (n *RoamingNetwork) AddDataSync(name string, ds DataSync) error {
	if ds == nil || name == "" {
		return invalid("data sync needs a name")
	}
	return n.dataSyncs.Register(name, ds)
}

// RemoveDataSync unregisters a target added with AddDataSync.
func (n *RoamingNetwork) RemoveDataSync(name string) bool {
	return n.dataSyncs.Unregister(name)
}

func (n *RoamingNetwork) attachTopology(t *topology.Network) {
	t.OnStatusChange("dispatch.status", func(c status.Change[model.Status]) {
		ev := events.StatusChangeEvent{Network: n.id, Entity: c.Entity, Old: c.Old, HadOld: c.HadOld, New: c.New, Time: c.Time}
		n.publish(ev)
		n.push(func(ctx context.Context, ds DataSync) error { return ds.EnqueueStatusUpdate(ctx, ev) })
	})
	t.OnAdminStatusChange("dispatch.admin_status", func(c status.Change[model.AdminStatus]) {
		ev := events.AdminStatusChangeEvent{Network: n.id, Entity: c.Entity, Old: c.Old, HadOld: c.HadOld, New: c.New, Time: c.Time}
		n.publish(ev)
		n.push(func(ctx context.Context, ds DataSync) error { return ds.EnqueueAdminStatusUpdate(ctx, ev) })
	})
	membership := func(action events.MembershipAction) func(notify.Event[model.EntityRef, topology.Node]) {
		return func(e notify.Event[model.EntityRef, topology.Node]) {
			ev := events.MembershipEvent{
				Network: n.id,
				Action:  action,
				Parent:  e.Parent,
				Child:   e.Subject.Ref,
				Name:    e.Subject.Name,
				Time:    e.Time,
			}
			n.publish(ev)
			n.push(func(ctx context.Context, ds DataSync) error { return ds.EnqueueMembershipUpdate(ctx, ev) })
		}
	}
	t.Adds.AddObserver("dispatch.membership", membership(events.MemberAdded))
	t.Removes.AddObserver("dispatch.membership", membership(events.MemberRemoved))
}

// push hands a delta to every roaming provider and extra data sync. A
// failing target is logged and counted; the others still receive it.
func (n *RoamingNetwork) push(fn func(context.Context, DataSync) error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	for _, e := range n.registry.RoamingProviders() {
		if err := fn(ctx, e.Value); err != nil {
			pushFailures.WithLabelValues(e.ID).Inc()
			n.log.Warnf("dispatch: push to roaming provider %s: %v", e.ID, err)
		}
	}
	n.dataSyncs.Range(func(name string, ds DataSync) bool {
		if err := fn(ctx, ds); err != nil {
			pushFailures.WithLabelValues(name).Inc()
			n.log.Warnf("dispatch: push to %s: %v", name, err)
		}
		return true
	})
}
