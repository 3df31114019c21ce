// Package topology models the charging hierarchy Network -> Operator ->
// Pool -> Station -> EVSE as an arena: every tier lives in one index keyed
// by model.EntityRef and nodes only remember their parent's reference.
// Additions and removals run through a notify.Bus so that voters can veto
// them and observers learn about them after the fact.
package topology

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/notify"
	"github.com/kilianp07/roamnet/core/status"
)

var (
	ErrAlreadyExists = errors.New("topology: entity already exists")
	ErrNotFound      = errors.New("topology: entity not found")
	ErrHasChildren   = errors.New("topology: entity still has children")
	ErrInvalidParent = errors.New("topology: invalid parent")
)

// Node is the public view of an arena entry.
type Node struct {
	Ref    model.EntityRef `json:"ref"`
	Parent model.EntityRef `json:"parent"`
	Name   string          `json:"name,omitempty"`
}

type node struct {
	Node
	children    map[model.EntityRef]struct{}
	reservation model.ReservationID
	session     model.SessionID
}

// Options tune a Network.
type Options struct {
	// HistorySize bounds status histories; zero selects status.DefaultHistorySize.
	HistorySize int
	Logger      logger.Logger
	Clock       func() time.Time
}

// Network is the root of one roaming network's hierarchy.
type Network struct {
	id    model.NetworkID
	root  model.EntityRef
	log   logger.Logger
	clock func() time.Time

	mu    sync.RWMutex
	nodes map[model.EntityRef]*node

	// Adds and Removes carry every membership change as (parent, child).
	Adds    *notify.Bus[model.EntityRef, Node]
	Removes *notify.Bus[model.EntityRef, Node]

	status *status.Tracker[model.Status]
	admin  *status.Tracker[model.AdminStatus]
}

// New returns a network containing only its root node. Status and admin
// status aggregate with status.MostAvailable and status.AnyOperational on
// every tier above EVSE.
func New(id model.NetworkID, opts Options) *Network {
	log := logger.OrNop(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	root := model.NetworkRef(id)
	n := &Network{
		id:      id,
		root:    root,
		log:     log,
		clock:   clock,
		nodes:   map[model.EntityRef]*node{root: {Node: Node{Ref: root}, children: map[model.EntityRef]struct{}{}}},
		Adds:    notify.NewBus[model.EntityRef, Node]("topology.add", log),
		Removes: notify.NewBus[model.EntityRef, Node]("topology.remove", log),
	}
	n.status = status.NewTracker[model.Status]("status", n, opts.HistorySize, log)
	n.admin = status.NewTracker[model.AdminStatus]("admin_status", n, opts.HistorySize, log)
	for _, tier := range []model.Tier{model.TierStation, model.TierPool, model.TierOperator, model.TierNetwork} {
		n.status.SetAggregator(tier, status.MostAvailable)
		n.admin.SetAggregator(tier, status.AnyOperational)
	}
	return n
}

// ID returns the network id.
func (n *Network) ID() model.NetworkID { return n.id }

// Root returns the hierarchy key of the network itself.
func (n *Network) Root() model.EntityRef { return n.root }

// AddOperator adds an operator directly below the network.
func (n *Network) AddOperator(op model.OperatorID, name string) error {
	return n.add(n.root, model.OperatorRef(op), name)
}

// AddPool adds a pool below its operator.
func (n *Network) AddPool(pool model.EntityRef, name string) error {
	if pool.Tier != model.TierPool {
		return fmt.Errorf("%w: %s is not a pool", model.ErrInvalidEntityRef, pool)
	}
	return n.add(model.OperatorRef(pool.Operator), pool, name)
}

// AddStation adds a station below pool.
func (n *Network) AddStation(pool, station model.EntityRef, name string) error {
	if pool.Tier != model.TierPool || station.Tier != model.TierStation {
		return fmt.Errorf("%w: station %s below %s", ErrInvalidParent, station, pool)
	}
	return n.add(pool, station, name)
}

// AddEVSE adds an EVSE below station.
func (n *Network) AddEVSE(station, evse model.EntityRef, name string) error {
	if station.Tier != model.TierStation || evse.Tier != model.TierEVSE {
		return fmt.Errorf("%w: evse %s below %s", ErrInvalidParent, evse, station)
	}
	return n.add(station, evse, name)
}

func (n *Network) add(parent, ref model.EntityRef, name string) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.Tier != model.TierOperator && ref.Operator != parent.Operator {
		return fmt.Errorf("%w: %s does not belong to operator %s", ErrInvalidParent, ref, parent.Operator)
	}
	nd := Node{Ref: ref, Parent: parent, Name: name}
	err := n.Adds.Apply(n.clock(), parent, nd, func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.nodes[ref]; ok {
			return fmt.Errorf("%s: %w", ref, ErrAlreadyExists)
		}
		p, ok := n.nodes[parent]
		if !ok {
			return fmt.Errorf("parent %s: %w", parent, ErrNotFound)
		}
		n.nodes[ref] = &node{Node: nd, children: map[model.EntityRef]struct{}{}}
		p.children[ref] = struct{}{}
		return nil
	})
	if err != nil {
		return err
	}
	n.log.Debugf("topology: added %s %s below %s", ref.Tier, ref, parent)
	return nil
}

// Remove detaches a leaf entity. Entities with children must be emptied
// first. The parent's status is re-derived from the remaining children.
func (n *Network) Remove(ref model.EntityRef) error {
	if ref == n.root {
		return fmt.Errorf("%w: the network root cannot be removed", ErrInvalidParent)
	}
	nd, ok := n.Get(ref)
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	ts := n.clock()
	err := n.Removes.Apply(ts, nd.Parent, nd, func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		cur, ok := n.nodes[ref]
		if !ok {
			return fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		if len(cur.children) > 0 {
			return fmt.Errorf("%s: %w", ref, ErrHasChildren)
		}
		delete(n.nodes, ref)
		if p, ok := n.nodes[cur.Parent]; ok {
			delete(p.children, ref)
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.status.Forget(ref)
	n.admin.Forget(ref)
	n.status.Recompute(nd.Parent, ts)
	n.admin.Recompute(nd.Parent, ts)
	return nil
}

// Get returns the node stored for ref.
func (n *Network) Get(ref model.EntityRef) (Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nd, ok := n.nodes[ref]
	if !ok {
		return Node{}, false
	}
	return nd.Node, true
}

// Contains reports whether ref is part of the hierarchy.
func (n *Network) Contains(ref model.EntityRef) bool {
	_, ok := n.Get(ref)
	return ok
}

// Parent implements status.Hierarchy.
func (n *Network) Parent(ref model.EntityRef) (model.EntityRef, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nd, ok := n.nodes[ref]
	if !ok || ref == n.root {
		return model.EntityRef{}, false
	}
	return nd.Parent, true
}

// Children implements status.Hierarchy. The result is sorted by eMI3 id.
func (n *Network) Children(ref model.EntityRef) []model.EntityRef {
	n.mu.RLock()
	nd, ok := n.nodes[ref]
	if !ok {
		n.mu.RUnlock()
		return nil
	}
	out := make([]model.EntityRef, 0, len(nd.children))
	for c := range nd.children {
		out = append(out, c)
	}
	n.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of entities including the root.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}
