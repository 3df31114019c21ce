package events

import (
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// StatusChangeEvent is published for every recorded status transition.
type StatusChangeEvent struct {
	Network model.NetworkID
	Entity  model.EntityRef
	Old     model.Status
	HadOld  bool
	New     model.Status
	Time    time.Time
}

// AdminStatusChangeEvent is published for every admin status transition.
type AdminStatusChangeEvent struct {
	Network model.NetworkID
	Entity  model.EntityRef
	Old     model.AdminStatus
	HadOld  bool
	New     model.AdminStatus
	Time    time.Time
}

// MembershipAction is "added" or "removed".
type MembershipAction string

const (
	MemberAdded   MembershipAction = "added"
	MemberRemoved MembershipAction = "removed"
)

// MembershipEvent is published once an entity was added to or removed from
// its parent.
type MembershipEvent struct {
	Network model.NetworkID
	Action  MembershipAction
	Parent  model.EntityRef
	Child   model.EntityRef
	Name    string
	Time    time.Time
}

// CDREvent is published after a charge detail record was stored and
// distributed. Err is set when a queued record could not be processed.
type CDREvent struct {
	Network model.NetworkID
	CDR     model.ChargeDetailRecord
	Result  model.SendCDRResult
	Queued  bool
	Err     error
}
