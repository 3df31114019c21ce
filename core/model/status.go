package model

// Status is the operational status of a charging entity.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusAvailable
	StatusReserved
	StatusCharging
	StatusOccupied
	StatusFaulted
	StatusOffline
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusReserved:
		return "reserved"
	case StatusCharging:
		return "charging"
	case StatusOccupied:
		return "occupied"
	case StatusFaulted:
		return "faulted"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// AdminStatus is the administrative status of a charging entity.
type AdminStatus uint8

const (
	AdminUnknown AdminStatus = iota
	AdminOperational
	AdminInternalUse
	AdminPlanned
	AdminOutOfService
	AdminBlocked
)

// String returns a human-readable representation of the admin status.
func (s AdminStatus) String() string {
	switch s {
	case AdminOperational:
		return "operational"
	case AdminInternalUse:
		return "internal_use"
	case AdminPlanned:
		return "planned"
	case AdminOutOfService:
		return "out_of_service"
	case AdminBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	for st := StatusAvailable; st <= StatusOffline; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StatusUnknown, s == "unknown"
}

// ParseAdminStatus is the inverse of AdminStatus.String.
func ParseAdminStatus(s string) (AdminStatus, bool) {
	for st := AdminOperational; st <= AdminBlocked; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return AdminUnknown, s == "unknown"
}
