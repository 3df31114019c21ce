package status

import "github.com/kilianp07/roamnet/core/model"

var availabilityRank = []model.Status{
	model.StatusAvailable,
	model.StatusCharging,
	model.StatusReserved,
	model.StatusOccupied,
	model.StatusFaulted,
	model.StatusOffline,
}

// MostAvailable reports the "best" child status: a station with one free
// EVSE is available even if its other EVSEs are charging.
func MostAvailable(_ model.EntityRef, children []model.Status) (model.Status, bool) {
	return firstPresent(availabilityRank, children, model.StatusUnknown)
}

var adminRank = []model.AdminStatus{
	model.AdminOperational,
	model.AdminInternalUse,
	model.AdminPlanned,
	model.AdminBlocked,
	model.AdminOutOfService,
}

// AnyOperational reports operational as soon as one child is operational.
func AnyOperational(_ model.EntityRef, children []model.AdminStatus) (model.AdminStatus, bool) {
	return firstPresent(adminRank, children, model.AdminUnknown)
}

func firstPresent[T comparable](rank []T, children []T, fallback T) (T, bool) {
	if len(children) == 0 {
		return fallback, false
	}
	seen := make(map[T]struct{}, len(children))
	for _, c := range children {
		seen[c] = struct{}{}
	}
	for _, r := range rank {
		if _, ok := seen[r]; ok {
			return r, true
		}
	}
	return fallback, true
}
