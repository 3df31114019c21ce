// Package events defines the events published on the internal event bus.
//
// Available event types:
//   - OperationEvent: before and after every dispatcher operation
//   - StatusChangeEvent / AdminStatusChangeEvent: recorded status transitions
//   - MembershipEvent: an entity joined or left the hierarchy
//   - CDREvent: a charge detail record was processed
package events
