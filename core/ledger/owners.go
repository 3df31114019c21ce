package ledger

import "github.com/kilianp07/roamnet/core/model"

// Reservations maps reservation ids to the reservation and its owner.
type Reservations struct {
	*Ledger[model.ReservationID, model.Reservation]
}

// NewReservations returns an empty reservation ledger.
func NewReservations() *Reservations {
	return &Reservations{New[model.ReservationID, model.Reservation]("reservations")}
}

// Add registers r under its own id.
func (r *Reservations) Add(res model.Reservation) error { return r.Put(res.ID, res) }

// Owner returns the owner of id, if tracked.
func (r *Reservations) Owner(id model.ReservationID) (model.Owner, bool) {
	res, ok := r.Peek(id)
	return res.Owner, ok
}

// Sessions maps session ids to the session and its owner.
type Sessions struct {
	*Ledger[model.SessionID, model.Session]
}

// NewSessions returns an empty session ledger.
func NewSessions() *Sessions {
	return &Sessions{New[model.SessionID, model.Session]("sessions")}
}

// Add registers s under its own id.
func (s *Sessions) Add(sess model.Session) error { return s.Put(sess.ID, sess) }

// Owner returns the owner of id, if tracked.
func (s *Sessions) Owner(id model.SessionID) (model.Owner, bool) {
	sess, ok := s.Peek(id)
	return sess.Owner, ok
}
