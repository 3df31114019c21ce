package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/monitoring"
)

// ErrVetoed is returned by Apply when a voter rejected the proposal.
var ErrVetoed = errors.New("vetoed")

// Vote is a single voter's answer to a proposal.
type Vote uint8

const (
	Accept Vote = iota
	Veto
)

// Decision is the combined verdict over all votes.
type Decision uint8

const (
	Accepted Decision = iota
	Vetoed
)

func (d Decision) String() string {
	if d == Vetoed {
		return "vetoed"
	}
	return "accepted"
}

// Voter is asked before a subject is added to or removed from parent.
type Voter[P, S any] func(ts time.Time, parent P, subject S) Vote

// Combinator folds the votes of all voters into a decision.
type Combinator func(votes []Vote) Decision

// VetoCombinator accepts only when no voter vetoed. It is the default.
func VetoCombinator(votes []Vote) Decision {
	for _, v := range votes {
		if v == Veto {
			return Vetoed
		}
	}
	return Accepted
}

// MajorityCombinator accepts when strictly more voters accepted than vetoed.
// Without voters the proposal is accepted.
func MajorityCombinator(votes []Vote) Decision {
	var vetoes int
	for _, v := range votes {
		if v == Veto {
			vetoes++
		}
	}
	if vetoes*2 >= len(votes) && vetoes > 0 {
		return Vetoed
	}
	return Accepted
}

// Event is delivered to observers once a change has been committed.
type Event[P, S any] struct {
	Time    time.Time
	Parent  P
	Subject S
}

type voter[P, S any] struct {
	name string
	fn   Voter[P, S]
}

// Bus coordinates a single kind of membership change (for example "EVSE
// added to station"): Propose asks every voter, the caller commits, Notify
// multicasts to observers.
type Bus[P, S any] struct {
	name string
	log  logger.Logger

	mu         sync.RWMutex
	voters     []voter[P, S]
	combinator Combinator

	observers *Observers[Event[P, S]]
}

// NewBus returns a bus using VetoCombinator.
func NewBus[P, S any](name string, log logger.Logger) *Bus[P, S] {
	log = logger.OrNop(log)
	return &Bus[P, S]{
		name:       name,
		log:        log,
		combinator: VetoCombinator,
		observers:  NewObservers[Event[P, S]](name, log),
	}
}

// Name returns the bus name.
func (b *Bus[P, S]) Name() string { return b.name }

// SetCombinator replaces the vote combinator. nil restores VetoCombinator.
func (b *Bus[P, S]) SetCombinator(c Combinator) {
	if c == nil {
		c = VetoCombinator
	}
	b.mu.Lock()
	b.combinator = c
	b.mu.Unlock()
}

// AddVoter registers a voter.
func (b *Bus[P, S]) AddVoter(name string, v Voter[P, S]) {
	if v == nil {
		return
	}
	b.mu.Lock()
	b.voters = append(b.voters, voter[P, S]{name: name, fn: v})
	b.mu.Unlock()
}

// AddObserver registers an observer and returns a function removing it.
func (b *Bus[P, S]) AddObserver(name string, fn func(Event[P, S])) (remove func()) {
	return b.observers.Add(name, fn)
}

// Propose asks every voter. A panicking voter counts as a veto.
func (b *Bus[P, S]) Propose(ts time.Time, parent P, subject S) Decision {
	b.mu.RLock()
	voters := append([]voter[P, S](nil), b.voters...)
	combine := b.combinator
	b.mu.RUnlock()

	votes := make([]Vote, 0, len(voters))
	for _, v := range voters {
		votes = append(votes, b.ask(v, ts, parent, subject))
	}
	return combine(votes)
}

func (b *Bus[P, S]) ask(v voter[P, S], ts time.Time, parent P, subject S) (vote Vote) {
	defer func() {
		if r := recover(); r != nil {
			err := monitoring.CapturePanic(r, map[string]string{"scope": b.name, "voter": v.name})
			b.log.Errorf("%s voter %q failed, counting as veto: %v", b.name, v.name, err)
			vote = Veto
		}
	}()
	return v.fn(ts, parent, subject)
}

// Notify multicasts a committed change to all observers.
func (b *Bus[P, S]) Notify(ts time.Time, parent P, subject S) {
	b.observers.Emit(Event[P, S]{Time: ts, Parent: parent, Subject: subject})
}

// Apply runs the whole protocol: Propose, commit, Notify. commit runs only
// when the proposal was accepted; Notify runs only when commit succeeded.
func (b *Bus[P, S]) Apply(ts time.Time, parent P, subject S, commit func() error) error {
	if b.Propose(ts, parent, subject) == Vetoed {
		return fmt.Errorf("%s: %w", b.name, ErrVetoed)
	}
	if err := commit(); err != nil {
		return err
	}
	b.Notify(ts, parent, subject)
	return nil
}
