package cgr

// file eto.go holds the earliest-transmission-opportunity manager.  Each
// contact carries an ETO record: the earliest moment newly queued data can
// begin transmitting, given the backlog already committed to that contact.
// The record tracks *when* capacity is reachable; residual volume in the
// plan tracks *how much* remains.  The two are independent.

import (
	"fmt"
)

// An ETOManager holds the per-contact earliest-transmission-opportunity
// records of one simulator instance.  Under automatic management every
// commitment advances the record; under manual management the caller
// supplies start times and the manager only stores them.
type ETOManager struct {
	manual bool

	// earliest transmission opportunity by contact number.  A contact with
	// no entry has no backlog: its opportunity is its window start.
	eto map[int]float64

	// per-contact queue depths, bookkept only under manual management
	queued map[int][]float64
}

// CreateETOManager is an initialization constructor.
func CreateETOManager(manual bool) *ETOManager {
	em := new(ETOManager)
	em.manual = manual
	em.eto = make(map[int]float64)
	em.queued = make(map[int][]float64)

	return em
}

// ETO reports the earliest time new data can begin transmission on the
// contact.  A contact with no committed backlog answers its window start.
func (em *ETOManager) ETO(cnt *Contact) float64 {
	opp, present := em.eto[cnt.Number]
	if !present || opp < cnt.Start {
		return cnt.Start
	}
	return opp
}

// Commit records that a transmission of the given duration begins on the
// contact at txStart.  Under automatic management the record advances to
// max(current opportunity, txStart) + duration, modeling a FIFO queue:
// data committed later waits behind this transmission even if the window
// would otherwise allow an earlier start.  Under manual management only
// the supplied start time is stored, and the caller assumes responsibility
// for ordering.
func (em *ETOManager) Commit(cnt *Contact, txStart, duration float64) {
	if em.manual {
		em.eto[cnt.Number] = txStart
		return
	}

	opp := em.ETO(cnt)
	if txStart > opp {
		opp = txStart
	}
	em.eto[cnt.Number] = opp + duration
}

// Enqueue registers a pending transmission of the given size on the
// contact under manual queue management.  The aggregate of queued sizes
// may not exceed the contact's nominal volume.
func (em *ETOManager) Enqueue(cnt *Contact, size float64) error {
	if !em.manual {
		return fmt.Errorf("contact %d queue is automatically managed", cnt.Number)
	}

	total := size
	for _, qs := range em.queued[cnt.Number] {
		total += qs
	}
	if total > cnt.Volume {
		return fmt.Errorf("queue overflow on contact %d: %v queued against volume %v",
			cnt.Number, total, cnt.Volume)
	}

	em.queued[cnt.Number] = append(em.queued[cnt.Number], size)

	return nil
}

// Dequeue removes the oldest pending transmission from the contact's
// queue under manual queue management, returning its size
func (em *ETOManager) Dequeue(cnt *Contact) (float64, error) {
	if !em.manual {
		return 0.0, fmt.Errorf("contact %d queue is automatically managed", cnt.Number)
	}

	queue := em.queued[cnt.Number]
	if len(queue) == 0 {
		return 0.0, fmt.Errorf("queue underflow on contact %d", cnt.Number)
	}

	size := queue[0]
	em.queued[cnt.Number] = queue[1:]

	return size, nil
}

// QueueDepth reports the number of pending transmissions bookkept on the
// contact under manual queue management
func (em *ETOManager) QueueDepth(cnt *Contact) int {
	return len(em.queued[cnt.Number])
}

// Reset discards all opportunity records and queue bookkeeping, returning
// every contact to an empty-queue state
func (em *ETOManager) Reset() {
	em.eto = make(map[int]float64)
	em.queued = make(map[int][]float64)
}
