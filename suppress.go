package cgr

// file suppress.go holds the contact suppression state of a simulator
// instance.  Two independent mechanisms compose: a caller-supplied
// exclusion set, honored whenever contact suppression is configured, and
// depletion-triggered suppression, which the simulator's commit path
// feeds as residual volume runs out.  A search consults the combined
// answer through Excluded.

// A SuppressionSet holds the contacts currently ineligible for search
type SuppressionSet struct {
	cfg *SimCfg

	// contacts excluded by the caller, e.g. hops already used earlier in
	// a route under construction
	suppressed map[int]bool

	// contacts excluded because their residual volume ran out
	depleted map[int]bool

	// epoch counts state changes, letting dependents (the reuse guard)
	// notice that earlier unreachability conclusions may no longer hold
	epoch int
}

// CreateSuppressionSet is an initialization constructor.
func CreateSuppressionSet(cfg *SimCfg) *SuppressionSet {
	ss := new(SuppressionSet)
	ss.cfg = cfg
	ss.suppressed = make(map[int]bool)
	ss.depleted = make(map[int]bool)

	return ss
}

// Suppress adds the contact to the caller-directed exclusion set
func (ss *SuppressionSet) Suppress(cnt *Contact) {
	ss.suppressed[cnt.Number] = true
	ss.epoch += 1
}

// Release removes the contact from both the caller-directed and the
// depletion-triggered exclusion sets
func (ss *SuppressionSet) Release(cnt *Contact) {
	delete(ss.suppressed, cnt.Number)
	delete(ss.depleted, cnt.Number)
	ss.epoch += 1
}

// Clear empties both exclusion sets
func (ss *SuppressionSet) Clear() {
	ss.suppressed = make(map[int]bool)
	ss.depleted = make(map[int]bool)
	ss.epoch += 1
}

// Excluded reports whether the contact is ineligible for the next search.
// Caller-directed suppression applies when contact suppression is
// configured; depletion-triggered suppression additionally requires its
// own option.  With both options off every contact is eligible.
func (ss *SuppressionSet) Excluded(cnt *Contact) bool {
	if !ss.cfg.ContactSuppression {
		return false
	}
	if ss.suppressed[cnt.Number] {
		return true
	}
	if ss.cfg.DepletionSuppress && ss.depleted[cnt.Number] {
		return true
	}

	return false
}

// Depleted reports whether the contact has been marked depleted
func (ss *SuppressionSet) Depleted(cnt *Contact) bool {
	return ss.depleted[cnt.Number]
}

// NoteCommit observes a volume commitment against the contact and applies
// the depletion policy.  With depletion suppression configured a contact
// whose residual volume reached zero is marked depleted; the first-depleted
// variant marks it as soon as the residual drops below the size just
// committed, on the grounds that no equal-sized bundle can follow.  The
// return value reports whether this call caused the transition.
func (ss *SuppressionSet) NoteCommit(cnt *Contact, committed float64) bool {
	if !ss.cfg.DepletionSuppress || ss.depleted[cnt.Number] {
		return false
	}

	exhausted := cnt.Residual <= 0.0
	if ss.cfg.FirstDepleted && cnt.Residual < committed {
		exhausted = true
	}
	if !exhausted {
		return false
	}

	ss.depleted[cnt.Number] = true
	ss.epoch += 1

	return true
}

// Epoch reports the suppression state's change counter
func (ss *SuppressionSet) Epoch() int {
	return ss.epoch
}

// A reuseGuard remembers searches proven hopeless, so the simulator can
// skip repeating one for the same or a larger bundle.  Conclusions are
// keyed by the (source, destination) pair — the simulator forwards
// bundles from arbitrary sources, and a destination one node cannot reach
// may be perfectly reachable from another.  They are valid only while the
// suppression state that produced them stands; any change invalidates the
// whole record.  Later bundles start no earlier than the failed one, so a
// recorded conclusion cannot be rescued by the passage of time.
type reuseGuard struct {
	sup *SuppressionSet

	// smallest bundle size proven unroutable, by (source, destination)
	// node number pair
	limit map[[2]int]float64

	epoch int
}

func createReuseGuard(sup *SuppressionSet) *reuseGuard {
	rg := new(reuseGuard)
	rg.sup = sup
	rg.limit = make(map[[2]int]float64)
	rg.epoch = sup.Epoch()

	return rg
}

// refresh drops stale conclusions after a suppression state change
func (rg *reuseGuard) refresh() {
	if rg.epoch != rg.sup.Epoch() {
		rg.limit = make(map[[2]int]float64)
		rg.epoch = rg.sup.Epoch()
	}
}

// hopeless reports whether a search from the source to the destination
// with the given bundle size is already known to fail
func (rg *reuseGuard) hopeless(srcID, destID int, size float64) bool {
	rg.refresh()
	lim, present := rg.limit[[2]int{srcID, destID}]

	return present && size >= lim
}

// noteFailure records that a search from the source to the destination
// failed for the given bundle size
func (rg *reuseGuard) noteFailure(srcID, destID int, size float64) {
	rg.refresh()
	key := [2]int{srcID, destID}
	lim, present := rg.limit[key]
	if !present || size < lim {
		rg.limit[key] = size
	}
}
