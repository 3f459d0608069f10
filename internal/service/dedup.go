package service

// deduplicator tracks identifiers already notified in prior runs plus
// identifiers collected during the current run, across keywords and
// search modes.
type deduplicator struct {
	sent map[string]struct{} // loaded from history at run start
	run  map[string]struct{} // collected during this run
}

func newDeduplicator(sent map[string]struct{}) *deduplicator {
	if sent == nil {
		sent = map[string]struct{}{}
	}
	return &deduplicator{sent: sent, run: make(map[string]struct{})}
}

// seen reports whether id was notified in a prior run or already
// collected in this one.
func (d *deduplicator) seen(id string) bool {
	if _, ok := d.sent[id]; ok {
		return true
	}
	_, ok := d.run[id]
	return ok
}

// mark records id as collected for this run. Marked ids are rejected by
// seen from then on and end up in admitted.
func (d *deduplicator) mark(id string) {
	d.run[id] = struct{}{}
}

// admitted returns the identifiers collected during this run.
func (d *deduplicator) admitted() []string {
	ids := make([]string, 0, len(d.run))
	for id := range d.run {
		ids = append(ids, id)
	}
	return ids
}
