package conversation

// Pending stages the turns of one in-flight round. Nothing reaches the
// History until Commit, so an abandoned round leaves it untouched.
type Pending struct {
	turns []Turn
}

// Stage adds a turn to the buffer.
func (p *Pending) Stage(t Turn) {
	p.turns = append(p.turns, t)
}

// Len returns the number of staged turns.
func (p *Pending) Len() int {
	return len(p.turns)
}

// View returns the committed turns of h followed by the staged ones.
func (p *Pending) View(h *History) []Turn {
	return append(h.Turns(), p.turns...)
}

// Commit appends every staged turn to h in one step and clears the buffer.
func (p *Pending) Commit(h *History) {
	h.Append(p.turns...)
	p.turns = nil
}

// Discard drops the staged turns.
func (p *Pending) Discard() {
	p.turns = nil
}
