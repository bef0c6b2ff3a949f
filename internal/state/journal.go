package state

// Journal collects undo closures for state mutations so that a failed
// top-level operation rolls every change back, leaving balances, reserves,
// nonces, and emitted records exactly as they were at entry.
//
// Operations nest: a router call wraps pool calls, which wrap ledger
// transfers. Run snapshots the undo stack on entry and reverts to that
// snapshot if the wrapped function returns an error. Undo closures of a
// successful inner frame stay on the stack so an outer failure still
// unwinds them; the stack is cleared only when the outermost frame commits.
//
// A Journal is not safe for concurrent use. Top-level operations are
// serialized per call, matching the execution model of the ledger.
type Journal struct {
	undos []func()
	depth int
}

func NewJournal() *Journal {
	return &Journal{}
}

// Append registers an undo closure for a single mutation.
func (j *Journal) Append(undo func()) {
	j.undos = append(j.undos, undo)
}

// Run executes fn inside a revertable frame.
func (j *Journal) Run(fn func() error) error {
	mark := len(j.undos)
	j.depth++
	err := fn()
	j.depth--

	if err != nil {
		j.revertTo(mark)
		return err
	}
	if j.depth == 0 {
		j.undos = j.undos[:0]
	}
	return nil
}

// Len reports the number of pending undo entries.
func (j *Journal) Len() int {
	return len(j.undos)
}

func (j *Journal) revertTo(mark int) {
	for i := len(j.undos) - 1; i >= mark; i-- {
		j.undos[i]()
	}
	j.undos = j.undos[:mark]
}
