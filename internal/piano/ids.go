package piano

// maxNoteIDs bounds the reusable note-ID pool. IDs correlate note-on
// and note-off messages on the engine side, so a released ID can be
// handed out again.
const maxNoteIDs = 1024

type idPool struct {
	free []int
}

func newIDPool() *idPool {
	p := &idPool{free: make([]int, maxNoteIDs)}
	for i := range p.free {
		p.free[i] = maxNoteIDs - 1 - i
	}
	return p
}

// acquire pops a free ID; ok is false when the pool is exhausted.
func (p *idPool) acquire() (id int, ok bool) {
	if len(p.free) == 0 {
		return 0, false
	}
	id = p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return id, true
}

func (p *idPool) release(id int) {
	p.free = append(p.free, id)
}
