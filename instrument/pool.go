package instrument

import (
	"sync"
	"sync/atomic"

	"github.com/vsariola/mixseq"
)

type (
	// Pool is the registry of the instruments of a session, keyed by id.
	// Get never blocks and never allocates: the player calls it from the
	// audio callback for every active step. Add, Remove and Dispose are
	// called from the control goroutine; they are serialized with a mutex
	// and publish their changes with atomic stores.
	//
	// The instruments live in a slot table indexed by id. Ids are never
	// reused, so a removed id keeps pointing to an empty slot. When the
	// table is full, Add publishes a table of twice the size, so Add is
	// amortized O(1).
	Pool struct {
		table  atomic.Pointer[[]*slot]
		mu     sync.Mutex
		nextID mixseq.InstrumentID
		count  atomic.Int64
	}

	slot struct {
		entry atomic.Pointer[entry]
	}

	entry struct {
		instrument mixseq.Instrument
	}
)

const initialPoolSize = 16

func NewPool() *Pool {
	p := &Pool{nextID: 1}
	table := newTable(initialPoolSize)
	p.table.Store(&table)
	return p
}

// Add registers an instrument and returns its id. Ids start from 1; 0 is
// never returned, as it means "no instrument" in the graph.
func (p *Pool) Add(inst mixseq.Instrument) mixseq.InstrumentID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	table := *p.table.Load()
	if int(id) >= len(table) {
		grown := newTable(2 * len(table))
		copy(grown, table)
		p.table.Store(&grown)
		table = grown
	}
	table[id].entry.Store(&entry{instrument: inst})
	p.count.Add(1)
	return id
}

// Get returns the instrument with the given id. A missing id is not an
// error: ok is false and the caller is expected to skip the instrument.
func (p *Pool) Get(id mixseq.InstrumentID) (inst mixseq.Instrument, ok bool) {
	table := *p.table.Load()
	if id <= 0 || int(id) >= len(table) {
		return nil, false
	}
	e := table[id].entry.Load()
	if e == nil {
		return nil, false
	}
	return e.instrument, true
}

// Remove unregisters an instrument and returns it. The instrument is not
// disposed: the caller owns it again.
func (p *Pool) Remove(id mixseq.InstrumentID) (mixseq.Instrument, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	table := *p.table.Load()
	if id <= 0 || int(id) >= len(table) {
		return nil, false
	}
	e := table[id].entry.Swap(nil)
	if e == nil {
		return nil, false
	}
	p.count.Add(-1)
	return e.instrument, true
}

// Len returns the number of registered instruments.
func (p *Pool) Len() int { return int(p.count.Load()) }

// All iterates over the registered instruments in id order.
func (p *Pool) All(yield func(mixseq.InstrumentID, mixseq.Instrument) bool) {
	table := *p.table.Load()
	for i, s := range table {
		if e := s.entry.Load(); e != nil {
			if !yield(mixseq.InstrumentID(i), e.instrument) {
				return
			}
		}
	}
}

// Dispose removes every instrument from the pool and disposes them. The
// errors of the instruments that failed are returned as a
// mixseq.DisposalError.
func (p *Pool) Dispose() error {
	p.mu.Lock()
	table := *p.table.Load()
	var removed []mixseq.Instrument
	for _, s := range table {
		if e := s.entry.Swap(nil); e != nil {
			removed = append(removed, e.instrument)
		}
	}
	p.count.Store(0)
	p.mu.Unlock()
	var errs []error
	for _, inst := range removed {
		if err := inst.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &mixseq.DisposalError{Errs: errs}
	}
	return nil
}

func newTable(size int) []*slot {
	ret := make([]*slot, size)
	for i := range ret {
		ret[i] = &slot{}
	}
	return ret
}
