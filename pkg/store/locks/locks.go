package locks

import (
	"sync"

	"alumnichat/pkg/store/keys"
)

// PairLocks hands out one mutex per conversation pair.
type PairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *PairLocks {
	return &PairLocks{locks: make(map[string]*sync.Mutex)}
}

// returns mutex for given pair (creates if needed)
func (p *PairLocks) get(pair string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[pair]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.locks[pair] = l
	return l
}

// Lock serializes work on the conversation between a and b and returns the unlock func.
func (p *PairLocks) Lock(a, b string) func() {
	l := p.get(keys.Pair(a, b))
	l.Lock()
	return l.Unlock
}
