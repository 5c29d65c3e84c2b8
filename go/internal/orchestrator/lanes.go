package orchestrator

import "sync"

// lanes hands out one mutex per room id. Entries are reference counted and
// dropped once nobody holds or waits on them.
type lanes struct {
	mu sync.Mutex
	m  map[string]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func newLanes() *lanes {
	return &lanes{m: make(map[string]*lane)}
}

// acquire blocks until the caller owns roomID's lane and returns its release func.
func (l *lanes) acquire(roomID string) func() {
	l.mu.Lock()
	ln, ok := l.m[roomID]
	if !ok {
		ln = &lane{}
		l.m[roomID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	ln.mu.Lock()
	return func() {
		ln.mu.Unlock()
		l.mu.Lock()
		ln.refs--
		if ln.refs == 0 {
			delete(l.m, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *lanes) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
