package payment

import "sync"

// eventLog is a bounded set of processed webhook event IDs. The processor may
// redeliver events; remembering recent IDs keeps notification emails from
// going out twice. Oldest entries are evicted first once capacity is reached.
type eventLog struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

func newEventLog(capacity int) *eventLog {
	return &eventLog{
		seen:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// firstDelivery records the ID and reports whether it had not been seen
// before.
func (l *eventLog) firstDelivery(id string) bool {
	if id == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false
	}

	if len(l.order) >= l.capacity {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.seen, oldest)
	}

	l.seen[id] = struct{}{}
	l.order = append(l.order, id)
	return true
}
