package event

import "sync"

// Book updates arrive continuously while the process runs; pooling them
// keeps the stream path free of per-message allocation.
var bookUpdatePool = sync.Pool{
	New: func() any { return new(BookUpdateEvent) },
}

// AcquireBookUpdate takes a zeroed BookUpdateEvent from the pool.
func AcquireBookUpdate() *BookUpdateEvent {
	return bookUpdatePool.Get().(*BookUpdateEvent)
}

// ReleaseBookUpdate zeroes the event and returns it to the pool. Callers
// must not touch the event afterwards.
func ReleaseBookUpdate(ev *BookUpdateEvent) {
	*ev = BookUpdateEvent{}
	bookUpdatePool.Put(ev)
}

// Warmup pre-populates the pool so the first burst of market data does
// not pay allocation cost.
func Warmup() {
	const n = 256
	events := make([]*BookUpdateEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, AcquireBookUpdate())
	}
	for _, ev := range events {
		ReleaseBookUpdate(ev)
	}
}
