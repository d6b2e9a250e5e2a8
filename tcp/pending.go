package tcp

import "github.com/eapache/queue"

// pendingItem is one deferred active-message send, queued while the
// endpoint's TX buffer was occupied.
type pendingItem struct {
	amID    uint8
	payload []byte
}

// pendingQueue is a thin FIFO wrapper so Endpoint doesn't touch
// eapache/queue directly; arbiter.Group wraps the same library for
// SCOPY's per-endpoint FIFOs, and TCP's per-endpoint pending queue is
// the same shape of problem.
type pendingQueue struct {
	q *queue.Queue
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{q: queue.New()}
}

func (p *pendingQueue) push(item pendingItem) {
	p.q.Add(item)
}

func (p *pendingQueue) empty() bool {
	return p.q.Length() == 0
}

func (p *pendingQueue) pop() (pendingItem, bool) {
	if p.q.Length() == 0 {
		return pendingItem{}, false
	}
	item := p.q.Peek().(pendingItem)
	p.q.Remove()
	return item, true
}
