package tcp

// peerEntry tracks the monotonic conn_id counter and live endpoints
// for one peer address.
type peerEntry struct {
	nextConnID uint32
	byConnID   map[uint32]*Endpoint
}

// connMap is TcpConnectionMap (spec.md §3): peer_addr -> {conn_id
// counter, conn_id -> endpoint}, used to reuse connections and to
// detect simultaneous-connect collisions.
type connMap struct {
	byPeer map[Addr]*peerEntry
}

func newConnMap() *connMap {
	return &connMap{byPeer: make(map[Addr]*peerEntry)}
}

func (m *connMap) entry(peer Addr) *peerEntry {
	e, ok := m.byPeer[peer]
	if !ok {
		e = &peerEntry{byConnID: make(map[uint32]*Endpoint)}
		m.byPeer[peer] = e
	}
	return e
}

// nextConnID allocates the next outbound conn_id for peer.
func (m *connMap) nextConnID(peer Addr) uint32 {
	e := m.entry(peer)
	id := e.nextConnID
	e.nextConnID++
	return id
}

func (m *connMap) register(peer Addr, connID uint32, ep *Endpoint) {
	m.entry(peer).byConnID[connID] = ep
}

func (m *connMap) lookup(peer Addr, connID uint32) (*Endpoint, bool) {
	e, ok := m.byPeer[peer]
	if !ok {
		return nil, false
	}
	ep, ok := e.byConnID[connID]
	return ep, ok
}

func (m *connMap) remove(peer Addr, connID uint32) {
	if e, ok := m.byPeer[peer]; ok {
		delete(e.byConnID, connID)
	}
}

// findForPeer scans peer's endpoints (there are at most a handful at
// any time) for one already carrying RX capability (a completed
// connection, so a fresh accept for the same peer is a duplicate) and
// one still missing it (this side's own in-flight outbound endpoint,
// the tie-break candidate). Either return may be nil.
func (m *connMap) findForPeer(peer Addr) (withRX *Endpoint, withoutRX *Endpoint) {
	e, ok := m.byPeer[peer]
	if !ok {
		return nil, nil
	}
	for _, ep := range e.byConnID {
		if ep.caps.Has(CapRX) {
			withRX = ep
		} else {
			withoutRX = ep
		}
	}
	return
}
