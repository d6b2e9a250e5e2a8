package tcp

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/config"
	"github.com/momentics/ucx-transports/internal/xlog"
	"github.com/momentics/ucx-transports/reactor"
)

func newReactor() (api.Reactor, error) {
	return reactor.New()
}

// Interface is one TCP transport instance: it owns the listening
// socket, the reactor every endpoint's fd is registered on, the
// connection map, and the active-message handler table.
type Interface struct {
	reactor  api.Reactor
	cfg      *config.Store
	conns    *connMap
	handlers map[uint8]AmHandler
	log      *zap.Logger

	localAddr Addr
	listenFD  int

	endpoints map[int]*Endpoint // keyed by fd

	outstandingBytes atomic.Int64
}

// New constructs a TCP interface bound to localAddr, listening for
// inbound connections immediately.
func New(localAddr Addr, cfg config.Config, log *zap.Logger) (*Interface, error) {
	if log == nil {
		log = xlog.Nop()
	}
	r, err := newReactor()
	if err != nil {
		return nil, err
	}

	iface := &Interface{
		reactor:   r,
		cfg:       config.NewStore(cfg),
		conns:     newConnMap(),
		handlers:  make(map[uint8]AmHandler),
		log:       log.Named("tcp"),
		localAddr: localAddr,
		listenFD:  -1,
		endpoints: make(map[int]*Endpoint),
	}

	if err := iface.listen(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return iface, nil
}

func (iface *Interface) listen() error {
	fd, err := newNonblockingSocket()
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, iface.localAddr.sockaddr()); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return err
	}
	iface.listenFD = fd
	return iface.reactor.Register(uintptr(fd), api.EventRead, iface.onListenerEvent)
}

// RegisterHandler installs the handler invoked for every inbound
// active message carrying amID. Registering amIDCM is rejected: that
// id is reserved for connection-manager control frames.
func (iface *Interface) RegisterHandler(amID uint8, handler AmHandler) {
	if amID == amIDCM {
		return
	}
	iface.handlers[amID] = handler
}

// LocalAddr returns the interface's bound address.
func (iface *Interface) LocalAddr() Addr { return iface.localAddr }

// Connect creates a new outbound endpoint toward peer and starts
// connection establishment (tcp_cm.c's uct_tcp_cm_conn_start).
func (iface *Interface) Connect(peer Addr) (*Endpoint, error) {
	fd, err := newNonblockingSocket()
	if err != nil {
		return nil, err
	}

	ep := newEndpoint(iface, fd)
	ep.peerAddr = peer
	ep.hasPeer = true
	ep.localConnID = iface.conns.nextConnID(peer)
	iface.conns.register(peer, ep.localConnID, ep)
	iface.endpoints[fd] = ep

	iface.connStart(ep)
	return ep, nil
}

// Progress drives exactly one reactor wait cycle, dispatching
// whatever callbacks fire. timeoutMs follows api.Reactor.Poll's
// convention (0 = non-blocking poll, as used by a cooperative
// single-threaded progress loop).
func (iface *Interface) Progress(timeoutMs int) (int, error) {
	return iface.reactor.Poll(timeoutMs)
}

// Flush implements iface_flush (spec.md §4.4.4): OK iff no endpoint
// has outstanding TX bytes. completion is invoked only when OK is
// returned; on InProgress it is not retained and never fires.
func (iface *Interface) Flush(completion api.Completion) api.Status {
	if iface.outstandingBytes.Load() == 0 {
		api.InvokeCompletion(completion, api.StatusOK)
		return api.StatusOK
	}
	return api.StatusInProgress
}

// Close tears down every endpoint, the listening socket, and the
// reactor.
func (iface *Interface) Close() error {
	for _, ep := range iface.endpoints {
		ep.fail(api.StatusUnreachable)
		ep.close()
	}
	iface.endpoints = make(map[int]*Endpoint)
	if iface.listenFD != -1 {
		_ = iface.reactor.Unregister(uintptr(iface.listenFD))
		unix.Close(iface.listenFD)
		iface.listenFD = -1
	}
	return iface.reactor.Close()
}

func (iface *Interface) destroyEndpoint(ep *Endpoint) {
	delete(iface.endpoints, ep.fd)
	if ep.hasPeer {
		iface.conns.remove(ep.peerAddr, ep.localConnID)
	}
	ep.fail(api.StatusUnreachable)
	ep.close()
}

func (iface *Interface) onListenerEvent(_ uintptr, events api.FDEventType) {
	if !events.Has(api.EventRead) {
		return
	}
	for {
		fd, sa, err := unix.Accept(iface.listenFD)
		if err != nil {
			return
		}
		_ = unix.SetNonblock(fd, true)
		peer, err := addrFromSockaddr(sa)
		if err != nil {
			unix.Close(fd)
			continue
		}
		iface.handleIncomingConn(peer, fd)
	}
}

// onFDEvent is the per-connection reactor callback, dispatching to
// the connection-manager or AM pipeline according to the endpoint's
// current state (cm.go, rx.go, tx.go).
func (iface *Interface) onFDEvent(fd uintptr, events api.FDEventType) {
	ep, ok := iface.endpoints[int(fd)]
	if !ok {
		return
	}

	if events.Has(api.EventError) {
		iface.destroyEndpoint(ep)
		return
	}
	if events.Has(api.EventWrite) {
		iface.onWritable(ep)
		if ep.failed {
			iface.destroyEndpoint(ep)
			return
		}
	}
	if events.Has(api.EventRead) {
		iface.onReadable(ep)
		if ep.failed {
			iface.destroyEndpoint(ep)
		}
	}
}
