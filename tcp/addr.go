package tcp

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Addr is a packed IPv4 socket address: the wire and in-memory
// representation used throughout this package as the connection
// map's key and as the value compared during simultaneous-connect
// tie-break.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// NewAddr builds an Addr from four octets and a port.
func NewAddr(a, b, c, d byte, port uint16) Addr {
	return Addr{IP: [4]byte{a, b, c, d}, Port: port}
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}

// packed returns a single total-ordered key: 32 bits of address
// followed by 16 bits of port, matching network byte order so the
// comparison is equivalent to comparing the raw sockaddr_in bytes.
func (a Addr) packed() uint64 {
	ip := binary.BigEndian.Uint32(a.IP[:])
	return uint64(ip)<<16 | uint64(a.Port)
}

// Less implements the total order over packed socket addresses that
// the simultaneous-connect tie-break compares on: the side with the
// smaller address accepts the incoming connection (cm.go).
func (a Addr) Less(other Addr) bool { return a.packed() < other.packed() }

// Equal reports whether two addresses are identical (the loopback /
// self-connect case, where neither side yields in the tie-break).
func (a Addr) Equal(other Addr) bool { return a.packed() == other.packed() }

func (a Addr) sockaddr() *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Addr: a.IP, Port: int(a.Port)}
}

func addrFromSockaddr(sa unix.Sockaddr) (Addr, error) {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Addr{}, fmt.Errorf("tcp: unsupported sockaddr family %T", sa)
	}
	return Addr{IP: sa4.Addr, Port: uint16(sa4.Port)}, nil
}

const wireAddrSize = 6 // 4 bytes IP + 2 bytes port, big-endian

func encodeAddr(buf []byte, a Addr) {
	copy(buf[0:4], a.IP[:])
	binary.BigEndian.PutUint16(buf[4:6], a.Port)
}

func decodeAddr(buf []byte) Addr {
	var a Addr
	copy(a.IP[:], buf[0:4])
	a.Port = binary.BigEndian.Uint16(buf[4:6])
	return a
}
