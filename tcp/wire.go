package tcp

import "encoding/binary"

// magicNumber prefixes the very first bytes an initiator ever sends on
// a new socket, letting the acceptor distinguish a genuine connection
// attempt from a stray connect (spec.md §4.4.1).
const magicNumber uint64 = 0x55435854435000AA // "UCXTCP" framed in a fixed constant

const magicSize = 8

// amHeaderSize is the on-wire frame header: am_id (u8) + length (u32).
const amHeaderSize = 5

// amIDCM is the reserved am_id carrying connection-manager control
// messages instead of application payload.
const amIDCM uint8 = 0xFF

func encodeMagic(buf []byte) {
	binary.LittleEndian.PutUint64(buf[:magicSize], magicNumber)
}

func decodeMagic(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[:magicSize])
}

// encodeFrameHeader writes {am_id, length} into the first amHeaderSize
// bytes of buf.
func encodeFrameHeader(buf []byte, amID uint8, length uint32) {
	buf[0] = amID
	binary.LittleEndian.PutUint32(buf[1:amHeaderSize], length)
}

// decodeFrameHeader reads {am_id, length} from the first amHeaderSize
// bytes of buf.
func decodeFrameHeader(buf []byte) (amID uint8, length uint32) {
	return buf[0], binary.LittleEndian.Uint32(buf[1:amHeaderSize])
}

// CM event tags, carried as the first payload byte of an am_id=0xFF frame.
const (
	cmEventConnReq    uint8 = 1
	cmEventConnAck    uint8 = 2
	cmEventConnAckReq uint8 = 3 // combined ACK+REQ, simultaneous-connect tie-break path
)

// cmReqPayload is the wire body of CONN_REQ and CONN_ACK|CONN_REQ:
// {event, iface_addr, conn_id}.
const cmReqPayloadSize = 1 + wireAddrSize + 4

func encodeConnReq(event uint8, ifaceAddr Addr, connID uint32) []byte {
	buf := make([]byte, cmReqPayloadSize)
	buf[0] = event
	encodeAddr(buf[1:1+wireAddrSize], ifaceAddr)
	binary.LittleEndian.PutUint32(buf[1+wireAddrSize:], connID)
	return buf
}

func decodeConnReq(buf []byte) (ifaceAddr Addr, connID uint32) {
	ifaceAddr = decodeAddr(buf[1 : 1+wireAddrSize])
	connID = binary.LittleEndian.Uint32(buf[1+wireAddrSize:])
	return
}

// cmAckPayload is the wire body of plain CONN_ACK: {event}.
const cmAckPayloadSize = 1

func encodeConnAck() []byte {
	return []byte{cmEventConnAck}
}

// buildFrame assembles one {am_id, length, payload} frame.
func buildFrame(amID uint8, payload []byte) []byte {
	buf := make([]byte, amHeaderSize+len(payload))
	encodeFrameHeader(buf, amID, uint32(len(payload)))
	copy(buf[amHeaderSize:], payload)
	return buf
}
