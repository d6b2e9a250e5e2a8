package tcp

import "testing"

import "github.com/stretchr/testify/require"

func TestMagicRoundTrip(t *testing.T) {
	buf := make([]byte, magicSize)
	encodeMagic(buf)
	require.Equal(t, magicNumber, decodeMagic(buf))
}

func TestFrameHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, amHeaderSize)
	encodeFrameHeader(buf, 7, 1234)
	id, length := decodeFrameHeader(buf)
	require.EqualValues(t, 7, id)
	require.EqualValues(t, 1234, length)
}

func TestBuildFrameLayout(t *testing.T) {
	payload := []byte("hello")
	frame := buildFrame(3, payload)
	require.Len(t, frame, amHeaderSize+len(payload))
	id, length := decodeFrameHeader(frame)
	require.EqualValues(t, 3, id)
	require.EqualValues(t, len(payload), length)
	require.Equal(t, payload, frame[amHeaderSize:])
}

func TestConnReqRoundTrip(t *testing.T) {
	addr := NewAddr(10, 0, 0, 5, 4242)
	buf := encodeConnReq(cmEventConnAckReq, addr, 99)
	require.Len(t, buf, cmReqPayloadSize)
	require.Equal(t, cmEventConnAckReq, buf[0])

	gotAddr, gotConnID := decodeConnReq(buf)
	require.Equal(t, addr, gotAddr)
	require.EqualValues(t, 99, gotConnID)
}

func TestConnAckPayload(t *testing.T) {
	buf := encodeConnAck()
	require.Len(t, buf, cmAckPayloadSize)
	require.Equal(t, cmEventConnAck, buf[0])
}
