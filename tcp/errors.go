package tcp

import "errors"

// errConnClosed is returned internally by the blocking send/recv
// helpers when the peer closed the connection (a zero-length read);
// callers translate it to api.StatusUnreachable.
var errConnClosed = errors.New("tcp: connection closed by peer")
