package tcp

import (
	"golang.org/x/sys/unix"
)

// newNonblockingSocket creates an AF_INET/SOCK_STREAM socket with
// O_NONBLOCK set, ready for connect(2) or bind(2)+listen(2).
func newNonblockingSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// connectNB issues a nonblocking connect(2). inProgress is true when
// the kernel reports EINPROGRESS (the common case for a nonblocking
// socket); err is non-nil only for a genuine failure to even start
// connecting.
func connectNB(fd int, addr Addr) (inProgress bool, err error) {
	err = unix.Connect(fd, addr.sockaddr())
	if err == nil {
		return false, nil
	}
	if err == unix.EINPROGRESS {
		return true, nil
	}
	return false, err
}

// socketError reads and clears SO_ERROR, the standard way to learn
// whether a nonblocking connect completed successfully once the fd
// becomes writable.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// sendAllBlocking spins on write(2)+poll(2) until buf is fully sent
// or a real error occurs. Used only for the tiny, latency-insensitive
// connection-manager handshake frames (tcp_cm.c's
// uct_tcp_send_blocking): a few dozen bytes that are expected to
// drain in one or two syscalls even on a nonblocking socket.
func sendAllBlocking(fd int, buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := unix.Write(fd, buf[off:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				if perr := pollWritable(fd); perr != nil {
					return perr
				}
				continue
			}
			return err
		}
		off += n
	}
	return nil
}

// recvAllBlocking is sendAllBlocking's receive-side counterpart
// (uct_tcp_recv_blocking).
func recvAllBlocking(fd int, buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := unix.Read(fd, buf[off:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				if perr := pollReadable(fd); perr != nil {
					return perr
				}
				continue
			}
			return err
		}
		if n == 0 {
			return errConnClosed
		}
		off += n
	}
	return nil
}

func pollWritable(fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	_, err := unix.Poll(fds, -1)
	return err
}

func pollReadable(fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	_, err := unix.Poll(fds, -1)
	return err
}
