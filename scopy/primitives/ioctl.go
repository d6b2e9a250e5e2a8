package primitives

import (
	"unsafe"

	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/internal/iovec"
	"golang.org/x/sys/unix"
)

// knemCmdInlineCopy mirrors struct knem_cmd_inline_copy from
// linux/knem_io.h: a single ioctl(2) call on the device fd copies
// local_iovec_nr local segments to or from the remote region named by
// remote_cookie, offset by remote_offset bytes. The kernel writes the
// outcome back into current_status.
type knemCmdInlineCopy struct {
	localIovecArray uint64
	localIovecNr    uint32
	write           uint32
	remoteCookie    uint64
	remoteOffset    uint64
	flags           uint32
	currentStatus   uint32
}

// knemIovec mirrors struct knem_cmd_param_iovec: a single (base,len)
// pair in the caller's address space.
type knemIovec struct {
	base uint64
	len  uint64
}

const (
	knemStatusSuccess = 0
	knemCmdInlineCopy_ = 0xc0604b02 // KNEM_CMD_INLINE_COPY, fixed ioctl number for the reference device ABI
)

// Ioctl moves bytes through a KNEM-style character device: the peer's
// region is named by a cookie (RemoteKey) previously handed out by
// that peer's registration, and RemoteAddr is an offset inside it
// rather than a raw virtual address. One ioctl(2) call handles the
// whole segment; KNEM does not report partial transfers the way
// process_vm_readv/writev can, so a successful call always consumes
// the entire segment.
type Ioctl struct {
	// DeviceFD is the already-open fd for the device node (e.g.
	// /dev/knem) that Copy issues commands against.
	DeviceFD int
}

// Copy implements api.CopyPrimitive.
func (p Ioctl) Copy(seg api.CopySegment) (next api.IovIter, moved int, status api.Status) {
	local := sliceKnemIov(seg.Iov, seg.Iter, seg.Length)
	if len(local) == 0 {
		return seg.Iter, 0, api.StatusOK
	}

	cmd := knemCmdInlineCopy{
		localIovecArray: uint64(uintptr(unsafe.Pointer(&local[0]))),
		localIovecNr:    uint32(len(local)),
		remoteCookie:    seg.RemoteKey,
		remoteOffset:    seg.RemoteAddr,
		write:           boolToUint32(seg.Op == api.OpPut),
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(p.DeviceFD),
		uintptr(knemCmdInlineCopy_), uintptr(unsafe.Pointer(&cmd)))
	if errno != 0 || cmd.currentStatus != knemStatusSuccess {
		return seg.Iter, 0, api.StatusIOError
	}

	return iovec.Advance(seg.Iov, seg.Iter, seg.Length), seg.Length, api.StatusOK
}

// sliceKnemIov builds the device-ABI iovec array the ioctl needs,
// starting at cursor it and covering up to length bytes.
func sliceKnemIov(iov []api.IovElem, it api.IovIter, length int) []knemIovec {
	var local []knemIovec
	remaining := length
	offset := it.Offset

	for i := it.Index; i < len(iov) && remaining > 0; i++ {
		elem := iov[i]
		avail := elem.Length - offset
		if avail <= 0 {
			offset = 0
			continue
		}
		take := avail
		if take > remaining {
			take = remaining
		}
		local = append(local, knemIovec{
			base: uint64(uintptr(unsafe.Pointer(&elem.Buffer[offset]))),
			len:  uint64(take),
		})
		remaining -= take
		offset = 0
	}
	return local
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

var _ api.CopyPrimitive = Ioctl{}
