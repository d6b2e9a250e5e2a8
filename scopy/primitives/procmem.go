// Package primitives implements the two reference CopyPrimitive
// back-ends scopy.Interface can be parameterized with: a
// process-memory syscall primitive (process_vm_readv/writev, as UCX's
// CMA transport uses — src/uct/sm/cma/cma_ep.c) and a character-device
// ioctl primitive (as UCX's KNEM transport uses —
// src/uct/sm/scopy/knem/knem_ep.c).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package primitives

import (
	"github.com/momentics/ucx-transports/api"
	"github.com/momentics/ucx-transports/internal/iovec"
	"golang.org/x/sys/unix"
)

// ProcMem moves bytes between a remote process's address space and a
// local IOV with one process_vm_readv/writev syscall per Copy call —
// the same single-syscall-per-invocation contract UCX's CMA transport
// relies on. A short transfer (the kernel moved fewer bytes than
// requested) is reported as partial completion rather than an error;
// the engine advances its cursor and loops on the next progress tick,
// exactly as spec.md §4.3 describes for this primitive.
type ProcMem struct{}

// Copy implements api.CopyPrimitive.
func (ProcMem) Copy(seg api.CopySegment) (next api.IovIter, moved int, status api.Status) {
	local := sliceLocalIov(seg.Iov, seg.Iter, seg.Length)
	if len(local) == 0 {
		return seg.Iter, 0, api.StatusOK
	}

	remote := []unix.RemoteIovec{{
		Base: uintptr(seg.RemoteAddr),
		Len:  seg.Length,
	}}

	var n int
	var err error
	switch seg.Op {
	case api.OpPut:
		n, err = unix.ProcessVMWritev(int(seg.PeerID), local, remote, 0)
	case api.OpGet:
		n, err = unix.ProcessVMReadv(int(seg.PeerID), local, remote, 0)
	}
	if err != nil {
		return seg.Iter, 0, api.StatusIOError
	}

	return iovec.Advance(seg.Iov, seg.Iter, n), n, api.StatusOK
}

// sliceLocalIov builds the []unix.Iovec the syscall needs, starting
// at cursor it and covering up to length bytes, trimming the first
// and last elements to the cursor's byte offsets.
func sliceLocalIov(iov []api.IovElem, it api.IovIter, length int) []unix.Iovec {
	var local []unix.Iovec
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
		local = append(local, unix.Iovec{Base: &elem.Buffer[offset]})
		local[len(local)-1].SetLen(take)
		remaining -= take
		offset = 0
	}
	return local
}

var _ api.CopyPrimitive = ProcMem{}
