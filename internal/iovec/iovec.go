// Package iovec implements the IoVector/IovIter bookkeeping shared by
// the scopy and tcp transport cores: building a normalized scatter/
// gather list from caller-supplied buffers (eliding zero-length
// elements), and a cursor-based converter that fills a destination
// buffer from a source IOV and can resume where it left off.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package iovec

import "github.com/momentics/ucx-transports/api"

// Normalize copies src into a fresh IOV, skipping zero-length
// elements, and returns the total byte length. It never aliases src's
// backing array beyond the element slices themselves (buffers are
// shared, not duplicated — this is the zero-copy contract).
func Normalize(src []api.IovElem) (out []api.IovElem, total int) {
	out = make([]api.IovElem, 0, len(src))
	for _, e := range src {
		if e.Length == 0 {
			continue
		}
		out = append(out, e)
		total += e.Length
	}
	return out, total
}

// Advance returns the cursor reached after skipping n bytes forward
// from it within iov. It is the caller's responsibility to ensure n
// does not overrun the vector's remaining length.
func Advance(iov []api.IovElem, it api.IovIter, n int) api.IovIter {
	for n > 0 && it.Index < len(iov) {
		remaining := iov[it.Index].Length - it.Offset
		if n < remaining {
			it.Offset += n
			return it
		}
		n -= remaining
		it.Index++
		it.Offset = 0
	}
	return it
}

// Remaining reports how many bytes are left in iov from cursor it to
// the end of the vector.
func Remaining(iov []api.IovElem, it api.IovIter) int {
	total := 0
	for i := it.Index; i < len(iov); i++ {
		if i == it.Index {
			total += iov[i].Length - it.Offset
		} else {
			total += iov[i].Length
		}
	}
	return total
}

// Fill copies up to maxLength bytes from src, starting at cursor it,
// into dst. It returns the number of bytes written and the cursor
// reached, so a subsequent Fill call with that cursor resumes exactly
// where this one stopped.
//
// Round-trip property: Fill(dst1, src, zeroIter, n) followed by
// Fill(dst2, src, cursorAfter, m) yields dst1++dst2 equal to the
// prefix of src of length min(total(src), n+m).
func Fill(dst []byte, src []api.IovElem, it api.IovIter, maxLength int) (filled int, next api.IovIter) {
	limit := len(dst)
	if maxLength < limit {
		limit = maxLength
	}
	for filled < limit && it.Index < len(src) {
		elem := src[it.Index]
		avail := elem.Length - it.Offset
		if avail <= 0 {
			it.Index++
			it.Offset = 0
			continue
		}
		want := limit - filled
		if want > avail {
			want = avail
		}
		copy(dst[filled:filled+want], elem.Buffer[it.Offset:it.Offset+want])
		filled += want
		it.Offset += want
		if it.Offset == elem.Length {
			it.Index++
			it.Offset = 0
		}
	}
	return filled, it
}
