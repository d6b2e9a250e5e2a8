// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// A bounded generic object pool used to recycle hot-path allocations
// (scopy.Tx) without letting an unbounded client drive unbounded
// memory growth, per spec.md §5's TxPool{Initial,Max} bound.
package pool
