//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/ucx-transports/api"
)

// EpollReactor implements api.Reactor on Linux epoll(7), level-triggered.
// Level-triggering matters here: the TCP connection state machine arms
// and disarms EPOLLOUT explicitly as its send buffer fills and drains
// (uct_tcp_ep_mod_events), and relies on repeated notification rather
// than edge-triggered one-shot wakeups.
type EpollReactor struct {
	epfd int

	mu        sync.Mutex
	callbacks map[uintptr]api.FDCallback
}

// New creates an EpollReactor backed by a fresh epoll instance.
func New() (*EpollReactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &EpollReactor{
		epfd:      epfd,
		callbacks: make(map[uintptr]api.FDCallback),
	}, nil
}

func toEpollEvents(events api.FDEventType) uint32 {
	var e uint32
	if events.Has(api.EventRead) {
		e |= unix.EPOLLIN
	}
	if events.Has(api.EventWrite) {
		e |= unix.EPOLLOUT
	}
	return e
}

// Register implements api.Reactor.
func (r *EpollReactor) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd=%d: %w", fd, err)
	}
	r.mu.Lock()
	r.callbacks[fd] = cb
	r.mu.Unlock()
	return nil
}

// Modify implements api.Reactor.
func (r *EpollReactor) Modify(fd uintptr, events api.FDEventType) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Unregister implements api.Reactor.
func (r *EpollReactor) Unregister(fd uintptr) error {
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	r.mu.Lock()
	delete(r.callbacks, fd)
	r.mu.Unlock()
	if err != nil && err != unix.ENOENT {
		return fmt.Errorf("epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Poll implements api.Reactor: blocks up to timeoutMs (negative blocks
// indefinitely), dispatching one callback per ready fd, and returns the
// number of fds that had events.
func (r *EpollReactor) Poll(timeoutMs int) (int, error) {
	var events [128]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		raw := events[i]
		fd := uintptr(raw.Fd)

		r.mu.Lock()
		cb, ok := r.callbacks[fd]
		r.mu.Unlock()
		if !ok {
			continue
		}

		var et api.FDEventType
		if raw.Events&unix.EPOLLIN != 0 {
			et |= api.EventRead
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			et |= api.EventWrite
		}
		if raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			et |= api.EventError
		}

		cb(fd, et)
	}
	return n, nil
}

// Close implements api.Reactor.
func (r *EpollReactor) Close() error {
	return unix.Close(r.epfd)
}

var _ api.Reactor = (*EpollReactor)(nil)
