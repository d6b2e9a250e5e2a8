// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the epoll-based event reactor the TCP
// transport core drives its connection and endpoint state machines
// from: a single file descriptor set, level-triggered readable/writable
// notification, and callback dispatch per event.
package reactor
