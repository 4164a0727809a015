// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package rpc exposes PageKeep's services over persistent TCP
// connections.
//
// Each accepted connection is a long-lived channel carrying many
// pipelined calls, framed as one JSON object per line. A single weighted
// semaphore bounds how many calls execute simultaneously across all
// connections; calls past the ceiling queue at the read loop, applying
// backpressure instead of rejecting work. A connection failure
// terminates only that channel, and an accept failure discards only that
// one connection attempt.
package rpc
