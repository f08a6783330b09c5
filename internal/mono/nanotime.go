//go:build !mono

// Package mono provides low-level monotonic time used for benchmark
// windows and trace timestamps; never for bus_time progression, which is
// Kahan-summed simulated time (see internal/ksum).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// NanoTime returns a monotonic nanosecond reading. The "mono" build tag
// switches to a go:linkname'd runtime.nanotime for lower overhead; plain
// builds use the stdlib monotonic clock reading embedded in time.Now().
func NanoTime() int64 { return int64(time.Since(start)) }

// start anchors NanoTime; time.Since uses its monotonic reading.
var start = time.Now()
