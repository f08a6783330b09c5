// Package idgen generates the two identifier flavors the core needs: a
// deterministic 32-bit signal UID (hash of the signal name, assigned once
// by the bus on first SignalIndex — spec §3, §4.5) and a short random
// model/session UUID for instances that don't have one configured in YAML.
// Grounded on the teacher's cmn/cos/uuid.go (xxhash + shortid combo).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package idgen

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// SignalUID deterministically hashes a signal name into a nonzero 32-bit
// UID. Per spec §3, uid == 0 means "not yet resolved"; this never returns 0.
func SignalUID(name string) uint32 {
	h := uint32(xxhash.ChecksumString32(name))
	if h == 0 {
		h = 1
	}
	return h
}

var (
	once sync.Once
	sid  *shortid.Shortid
	mu   sync.Mutex
)

func generator() *shortid.Shortid {
	once.Do(func() {
		var err error
		sid, err = shortid.New(1, shortid.DefaultABC, 0xDECAFBAD)
		if err != nil {
			sid = shortid.MustNew(1, shortid.DefaultABC, 1)
		}
	})
	return sid
}

// ModelUID generates a short, human-loggable identifier for a model
// instance that was not assigned a uid in its Stack.spec.models[] entry.
func ModelUID() string {
	mu.Lock()
	defer mu.Unlock()
	return generator().MustGenerate()
}
