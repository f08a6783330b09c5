// Package xerr carries the errno-style result codes the core's components
// return instead of raising exceptions (§7): ETIME, ENODATA, ECANCELED,
// ENOMSG and the protocol-discipline flag EPROTO. Grounded on the teacher's
// cmn/cos/err.go "IS-syscall helpers" and Errs accumulator.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package xerr

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
)

// Sentinel errno-equivalents surfaced by Endpoint.recv, NCodec.read and the
// protocol dispatch tables. Values reuse the platform syscall.Errno so
// callers may still errors.Is against the raw syscall constant.
var (
	ErrTimeout     = syscall.ETIME     // recv exceeded the caller's timeout budget
	ErrNoData      = syscall.ENODATA   // reply carried no payload
	ErrCanceled    = syscall.ECANCELED // interrupt() unblocked a pending recv
	ErrNoMsg       = syscall.ENOMSG    // codec stream exhausted (expected, not fatal)
	ErrProto       = syscall.EPROTO    // binary append-without-reset, bad token, malformed frame
	ErrBadSize     = errors.New("xerr: zero or malformed size prefix")
	ErrBadIdentity = errors.New("xerr: missing or unknown message identifier")
)

// IsTimeout reports whether err (possibly wrapped) is ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCanceled reports whether err (possibly wrapped) is ErrCanceled.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// IsNoMsg reports whether err (possibly wrapped) is ErrNoMsg, the expected
// end-of-stream sentinel on codec reads.
func IsNoMsg(err error) bool { return errors.Is(err, ErrNoMsg) }

// Errs accumulates up to maxErrs distinct errors (by message) and exposes
// them as a single joined error.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, have := range e.errs {
		if have.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) JoinErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}

// Protof formats a protocol-discipline violation wrapped with ErrProto so
// callers can both log a readable message and errors.Is(err, xerr.ErrProto).
func Protof(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProto, fmt.Sprintf(format, args...))
}
