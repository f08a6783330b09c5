// Package nlog is the thin logging collaborator used throughout the core:
// leveled, depth-aware, stderr-backed. It intentionally does not carry
// aistore's rotating-file nlog machinery (buffer pools, on-disk rotation) —
// per spec §1 the logger is an out-of-scope collaborator and only its call
// surface matters here.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

// Levels follow SIMBUS_LOGLEVEL (§6) via SetLevel: 0 silences everything,
// 1-3 logs errors only, 4 adds warnings, 5 adds info (the default level)
// and 6 or more adds debug.
const (
	sevDebug severity = iota
	sevInfo
	sevWarn
	sevErr
)

var (
	mu    sync.Mutex
	level = sevInfo
)

// SetLevel maps the 0-6 SIMBUS_LOGLEVEL scale onto the internal severities.
func SetLevel(simbusLogLevel int) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case simbusLogLevel <= 0:
		level = sevErr + 1 // nothing logs
	case simbusLogLevel <= 3:
		level = sevErr
	case simbusLogLevel <= 4:
		level = sevWarn
	case simbusLogLevel <= 5:
		level = sevInfo
	default:
		level = sevDebug
	}
}

func enabled(s severity) bool {
	mu.Lock()
	defer mu.Unlock()
	return s >= level
}

func Debugf(format string, args ...any)   { log(sevDebug, 1, format, args...) }
func Infof(format string, args ...any)    { log(sevInfo, 1, format, args...) }
func Infoln(args ...any)                  { log(sevInfo, 1, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 1, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 1, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 1, format, args...) }
func Errorln(args ...any)                 { log(sevErr, 1, "", args...) }

func InfoDepth(depth int, args ...any)  { log(sevInfo, depth+1, "", args...) }
func ErrorDepth(depth int, args ...any) { log(sevErr, depth+1, "", args...) }

func log(sev severity, depth int, format string, args ...any) {
	if !enabled(sev) {
		return
	}
	var b strings.Builder
	writeHdr(&b, sev, depth+1)
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	os.Stderr.WriteString(b.String())
}

func writeHdr(b *strings.Builder, sev severity, depth int) {
	const chars = "DIWE"
	_, fn, ln, ok := runtime.Caller(depth + 2)
	b.WriteByte(chars[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
}

// Flush is a no-op placeholder kept for call-site parity with the teacher's
// nlog.Flush(exit bool); stderr writes are unbuffered here.
func Flush(...bool) {}
