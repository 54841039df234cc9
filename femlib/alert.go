// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package femlib implements the ambient runtime services shared by every
// other package in this module: the single error/alert funnel, the
// process-wide named-token table, and small logging helpers. It plays the
// role gosl/chk and gosl/io play throughout gofem.
package femlib

import (
	"fmt"
	"os"
)

// Severity classifies an alert raised through Alert.
type Severity int

// Severity levels, closed set.
const (
	REMARK Severity = iota
	WARNING
	ERROR
)

func (s Severity) String() string {
	switch s {
	case REMARK:
		return "REMARK"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Alert is the single funnel every error kind passes through:
// configuration-error, size-mismatch, divergence, numerical-blowup,
// I/O-failure and internal all resolve to one of REMARK/WARNING/ERROR here.
// ERROR panics immediately after printing, which ends the process unless
// a recover (such as the one in Run) catches it; REMARK and
// WARNING are non-fatal and simply print to stderr, mirroring gofem's
// io.Pf*/chk.Panic split between diagnostics and fatal aborts.
func Alert(routine string, severity Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch severity {
	case REMARK:
		fmt.Fprintf(os.Stderr, "REMARK [%s]: %s\n", routine, msg)
	case WARNING:
		fmt.Fprintf(os.Stderr, "WARNING [%s]: %s\n", routine, msg)
	case ERROR:
		fmt.Fprintf(os.Stderr, "ERROR [%s]: %s\n", routine, msg)
		panic(fmt.Sprintf("%s: %s", routine, msg))
	}
}

// Fatal is a convenience wrapper for the common configuration-error /
// size-mismatch / internal cases: it always raises ERROR.
func Fatal(routine, format string, args ...interface{}) {
	Alert(routine, ERROR, format, args...)
}

// Warn is a convenience wrapper for non-fatal divergence/IO warnings.
func Warn(routine, format string, args ...interface{}) {
	Alert(routine, WARNING, format, args...)
}

// Remark is a convenience wrapper for informational messages.
func Remark(routine, format string, args ...interface{}) {
	Alert(routine, REMARK, format, args...)
}

// Run wraps a unit of work (one timestep, one stability iteration) in the
// single top-level recover() contract: any ERROR
// raised by Alert unwinds to here as a panic and is converted back into an
// ordinary error return, exactly as cmd/dns and cmd/dog-rsi expect.
func Run(routine string, work func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", routine, r)
		}
	}()
	return work()
}
