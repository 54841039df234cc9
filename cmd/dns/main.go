// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dns is the time-stepping driver: it reads a decoded session
// file, builds a Domain via package setup, and advances it N_STEP steps
// with the KIO91 stiffly-stable Stepper, dumping restart files on the
// IO_FLD schedule and printing remarks on the IO_HIS/IO_CFL schedules
// (no history or CFL files are written). It mirrors gofem's root main.go:
// flag.Parse() for the session path, a single top-level defer/recover
// funnel, and gosl/io-style status printing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/domain"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/integrate"
	"github.com/lab272/semtex-go/session"
	"github.com/lab272/semtex-go/setup"
)

// zeroForce is the trivial FieldForce used when a session declares no
// body-force token; every component evaluates to nil, which
// integrate.addForce treats as a no-op.
type zeroForce struct{}

func (zeroForce) Force(component int, t float64) *auxfield.AuxField { return nil }

func main() {
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				io.PfRed("ERROR: %v\n", err)
			}
			mpi.Stop(false)
			os.Exit(1)
		}
	}()
	mpi.Start(false)
	defer mpi.Stop(false)

	flag.Parse()
	if flag.NArg() < 1 {
		chk.Panic("usage: dns session.json")
	}
	sessionPath := flag.Arg(0)

	if mpi.Rank() == 0 {
		io.PfWhite("\nsemtex-go dns -- spectral-element Navier-Stokes time-stepper\n\n")
	}

	sess := session.Load(sessionPath)
	dom, stepper := setup.BuildDomain(sess, zeroForce{})

	if err := femlib.Run("cmd/dns", func() error {
		runLoop(sess, dom, stepper)
		return nil
	}); err != nil {
		chk.Panic("%v", err)
	}
}

// runLoop advances the Domain N_STEP times, dumping the restart file on
// the IO_FLD schedule and printing a remark on the IO_HIS/IO_CFL
// schedules recorded in the session, and aborts the moment any field's NaN monitor trips.
func runLoop(sess *session.Session, dom *domain.Domain, stepper *integrate.Stepper) {
	for step := 0; step < sess.NStep; step++ {
		stepper.Advance()

		for _, fl := range dom.Fields {
			fl.Data.CheckNoNaN("cmd/dns.runLoop")
		}

		if dom.ShouldDump(sess.IoFld) {
			if err := dom.Dump(sess.RestartPath(), sess.Kinvis, sess.Beta); err != nil {
				femlib.Fatal("cmd/dns.runLoop", "restart dump failed: %v", err)
			}
		}
		if dom.ShouldDump(sess.IoHis) {
			femlib.Remark("cmd/dns.runLoop", "step %d: history point sampling not built here", dom.Step)
		}
		if dom.ShouldDump(sess.IoCfl) {
			femlib.Remark("cmd/dns.runLoop", "step %d: t=%g", dom.Step, dom.Time)
		}
	}
	fmt.Printf("dns: completed %d steps, t=%g\n", dom.Step, dom.Time)
}
